package access

import (
	"sort"
	"strings"
	"time"

	"github.com/hongminglow/access-web-be/internal/models"
)

// Features gated by plan.
const (
	FeatureAccessibilityScan = "accessibility-scan"
	FeatureWCAGAudit         = "wcag-audit"
	FeatureAPIAccess         = "api-access"
	FeatureWhiteLabel        = "white-label"
)

var planRanks = map[string]int{
	models.PlanFree: 0,
	"basic":         1,
	"professional":  2,
	"enterprise":    3,
}

// featureMinimumPlan maps each feature to the cheapest plan that unlocks it.
var featureMinimumPlan = map[string]string{
	FeatureAccessibilityScan: models.PlanFree,
	FeatureWCAGAudit:         "professional",
	FeatureAPIAccess:         "professional",
	FeatureWhiteLabel:        "enterprise",
}

// PlanRank returns the ordering of a plan name; unknown plans rank as free.
func PlanRank(plan string) int {
	return planRanks[strings.ToLower(plan)]
}

// KnownFeature reports whether feature appears in the entitlement table.
func KnownFeature(feature string) bool {
	_, ok := featureMinimumPlan[feature]
	return ok
}

// RequiredPlan is the cheapest plan that unlocks feature.
func RequiredPlan(feature string) string {
	return featureMinimumPlan[feature]
}

// Entitled reports whether the principal holding sub may use feature at now.
// A lapsed or inactive subscription counts as the free plan. Unknown
// features are never granted to non-admins.
func Entitled(p models.Principal, sub models.Subscription, feature string, now time.Time) bool {
	if p.IsAdmin {
		return true
	}
	minPlan, ok := featureMinimumPlan[feature]
	if !ok {
		return false
	}
	plan := sub.Plan
	if !sub.ActiveAt(now) {
		plan = models.PlanFree
	}
	return PlanRank(plan) >= PlanRank(minPlan)
}

// Entitlements lists every feature the principal may currently use, sorted.
func Entitlements(p models.Principal, sub models.Subscription, now time.Time) []string {
	out := make([]string, 0, len(featureMinimumPlan))
	for feature := range featureMinimumPlan {
		if Entitled(p, sub, feature, now) {
			out = append(out, feature)
		}
	}
	sort.Strings(out)
	return out
}
