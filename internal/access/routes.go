package access

import (
	"net/url"
	"path"
	"strings"
)

// Requirement is what a frontend route asks of the visitor.
type Requirement string

const (
	Public        Requirement = "public"
	Authenticated Requirement = "authenticated"
	AdminOnly     Requirement = "admin"
)

// RouteRule binds a path prefix to a requirement. A prefix matches itself
// and every path below it.
type RouteRule struct {
	Prefix      string      `json:"prefix"`
	Requirement Requirement `json:"requirement"`
}

// RoutePolicy is the route table shared by the server and the SPA. The
// longest matching prefix wins; unmatched paths are public.
type RoutePolicy struct {
	Rules         []RouteRule `json:"rules"`
	LoginPath     string      `json:"loginPath"`
	AdminLogin    string      `json:"adminLoginPath"`
	Unauthorized  string      `json:"unauthorizedPath"`
	AdminHome     string      `json:"adminHomePath"`
	ReturnToParam string      `json:"returnToParam"`
}

// DefaultRoutePolicy mirrors the routes of the web app.
func DefaultRoutePolicy() RoutePolicy {
	return RoutePolicy{
		Rules: []RouteRule{
			{Prefix: "/dashboard", Requirement: Authenticated},
			{Prefix: "/profile", Requirement: Authenticated},
			{Prefix: "/test", Requirement: Authenticated},
			{Prefix: "/tools", Requirement: Authenticated},
			{Prefix: "/reports", Requirement: Authenticated},
			{Prefix: "/billing", Requirement: Authenticated},
			{Prefix: "/checkout", Requirement: Authenticated},
			{Prefix: "/admin", Requirement: AdminOnly},
			{Prefix: "/admin/login", Requirement: Public},
		},
		LoginPath:     "/login",
		AdminLogin:    "/admin/login",
		Unauthorized:  "/unauthorized",
		AdminHome:     "/admin",
		ReturnToParam: "returnTo",
	}
}

// ClientState is what the browser knows about its own session.
type ClientState struct {
	Authenticated         bool `json:"authenticated"`
	IsAdmin               bool `json:"isAdmin"`
	CanAccessUserFeatures bool `json:"canAccessUserFeatures"`
}

type GuardAction string

const (
	Render   GuardAction = "render"
	Redirect GuardAction = "redirect"
)

// GuardDecision tells the SPA whether to render the requested view.
type GuardDecision struct {
	Action      GuardAction `json:"action"`
	Location    string      `json:"location,omitempty"`
	Requirement Requirement `json:"requirement"`
}

// Requirement returns the requirement of the longest rule matching p.
func (rp RoutePolicy) Requirement(p string) Requirement {
	p = cleanPath(p)
	best, bestLen := Public, -1
	for _, rule := range rp.Rules {
		if matchesPrefix(p, rule.Prefix) && len(rule.Prefix) > bestLen {
			best, bestLen = rule.Requirement, len(rule.Prefix)
		}
	}
	return best
}

// Guard evaluates p for a visitor in state. It is a UX convenience for the
// browser; protected API routes enforce their own session and role checks.
func (rp RoutePolicy) Guard(p string, state ClientState) GuardDecision {
	p = cleanPath(p)
	req := rp.Requirement(p)
	decision := GuardDecision{Action: Render, Requirement: req}

	switch req {
	case Public:
		return decision
	case AdminOnly:
		if !state.Authenticated {
			decision.Action, decision.Location = Redirect, rp.loginRedirect(rp.AdminLogin, p)
		} else if !state.IsAdmin {
			decision.Action, decision.Location = Redirect, rp.Unauthorized
		}
	case Authenticated:
		if !state.Authenticated {
			decision.Action, decision.Location = Redirect, rp.loginRedirect(rp.LoginPath, p)
		} else if state.IsAdmin && !state.CanAccessUserFeatures {
			decision.Action, decision.Location = Redirect, rp.AdminHome
		}
	}
	return decision
}

func (rp RoutePolicy) loginRedirect(login, returnTo string) string {
	return login + "?" + rp.ReturnToParam + "=" + url.QueryEscape(returnTo)
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func matchesPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
