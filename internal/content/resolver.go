package content

import (
	"context"
	"sort"
	"strings"

	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/redact"
)

type Status int

const (
	Found Status = iota
	NotFound
	Error
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	default:
		return "error"
	}
}

// Outcome is the result of resolving a page. Err is set only for Error.
type Outcome struct {
	Status Status
	Page   *models.Page
	Err    error
}

// Resolver maps slugs to pages and builds the navigation tree. It does not
// cache; each call goes to the provider.
type Resolver struct {
	provider Provider
	log      logging.Logger
}

func NewResolver(provider Provider, log logging.Logger) *Resolver {
	return &Resolver{provider: provider, log: log}
}

// ResolvePage looks up the page whose slug matches exactly. A provider
// failure is reported as Error, never as NotFound.
func (r *Resolver) ResolvePage(ctx context.Context, slug string) Outcome {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return Outcome{Status: NotFound}
	}

	page, err := r.provider.PageBySlug(ctx, slug)
	if err != nil {
		r.log.Error(ctx, "cms page lookup failed", "slug", slug, "error", redact.Error(err))
		return Outcome{Status: Error, Err: err}
	}
	if page == nil {
		return Outcome{Status: NotFound}
	}
	return Outcome{Status: Found, Page: page}
}

// ResolveNavigation returns the ordered menu tree, or DefaultNavigation when
// the CMS fails or has no menu.
func (r *Resolver) ResolveNavigation(ctx context.Context) []models.MenuItem {
	items, err := r.provider.Navigation(ctx)
	if err != nil {
		r.log.Warn(ctx, "cms navigation lookup failed, using default menu", "error", redact.Error(err))
		return DefaultNavigation()
	}
	if len(items) == 0 {
		return DefaultNavigation()
	}
	return normalizeMenu(items)
}

// DefaultNavigation keeps primary navigation usable without a CMS.
func DefaultNavigation() []models.MenuItem {
	return []models.MenuItem{
		{ID: 1, Label: "Home", URL: "/", Order: 1},
		{ID: 2, Label: "Tools", URL: "/tools", Order: 2},
		{ID: 3, Label: "Dashboard", URL: "/dashboard", Order: 3},
	}
}

func normalizeMenu(items []models.MenuItem) []models.MenuItem {
	out := make([]models.MenuItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].URL = menuURL(out[i])
		if len(out[i].Children) > 0 {
			out[i].Children = normalizeMenu(out[i].Children)
		}
	}
	return out
}

func menuURL(item models.MenuItem) string {
	switch {
	case item.URL != "":
		return item.URL
	case item.PageSlug != "":
		return "/" + strings.TrimPrefix(item.PageSlug, "/")
	default:
		return "#"
	}
}
