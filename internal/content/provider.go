// Package content resolves CMS pages and the site navigation tree.
//
// The CMS itself sits behind Provider; the Strapi and in-memory variants are
// chosen once at startup from configuration.
package content

import (
	"context"

	"github.com/hongminglow/access-web-be/internal/models"
)

// Provider reads published content. PageBySlug and Navigation return
// (nil, nil) when the CMS has nothing for the request and a non-nil error
// only when the CMS could not be asked.
type Provider interface {
	PageBySlug(ctx context.Context, slug string) (*models.Page, error)
	Navigation(ctx context.Context) ([]models.MenuItem, error)
}
