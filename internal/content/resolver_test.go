package content

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/models"
)

type failingProvider struct{ err error }

func (f failingProvider) PageBySlug(context.Context, string) (*models.Page, error) { return nil, f.err }
func (f failingProvider) Navigation(context.Context) ([]models.MenuItem, error) { return nil, f.err }

func testSeed() Seed {
	return Seed{
		Pages: []models.Page{{
			Slug:     "about",
			Title:    "About",
			Layout:   "default",
			Sections: []json.RawMessage{json.RawMessage(`{"type":"hero","heading":"Hi"}`)},
		}},
		Navigation: []models.MenuItem{
			{ID: 3, Label: "Contact", PageSlug: "contact", Order: 3},
			{ID: 1, Label: "Home", URL: "/", Order: 1, Children: []models.MenuItem{
				{ID: 5, Label: "B", URL: "/b", Order: 2},
				{ID: 4, Label: "A", URL: "/a", Order: 1},
			}},
			{ID: 2, Label: "Nowhere", Order: 2},
		},
	}
}

func TestResolvePage(t *testing.T) {
	r := NewResolver(NewMemoryProvider(testSeed()), logging.Discard())
	ctx := context.Background()

	out := r.ResolvePage(ctx, "about")
	require.Equal(t, Found, out.Status)
	require.NotNil(t, out.Page)
	assert.Equal(t, testSeed().Pages[0].Sections, out.Page.Sections)

	assert.Equal(t, NotFound, r.ResolvePage(ctx, "About").Status)
	assert.Equal(t, NotFound, r.ResolvePage(ctx, "missing").Status)
	assert.Equal(t, NotFound, r.ResolvePage(ctx, "").Status)
	assert.Equal(t, Found, r.ResolvePage(ctx, "/about/").Status)
}

func TestResolvePage_ProviderFailureIsNeverNotFound(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	r := NewResolver(failingProvider{err: cause}, logging.Discard())

	out := r.ResolvePage(context.Background(), "about")
	assert.Equal(t, Error, out.Status)
	assert.ErrorIs(t, out.Err, cause)
	assert.Nil(t, out.Page)
}

func TestResolveNavigation_SortsAndFillsURLs(t *testing.T) {
	r := NewResolver(NewMemoryProvider(testSeed()), logging.Discard())

	items := r.ResolveNavigation(context.Background())
	require.Len(t, items, 3)
	assert.Equal(t, "Home", items[0].Label)
	assert.Equal(t, "#", items[1].URL)
	assert.Equal(t, "/contact", items[2].URL)
	require.Len(t, items[0].Children, 2)
	assert.Equal(t, "A", items[0].Children[0].Label)
}

func TestResolveNavigation_FallsBack(t *testing.T) {
	failing := NewResolver(failingProvider{err: errors.New("down")}, logging.Discard())
	assert.Equal(t, DefaultNavigation(), failing.ResolveNavigation(context.Background()))

	empty := NewResolver(NewMemoryProvider(Seed{}), logging.Discard())
	got := empty.ResolveNavigation(context.Background())
	require.Len(t, got, 3)
	assert.Equal(t, []string{"/", "/tools", "/dashboard"}, []string{got[0].URL, got[1].URL, got[2].URL})
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	raw, err := json.Marshal(testSeed())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	p, err := LoadSeedFile(path)
	require.NoError(t, err)
	page, err := p.PageBySlug(context.Background(), "about")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "About", page.Title)

	_, err = LoadSeedFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
