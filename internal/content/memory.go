package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hongminglow/access-web-be/internal/models"
)

var _ Provider = (*MemoryProvider)(nil)

// MemoryProvider serves a fixed set of pages and menu items. It backs local
// development without a CMS and the tests.
type MemoryProvider struct {
	pages map[string]models.Page
	menu  []models.MenuItem
}

// Seed is the JSON shape read by LoadSeedFile.
type Seed struct {
	Pages      []models.Page     `json:"pages"`
	Navigation []models.MenuItem `json:"navigation"`
}

func NewMemoryProvider(seed Seed) *MemoryProvider {
	p := &MemoryProvider{pages: make(map[string]models.Page, len(seed.Pages)), menu: seed.Navigation}
	for _, page := range seed.Pages {
		p.pages[page.Slug] = page
	}
	return p
}

// LoadSeedFile builds a MemoryProvider from a JSON file.
func LoadSeedFile(path string) (*MemoryProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse content seed %s: %w", path, err)
	}
	return NewMemoryProvider(seed), nil
}

func (p *MemoryProvider) PageBySlug(_ context.Context, slug string) (*models.Page, error) {
	page, ok := p.pages[slug]
	if !ok {
		return nil, nil
	}
	return &page, nil
}

func (p *MemoryProvider) Navigation(_ context.Context) ([]models.MenuItem, error) {
	if len(p.menu) == 0 {
		return nil, nil
	}
	out := make([]models.MenuItem, len(p.menu))
	copy(out, p.menu)
	return out, nil
}
