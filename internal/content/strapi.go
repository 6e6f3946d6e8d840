package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hongminglow/access-web-be/internal/models"
)

var _ Provider = (*StrapiProvider)(nil)

// StrapiProvider talks to the Strapi v4 REST API.
type StrapiProvider struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
}

// NewStrapiProvider targets baseURL (without the /api suffix). token may be
// empty for public content.
func NewStrapiProvider(baseURL, token string, timeout time.Duration) *StrapiProvider {
	return &StrapiProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type strapiSEO struct {
	MetaTitle       string          `json:"metaTitle"`
	MetaDescription string          `json:"metaDescription"`
	Keywords        string          `json:"keywords"`
	MetaRobots      string          `json:"metaRobots"`
	CanonicalURL    string          `json:"canonicalURL"`
	StructuredData  json.RawMessage `json:"structuredData"`
}

type strapiPage struct {
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Layout      string            `json:"layout"`
	Sections    []json.RawMessage `json:"sections"`
	SEO         *strapiSEO        `json:"seo"`
	PublishedAt string            `json:"publishedAt"`
}

type strapiMenuItem struct {
	ID       int64            `json:"id"`
	Label    string           `json:"label"`
	URL      string           `json:"url"`
	Target   string           `json:"target"`
	IsButton bool             `json:"isButton"`
	Order    int              `json:"order"`
	Children []strapiMenuItem `json:"children"`
	Page     *struct {
		Data *struct {
			Attributes struct {
				Slug string `json:"slug"`
			} `json:"attributes"`
		} `json:"data"`
	} `json:"page"`
}

// PageBySlug queries /api/pages filtered on the exact slug.
func (s *StrapiProvider) PageBySlug(ctx context.Context, slug string) (*models.Page, error) {
	q := url.Values{}
	q.Set("filters[slug][$eq]", slug)
	q.Set("populate[sections][populate]", "*")
	q.Set("populate[seo][populate]", "*")

	var resp struct {
		Data []struct {
			ID         int64      `json:"id"`
			Attributes strapiPage `json:"attributes"`
		} `json:"data"`
	}
	if err := s.get(ctx, "/api/pages", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	attrs := resp.Data[0].Attributes
	page := &models.Page{
		Slug:        attrs.Slug,
		Title:       attrs.Title,
		Layout:      attrs.Layout,
		Sections:    attrs.Sections,
		PublishedAt: attrs.PublishedAt,
	}
	if page.Sections == nil {
		page.Sections = []json.RawMessage{}
	}
	if attrs.SEO != nil {
		page.SEO = models.SEO{
			MetaTitle:       attrs.SEO.MetaTitle,
			MetaDescription: attrs.SEO.MetaDescription,
			Keywords:        attrs.SEO.Keywords,
			MetaRobots:      attrs.SEO.MetaRobots,
			CanonicalURL:    attrs.SEO.CanonicalURL,
			StructuredData:  attrs.SEO.StructuredData,
		}
	}
	return page, nil
}

// Navigation reads the navigation single type with its items populated.
func (s *StrapiProvider) Navigation(ctx context.Context) ([]models.MenuItem, error) {
	q := url.Values{}
	q.Set("populate[items][populate][page]", "true")
	q.Set("populate[items][populate][children][populate]", "*")

	var resp struct {
		Data *struct {
			Attributes struct {
				Items []strapiMenuItem `json:"items"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := s.get(ctx, "/api/navigation", q, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Attributes.Items) == 0 {
		return nil, nil
	}
	return convertMenu(resp.Data.Attributes.Items), nil
}

func convertMenu(items []strapiMenuItem) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(items))
	for _, it := range items {
		m := models.MenuItem{
			ID:       it.ID,
			Label:    it.Label,
			URL:      it.URL,
			Target:   it.Target,
			IsButton: it.IsButton,
			Order:    it.Order,
		}
		if it.Page != nil && it.Page.Data != nil {
			m.PageSlug = it.Page.Data.Attributes.Slug
		}
		if len(it.Children) > 0 {
			m.Children = convertMenu(it.Children)
		}
		out = append(out, m)
	}
	return out
}

func (s *StrapiProvider) get(ctx context.Context, path string, query url.Values, out any) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("strapi %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("strapi %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("strapi %s: decode: %w", path, err)
	}
	return nil
}
