package models

import "encoding/json"

// Page is a CMS page. Sections are passed through untouched; their shape is
// owned by the CMS and the frontend renderers.
type Page struct {
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Layout      string            `json:"layout"`
	Sections    []json.RawMessage `json:"sections"`
	SEO         SEO               `json:"seo"`
	PublishedAt string            `json:"publishedAt,omitempty"`
}

type SEO struct {
	MetaTitle       string          `json:"metaTitle"`
	MetaDescription string          `json:"metaDescription"`
	Keywords        string          `json:"keywords,omitempty"`
	MetaRobots      string          `json:"metaRobots,omitempty"`
	CanonicalURL    string          `json:"canonicalURL,omitempty"`
	StructuredData  json.RawMessage `json:"structuredData,omitempty"`
}

// MenuItem is one node of the site navigation tree.
type MenuItem struct {
	ID       int64      `json:"id"`
	Label    string     `json:"label"`
	URL      string     `json:"url"`
	PageSlug string     `json:"page,omitempty"`
	Target   string     `json:"target,omitempty"`
	IsButton bool       `json:"isButton"`
	Order    int        `json:"order"`
	Children []MenuItem `json:"children,omitempty"`
}
