// Package scrape fetches company web pages, falling back from a plain HTTP
// GET to hosted renderers when a site blocks or fails.
package scrape

import (
	"context"
)

// Page is a fetched page reduced to what the pipeline reads: visible text and
// outgoing links.
type Page struct {
	URL        string
	Title      string
	Text       string
	Links      []string
	StatusCode int
	Source     string // "local_http", "jina", "firecrawl"
}

// Scraper fetches a single URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
}
