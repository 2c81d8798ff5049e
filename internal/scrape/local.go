package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/htmltext"
)

// DefaultUserAgent is sent on every direct fetch.
const DefaultUserAgent = "Mozilla/5.0"

// maxBody caps how much of a page is read.
const maxBody = 2 << 20

// LocalScraper fetches HTML over net/http and extracts text and links. Only
// a 200 response counts as a page.
type LocalScraper struct {
	client    *http.Client
	userAgent string
}

// LocalOption configures a LocalScraper.
type LocalOption func(*LocalScraper)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) LocalOption {
	return func(l *LocalScraper) {
		if d > 0 {
			l.client.Timeout = d
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) LocalOption {
	return func(l *LocalScraper) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

// NewLocalScraper creates a LocalScraper with a 10s timeout.
func NewLocalScraper(opts ...LocalOption) *LocalScraper {
	l := &LocalScraper{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: DefaultUserAgent,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Name implements Scraper.
func (l *LocalScraper) Name() string { return "local_http" }

// Scrape implements Scraper.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: targetURL, StatusCode: resp.StatusCode}
	}

	doc, err := htmltext.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse html")
	}

	return &Page{
		URL:        targetURL,
		Title:      doc.Title(),
		Text:       doc.Text(),
		Links:      doc.Links(),
		StatusCode: resp.StatusCode,
		Source:     l.Name(),
	}, nil
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scrape: status %d for %s", e.StatusCode, e.URL)
}
