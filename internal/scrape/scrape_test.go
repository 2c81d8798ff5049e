package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/firecrawl"
	"github.com/sells-group/leadgen-cli/pkg/jina"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

const companyHTML = `<html><head><title>Acme Software</title><style>.x{}</style></head>
<body><h1>We build cloud tools</h1>
<a href="https://www.linkedin.com/company/acme?trk=foot">LinkedIn</a>
<script>var tracking = 1;</script></body></html>`

func TestLocalScraper_Page(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(companyHTML))
	}))
	defer srv.Close()

	page, err := NewLocalScraper().Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "local_http", page.Source)
	assert.Equal(t, "Acme Software", page.Title)
	assert.Contains(t, page.Text, "We build cloud tools")
	assert.NotContains(t, page.Text, "tracking")
	assert.Equal(t, []string{"https://www.linkedin.com/company/acme?trk=foot"}, page.Links)
}

func TestLocalScraper_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(companyHTML))
	}))
	defer srv.Close()

	_, err := NewLocalScraper().Scrape(context.Background(), srv.URL)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLocalScraper_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewLocalScraper(WithTimeout(20*time.Millisecond), WithUserAgent("")).Scrape(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		body   string
		want   BlockType
	}{
		{"clean", 200, nil, "<html><body>hello</body></html>", BlockNone},
		{"cloudflare header", 403, map[string]string{"Cf-Ray": "1"}, "denied", BlockCloudflare},
		{"cloudflare body", 200, nil, "Checking your browser before accessing", BlockCloudflare},
		{"captcha", 200, nil, `<div class="g-recaptcha"></div>`, BlockCaptcha},
		{"linkedin 999", 999, nil, "", BlockLinkedIn},
		{"linkedin authwall", 200, nil, `<a href="https://www.linkedin.com/authwall">`, BlockLinkedIn},
		{"js shell", 200, nil, "<noscript>Please enable JavaScript</noscript>", BlockJSShell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			for k, v := range tt.header {
				resp.Header.Set(k, v)
			}
			blocked, kind := DetectBlock(resp, []byte(tt.body))
			assert.Equal(t, tt.want != BlockNone, blocked)
			assert.Equal(t, tt.want, kind)
		})
	}

	blocked, _ := DetectBlock(nil, nil)
	assert.False(t, blocked)
}

type fakeScraper struct {
	name  string
	page  *Page
	err   error
	calls atomic.Int32
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) Scrape(_ context.Context, u string) (*Page, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.page
	p.URL = u
	return &p, nil
}

func TestChain_FallsThrough(t *testing.T) {
	local := &fakeScraper{name: "local_http", err: errors.New("blocked")}
	hosted := &fakeScraper{name: "jina", page: &Page{Text: "rendered", Source: "jina"}}
	c := NewChain(local, hosted)

	page, err := c.Scrape(context.Background(), "https://acme.io")
	require.NoError(t, err)
	assert.Equal(t, "jina", page.Source)
	assert.Equal(t, []string{"local_http", "jina"}, c.Names())
}

func TestChain_FirstWins(t *testing.T) {
	local := &fakeScraper{name: "local_http", page: &Page{Text: "direct"}}
	hosted := &fakeScraper{name: "jina", page: &Page{Text: "rendered"}}

	page, err := NewChain(local, hosted).Scrape(context.Background(), "https://acme.io")
	require.NoError(t, err)
	assert.Equal(t, "direct", page.Text)
	assert.Zero(t, hosted.calls.Load())
}

func TestChain_AllFail(t *testing.T) {
	c := NewChain(&fakeScraper{name: "a", err: errors.New("one")}, &fakeScraper{name: "b", err: errors.New("two")})
	_, err := c.Scrape(context.Background(), "https://acme.io")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "two")

	_, err = NewChain().Scrape(context.Background(), "https://acme.io")
	assert.Error(t, err)
}

func TestChain_SkipsDownloads(t *testing.T) {
	s := &fakeScraper{name: "a", page: &Page{}}
	c := NewChain(s)
	for _, u := range []string{"https://acme.io/brochure.PDF", "mailto:hi@acme.io", "::bad"} {
		_, err := c.Scrape(context.Background(), u)
		assert.Error(t, err, u)
	}
	assert.Zero(t, s.calls.Load())
}

func TestJinaAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"title":"Acme","content":"Acme builds tools","usage":{"tokens":1000000}}}`))
	}))
	defer srv.Close()

	ledger := cost.NewLedger()
	calc := cost.NewCalculator(cost.Rates{Jina: cost.JinaRate{PerMTok: 0.02}})
	a := NewJinaAdapter(jina.NewClient("k", jina.WithBaseURL(srv.URL)), nil, calc, ledger)

	page, err := a.Scrape(context.Background(), "https://acme.io")
	require.NoError(t, err)
	assert.Equal(t, "Acme builds tools", page.Text)
	assert.Equal(t, "jina", page.Source)
	assert.InDelta(t, 0.02, ledger.Total(), 1e-9)
}

func TestJinaAdapter_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"content":"   "}}`))
	}))
	defer srv.Close()

	a := NewJinaAdapter(jina.NewClient("k", jina.WithBaseURL(srv.URL)), nil, nil, nil)
	_, err := a.Scrape(context.Background(), "https://acme.io")
	assert.Error(t, err)
}

func TestJinaAdapter_BreakerOpen(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker("jina", resilience.BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	a := NewJinaAdapter(jina.NewClient("k", jina.WithBaseURL(srv.URL)), breaker, nil, nil)

	_, err := a.Scrape(context.Background(), "https://a.io")
	require.Error(t, err)
	_, err = a.Scrape(context.Background(), "https://b.io")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFirecrawlAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Acme","links":["https://linkedin.com/company/acme"],"metadata":{"title":"Acme","statusCode":200}}}`))
	}))
	defer srv.Close()

	ledger := cost.NewLedger()
	calc := cost.NewCalculator(cost.Rates{Firecrawl: cost.PerQueryRate{PerQuery: 0.001}})
	a := NewFirecrawlAdapter(firecrawl.NewClient("k", firecrawl.WithBaseURL(srv.URL)), nil, calc, ledger)

	page, err := a.Scrape(context.Background(), "https://acme.io")
	require.NoError(t, err)
	assert.Equal(t, "firecrawl", page.Source)
	assert.Equal(t, []string{"https://linkedin.com/company/acme"}, page.Links)
	assert.Equal(t, 1, ledger.Calls("firecrawl"))
}

func TestFirecrawlAdapter_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not successful", `{"success":false}`},
		{"upstream 404", `{"success":true,"data":{"metadata":{"statusCode":404}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewFirecrawlAdapter(firecrawl.NewClient("k", firecrawl.WithBaseURL(srv.URL)), nil, nil, nil)
			_, err := a.Scrape(context.Background(), "https://acme.io")
			assert.Error(t, err)
		})
	}
}
