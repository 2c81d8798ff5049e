package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

func TestScrape_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://acme.io", req.URL)
		assert.Equal(t, []string{"markdown", "links"}, req.Formats)

		_, _ = w.Write([]byte(`{"success":true,"data":{
			"markdown":"# Acme",
			"links":["https://www.linkedin.com/company/acme"],
			"metadata":{"title":"Acme","sourceURL":"https://acme.io","statusCode":200}}}`))
	}))
	defer srv.Close()

	c := NewClient("fc-key", WithBaseURL(srv.URL))
	resp, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://acme.io"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "# Acme", resp.Data.Markdown)
	assert.Equal(t, []string{"https://www.linkedin.com/company/acme"}, resp.Data.Links)
	assert.Equal(t, 200, resp.Data.Metadata.StatusCode)
}

func TestScrape_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"credits"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://a.io"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.False(t, resilience.IsTransient(err))
}

func TestScrape_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"ok"}}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRetry(resilience.RetryConfig{
		MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond,
	}))
	resp, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://a.io", Formats: []string{"markdown"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data.Markdown)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScrape_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Scrape(context.Background(), ScrapeRequest{URL: "https://a.io"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
