package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// pageSize is the largest page the query endpoint returns.
const pageSize = 100

type queryResult struct {
	resp *notionapi.DatabaseQueryResponse
	err  error
}

// QueryAll returns every page of the database matching filter (nil for all).
// While one batch is appended the request for the next is already in flight.
func QueryAll(ctx context.Context, c Client, dbID string, filter notionapi.Filter) ([]notionapi.Page, error) {
	fetch := func(cursor notionapi.Cursor) <-chan queryResult {
		ch := make(chan queryResult, 1)
		go func() {
			resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
				Filter:      filter,
				StartCursor: cursor,
				PageSize:    pageSize,
			})
			ch <- queryResult{resp, err}
		}()
		return ch
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "notion: query all")
	}
	var pages []notionapi.Page
	next := fetch("")
	for batch := 1; ; batch++ {
		var r queryResult
		select {
		case r = <-next:
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "notion: query all")
		}
		if r.err != nil {
			return nil, eris.Wrapf(r.err, "notion: query batch %d", batch)
		}
		if !r.resp.HasMore {
			return append(pages, r.resp.Results...), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "notion: query all")
		}
		next = fetch(r.resp.NextCursor)
		pages = append(pages, r.resp.Results...)
	}
}

// PagesByURL indexes page IDs by the url property prop. Pages with no value
// are left out.
func PagesByURL(ctx context.Context, c Client, dbID, prop string) (map[string]string, error) {
	pages, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "notion: index pages by url")
	}
	out := make(map[string]string, len(pages))
	for _, p := range pages {
		if u := urlValue(p.Properties[prop]); u != "" {
			out[u] = p.ID.String()
		}
	}
	return out, nil
}

// urlValue reads a url property. Decoded pages hold pointers, pages built in
// code hold values.
func urlValue(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.URLProperty:
		return v.URL
	case notionapi.URLProperty:
		return v.URL
	}
	return ""
}
