package naukri

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
)

// Timeouts for page loads.
const (
	listingTimeout = 60 * time.Second
	detailTimeout  = 30 * time.Second
	detailSettle   = time.Second
)

// RodOptions configures the Chrome instance behind a RodBrowser.
type RodOptions struct {
	Headless bool
	// Bin is the Chrome binary. Empty lets rod find or download one.
	Bin string
	// ScrollWait is how long to wait after scrolling a results page so lazy
	// cards can render.
	ScrollWait time.Duration
}

// RodBrowser implements Browser with go-rod.
type RodBrowser struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	listing    *rod.Page
	scrollWait time.Duration
}

// NewRodBrowser launches Chrome and opens the page used for result lists.
func NewRodBrowser(ctx context.Context, opts RodOptions) (*RodBrowser, error) {
	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "naukri: launch browser")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, eris.Wrap(err, "naukri: connect browser")
	}

	listing, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, eris.Wrap(err, "naukri: open page")
	}

	wait := opts.ScrollWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &RodBrowser{launcher: l, browser: browser, listing: listing, scrollWait: wait}, nil
}

// Cards implements Browser.
func (b *RodBrowser) Cards(ctx context.Context, pageURL string) ([]Card, error) {
	ctx, cancel := context.WithTimeout(ctx, listingTimeout)
	defer cancel()
	page := b.listing.Context(ctx)

	if err := page.Navigate(pageURL); err != nil {
		return nil, eris.Wrapf(err, "naukri: navigate %s", pageURL)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, eris.Wrapf(err, "naukri: load %s", pageURL)
	}
	if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return nil, eris.Wrap(err, "naukri: scroll")
	}
	if err := sleep(ctx, b.scrollWait); err != nil {
		return nil, err
	}

	els, err := page.Elements(CardSelector)
	if err != nil {
		return nil, eris.Wrap(err, "naukri: query cards")
	}

	cards := make([]Card, 0, len(els))
	for _, el := range els {
		var card Card
		if title := first(el, TitleSelector); title != nil {
			card.Title = text(title)
			if href, err := title.Attribute("href"); err == nil && href != nil {
				card.Link = *href
			}
		}
		if loc := first(el, LocationSelector); loc != nil {
			card.Location = text(loc)
		}
		if company := first(el, CompanySelector); company != nil {
			card.Company = text(company)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// About implements Browser. Each detail page gets its own tab.
func (b *RodBrowser) About(ctx context.Context, link string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, detailTimeout)
	defer cancel()

	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: link})
	if err != nil {
		return "", eris.Wrapf(err, "naukri: open %s", link)
	}
	defer page.Close() //nolint:errcheck

	if err := page.WaitLoad(); err != nil {
		return "", eris.Wrapf(err, "naukri: load %s", link)
	}
	if err := sleep(ctx, detailSettle); err != nil {
		return "", err
	}

	for _, sel := range AboutSelectors {
		els, err := page.Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		if t := text(els.First()); strings.TrimSpace(t) != "" {
			return t, nil
		}
	}
	return "", nil
}

// Close shuts Chrome down.
func (b *RodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return eris.Wrap(err, "naukri: close browser")
}

// first returns the first descendant of el matching selector without
// waiting for it to appear.
func first(el *rod.Element, selector string) *rod.Element {
	els, err := el.Elements(selector)
	if err != nil || els.Empty() {
		return nil
	}
	return els.First()
}

func text(el *rod.Element) string {
	t, err := el.Text()
	if err != nil {
		return ""
	}
	return t
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "naukri: wait")
	case <-t.C:
		return nil
	}
}
