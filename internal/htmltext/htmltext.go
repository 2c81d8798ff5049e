// Package htmltext extracts links and visible text from HTML documents.
package htmltext

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "htmltext: parse")
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML document held in memory.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Links returns the href of every anchor in document order.
func (d *Document) Links() []string {
	var links []string
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := attr(n, "href"); ok {
				links = append(links, href)
			}
		}
		return true
	})
	return links
}

// Title returns the trimmed contents of the first <title> element.
func (d *Document) Title() string {
	var title string
	walk(d.root, func(n *html.Node) bool {
		if title != "" {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(textOf(n))
			return false
		}
		return true
	})
	return title
}

// Text returns every visible text node, trimmed and joined by a single space.
// Script, style, noscript and template contents are skipped.
func (d *Document) Text() string {
	var parts []string
	walk(d.root, func(n *html.Node) bool {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return false
			}
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		return true
	})
	return strings.Join(parts, " ")
}

// walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

var employeesRe = regexp.MustCompile(`(?i)([\d,]+)\s+employees`)

// EmployeeCount finds the first "<n> employees" phrase in text and returns n.
func EmployeeCount(text string) (int, bool) {
	m := employeesRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
