// Package extract reduces fetched markup to a stable, comparable
// representation of the page's meaningful region.
//
// Normalize picks the designated main-content region (<main>, then
// [role=main], then <body>) and renders it with sorted attributes, no
// comments or scripts, and collapsed whitespace, so that a re-fetch of an
// unchanged page yields byte-identical output. It never fails: malformed
// markup goes through the HTML5 parser's error recovery, and input with no
// identifiable region is returned trimmed as is.
package extract

import (
	"bytes"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// regionSelectors are tried in order; the first non-empty match wins.
var regionSelectors = []string{"main", "[role=main]", "body"}

// Normalize returns the normalized content of raw markup.
func Normalize(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	region := selectRegion(doc)
	if region == nil {
		return strings.TrimSpace(raw)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, region); err != nil {
		return strings.TrimSpace(raw)
	}
	return buf.String()
}

// selectRegion returns the first candidate region that still has content
// once cleaned. An empty <main> falls through to the next selector.
func selectRegion(doc *goquery.Document) *html.Node {
	for _, sel := range regionSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		n := s.Get(0)
		clean(n, false)
		if n.FirstChild != nil {
			return n
		}
	}
	return nil
}

// dropped lists elements whose content never carries page meaning.
var dropped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// clean rewrites the subtree rooted at n in place.
func clean(n *html.Node, preformatted bool) {
	if n.Type == html.ElementNode {
		sortAttrs(n)
		if n.DataAtom == atom.Pre || n.DataAtom == atom.Textarea {
			preformatted = true
		}
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && dropped[c.DataAtom]:
			n.RemoveChild(c)
		case c.Type == html.TextNode && !preformatted:
			c.Data = collapseSpace(c.Data)
			if strings.TrimSpace(c.Data) == "" {
				n.RemoveChild(c)
			}
		default:
			clean(c, preformatted)
		}
		c = next
	}
}

func sortAttrs(n *html.Node) {
	if len(n.Attr) < 2 {
		return
	}
	sort.SliceStable(n.Attr, func(i, j int) bool {
		if n.Attr[i].Namespace != n.Attr[j].Namespace {
			return n.Attr[i].Namespace < n.Attr[j].Namespace
		}
		return n.Attr[i].Key < n.Attr[j].Key
	})
}

// collapseSpace replaces each whitespace run with a single space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
