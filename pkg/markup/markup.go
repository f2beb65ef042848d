// Package markup turns raw page markup into a navigable goquery document and
// provides the text and class helpers the extractors rely on.
package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Parse never fails: malformed or empty input yields an empty document.
func Parse(raw string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Empty()
	}
	return doc
}

func Empty() *goquery.Document {
	return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
}

// Text returns the text of the first node in sel with every text fragment trimmed
// and concatenated without separators, so "<b> R$ </b> <i>19,90</i>" reads "R$19,90".
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	collectText(sel.Nodes[0], &b)
	return b.String()
}

func collectText(node *html.Node, b *strings.Builder) {
	if node.Type == html.TextNode {
		b.WriteString(strings.TrimSpace(node.Data))
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, b)
	}
}

// ClassContains reports whether the raw class attribute of the first node contains
// fragment as a plain substring. The match is deliberately loose: "a-section" also
// matches "a-section-wrapper", and a multi-class fragment only matches when the
// classes appear in that exact order.
func ClassContains(sel *goquery.Selection, fragment string) bool {
	class, ok := sel.Attr("class")
	return ok && class != "" && strings.Contains(class, fragment)
}

// FindClassContains returns the tag elements under root whose class attribute
// contains fragment.
func FindClassContains(root *goquery.Selection, tag, fragment string) *goquery.Selection {
	return root.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return ClassContains(s, fragment)
	})
}

// ClosestClassContains walks up from sel and returns the nearest tag ancestor whose
// class attribute contains fragment, or an empty selection.
func ClosestClassContains(sel *goquery.Selection, tag, fragment string) *goquery.Selection {
	return sel.ParentsFiltered(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return ClassContains(s, fragment)
	}).First()
}
