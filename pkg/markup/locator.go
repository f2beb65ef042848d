package markup

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Locator describes how to find candidate elements: either a CSS selector or a tag
// filtered by a fuzzy class substring.
type Locator struct {
	CSS string

	Tag           string
	ClassContains string
}

func CSS(selector string) Locator {
	return Locator{CSS: selector}
}

func FuzzyClass(tag, fragment string) Locator {
	return Locator{Tag: tag, ClassContains: fragment}
}

func (l Locator) Find(root *goquery.Selection) *goquery.Selection {
	if l.ClassContains != "" {
		return FindClassContains(root, l.Tag, l.ClassContains)
	}
	return root.Find(l.CSS)
}

func (l Locator) String() string {
	if l.ClassContains != "" {
		return fmt.Sprintf("%s[class*=%q]", l.Tag, l.ClassContains)
	}
	return l.CSS
}

// FirstMatch applies locators in order and returns the first non-empty selection
// together with the locator that produced it.
func FirstMatch(root *goquery.Selection, locators []Locator) (*goquery.Selection, Locator, bool) {
	for _, l := range locators {
		if found := l.Find(root); found.Length() > 0 {
			return found, l, true
		}
	}
	return root.Slice(0, 0), Locator{}, false
}
