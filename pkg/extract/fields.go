package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"offer-hunter/pkg/fn"
	"offer-hunter/pkg/jsonvalue"
	"offer-hunter/pkg/markup"
	"offer-hunter/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const currencyMarker = "R$ "

// Numeric prices outside these bounds are rejected before formatting, which
// would otherwise expand the literal digit by digit.
const (
	maxPriceLiteral  = 64
	maxPriceDigits   = 15
	minPriceExponent = -18
)

// Origin is what a record knows about the page it came from.
type Origin struct {
	Domain    string
	PageURL   string
	FetchedAt time.Time
}

// DataKeys lists, per field, the candidate keys of an embedded-data record in
// priority order.
type DataKeys struct {
	Name        []string
	Price       []string
	Installment []string
	Link        []string
	Available   []string
}

var DefaultDataKeys = DataKeys{
	Name:        []string{"title", "name", "productTitle"},
	Price:       []string{"price", "bestPrice", "priceValue", "sellingPrice"},
	Installment: []string{"installment", "installments"},
	Link:        []string{"url", "permalink", "link"},
	Available:   []string{"available", "availability", "inStock"},
}

// nestedPriceKeys resolve price objects such as {"bestPrice": 1999, "fullPrice": 2199}.
var nestedPriceKeys = append(append([]string(nil), DefaultDataKeys.Price...), "value")

// MarkupFields lists, per field, candidate CSS selectors relative to one product
// container, in priority order.
type MarkupFields struct {
	Name        []string
	Price       []string
	Installment []string
	Link        []string
	Unavailable []string
}

// Lookup returns the value of the first candidate key that is present and not null.
func Lookup(record jsonvalue.Value, keys []string) (jsonvalue.Value, bool) {
	for _, k := range keys {
		if v, ok := record.Get(k); ok && !v.IsNull() {
			return v, true
		}
	}
	return jsonvalue.Value{}, false
}

// FormatPrice renders a numeric literal in the display style "R$ 19,90".
// Literals with more than 15 integer digits or an exponent below -18 are not
// prices and yield false.
func FormatPrice(literal string) (string, bool) {
	if len(literal) > maxPriceLiteral {
		return "", false
	}
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return "", false
	}
	if d.Exponent() < minPriceExponent || int64(d.NumDigits())+int64(d.Exponent()) > maxPriceDigits {
		return "", false
	}
	return currencyMarker + strings.Replace(d.StringFixed(2), ".", ",", 1), true
}

// PriceText normalizes a price value: numbers are formatted, text passes through
// unchanged, and a nested price object is resolved one level down.
func PriceText(v jsonvalue.Value) string {
	return priceText(v, 1)
}

func priceText(v jsonvalue.Value, nesting int) string {
	switch v.Kind() {
	case jsonvalue.Number:
		n, _ := v.Number()
		s, _ := FormatPrice(n)
		return s
	case jsonvalue.Text:
		s, _ := v.Text()
		return s
	case jsonvalue.Mapping:
		if nesting == 0 {
			return ""
		}
		inner, ok := Lookup(v, nestedPriceKeys)
		if !ok {
			return ""
		}
		return priceText(inner, nesting-1)
	}
	return ""
}

// InstallmentText renders {"count":10,"value":9.9} as "10x de R$ 9,90". Anything
// without both a truthy count and a truthy value yields "".
func InstallmentText(v jsonvalue.Value) string {
	if v.Kind() != jsonvalue.Mapping {
		return ""
	}
	count := firstTruthy(v, "count", "quantity")
	value := firstTruthy(v, "value", "amount")
	if !count.Truthy() || !value.Truthy() {
		return ""
	}

	n, ok := count.Scalar()
	if !ok {
		return ""
	}
	var amount string
	switch value.Kind() {
	case jsonvalue.Number:
		literal, _ := value.Number()
		amount, _ = FormatPrice(literal)
	case jsonvalue.Text:
		amount, _ = value.Text()
	}
	if amount == "" {
		return ""
	}
	return fmt.Sprintf("%sx de %s", n, amount)
}

// firstTruthy returns the first truthy value among keys, or the last one looked at.
func firstTruthy(record jsonvalue.Value, keys ...string) jsonvalue.Value {
	var last jsonvalue.Value
	for _, k := range keys {
		last, _ = record.Get(k)
		if last.Truthy() {
			return last
		}
	}
	return last
}

// Available defaults to true when no indicator was found.
func Available(v jsonvalue.Value, present bool) bool {
	if !present {
		return true
	}
	return v.Truthy()
}

// AbsoluteURL resolves a relative link against domain; an empty link falls back
// to the page being scraped.
func AbsoluteURL(domain, link, fallback string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return fallback
	}
	if strings.HasPrefix(link, "http") {
		return link
	}
	base, err := url.Parse(domain)
	if err != nil {
		return domain + link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return domain + link
	}
	return base.ResolveReference(ref).String()
}

type draft struct {
	name        string
	price       string
	installment string
	available   bool
	link        string
}

// assemble applies the validity gate: no offer without a name and a price.
func assemble(d draft, o Origin) fn.Result[models.Offer] {
	name := strings.TrimSpace(d.name)
	if name == "" {
		return fn.Err[models.Offer](fmt.Errorf("%w: no name", models.ErrIncompleteOffer))
	}
	if strings.TrimSpace(d.price) == "" {
		return fn.Err[models.Offer](fmt.Errorf("%w: no price for %q", models.ErrIncompleteOffer, name))
	}
	return fn.Ok(models.Offer{
		Name:             name,
		PriceNow:         d.price,
		PriceInstallment: d.installment,
		Available:        d.available,
		URL:              AbsoluteURL(o.Domain, d.link, o.PageURL),
		FetchedAt:        o.FetchedAt,
	})
}

// FromData builds an offer out of one embedded-data record.
func FromData(record jsonvalue.Value, keys DataKeys, o Origin) fn.Result[models.Offer] {
	if record.Kind() != jsonvalue.Mapping {
		return fn.Err[models.Offer](fmt.Errorf("%w: record is a %s", models.ErrIncompleteOffer, record.Kind()))
	}

	var d draft
	if v, ok := Lookup(record, keys.Name); ok {
		d.name, _ = v.Scalar()
	}
	if v, ok := Lookup(record, keys.Price); ok {
		d.price = PriceText(v)
	}
	if v, ok := Lookup(record, keys.Installment); ok {
		d.installment = InstallmentText(v)
	}
	if v, ok := Lookup(record, keys.Link); ok {
		d.link, _ = v.Text()
	}
	avail, present := Lookup(record, keys.Available)
	d.available = Available(avail, present)

	return assemble(d, o)
}

// FromMarkup builds an offer out of one product container element.
func FromMarkup(card *goquery.Selection, f MarkupFields, o Origin) fn.Result[models.Offer] {
	d := draft{
		name:        firstText(card, f.Name),
		price:       firstText(card, f.Price),
		installment: firstText(card, f.Installment),
		link:        firstAttr(card, f.Link, "href"),
		available:   !anyMatch(card, f.Unavailable),
	}
	return assemble(d, o)
}

func firstText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := markup.Text(card.Find(sel).First()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(card *goquery.Selection, selectors []string, attr string) string {
	for _, sel := range selectors {
		if v, ok := card.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func anyMatch(card *goquery.Selection, selectors []string) bool {
	for _, sel := range selectors {
		if card.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}
