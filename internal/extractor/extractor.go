// Package extractor reads product listings out of a rendered catalogue page.
// It is purely a DOM read: no browser control, no side effects.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// Selectors locates product containers and their fields within a page.
// These track the retailer's markup and are the first thing to check when
// extraction starts coming back empty.
type Selectors struct {
	Container       string `mapstructure:"container"`
	ProductIDAttr   string `mapstructure:"product_id_attr"`
	Name            string `mapstructure:"name"`
	Price           string `mapstructure:"price"`
	RegularPrice    string `mapstructure:"regular_price"`
	SalePrice       string `mapstructure:"sale_price"`
	Saving          string `mapstructure:"saving"`
	OptionSuffix    string `mapstructure:"option_suffix"`
	ComparativeText string `mapstructure:"comparative_text"`
	SaleOption      string `mapstructure:"sale_option"`
	OfferValidText  string `mapstructure:"offer_valid_text"`
}

// DefaultSelectors returns the selector set for the current catalogue markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:       "div.catalogue-product",
		ProductIDAttr:   "data-product-id",
		Name:            ".product-name",
		Price:           ".price-display",
		RegularPrice:    ".regular-price",
		SalePrice:       ".sale-price",
		Saving:          ".savings-text",
		OptionSuffix:    ".option-suffix",
		ComparativeText: ".comparative-text",
		SaleOption:      ".sale-option",
		OfferValidText:  ".offer-valid-dates",
	}
}

// Extractor turns rendered HTML into normalized product records.
type Extractor struct {
	sel Selectors
}

// New builds an Extractor over the given selectors.
func New(sel Selectors) *Extractor {
	if sel.Container == "" {
		sel = DefaultSelectors()
	}
	return &Extractor{sel: sel}
}

// Extract parses the page HTML and returns one record per product container.
// A page with no containers (or unparseable HTML) yields an empty slice: a
// legitimately empty category page is a normal outcome, not an error. Each
// field is read independently; a missing field defaults to "NA" without
// affecting the other fields or the other products.
func (e *Extractor) Extract(html string) []catalogue.ProductRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return e.ExtractDocument(doc)
}

// ExtractDocument extracts records from an already-parsed document.
func (e *Extractor) ExtractDocument(doc *goquery.Document) []catalogue.ProductRecord {
	var records []catalogue.ProductRecord
	doc.Find(e.sel.Container).Each(func(_ int, container *goquery.Selection) {
		records = append(records, e.extractOne(container))
	})
	return records
}

func (e *Extractor) extractOne(container *goquery.Selection) catalogue.ProductRecord {
	return catalogue.ProductRecord{
		ProductID:       attrOrNA(container, e.sel.ProductIDAttr),
		Name:            textOrNA(container, e.sel.Name),
		Price:           textOrNA(container, e.sel.Price),
		RegularPrice:    textOrNA(container, e.sel.RegularPrice),
		SalePrice:       textOrNA(container, e.sel.SalePrice),
		Saving:          textOrNA(container, e.sel.Saving),
		OptionSuffix:    textOrNA(container, e.sel.OptionSuffix),
		ComparativeText: textOrNA(container, e.sel.ComparativeText),
		SaleOption:      textOrNA(container, e.sel.SaleOption),
		OfferValidText:  textOrNA(container, e.sel.OfferValidText),
	}
}

// textOrNA reads the trimmed text of the first match under the container,
// collapsing "not found" and "empty" to the NA default.
func textOrNA(container *goquery.Selection, selector string) string {
	if selector == "" {
		return catalogue.FieldNA
	}
	match := container.Find(selector).First()
	if match.Length() == 0 {
		return catalogue.FieldNA
	}
	text := strings.TrimSpace(match.Text())
	if text == "" {
		return catalogue.FieldNA
	}
	return text
}

func attrOrNA(container *goquery.Selection, attr string) string {
	if attr == "" {
		return catalogue.FieldNA
	}
	val, ok := container.Attr(attr)
	if !ok || strings.TrimSpace(val) == "" {
		return catalogue.FieldNA
	}
	return strings.TrimSpace(val)
}
