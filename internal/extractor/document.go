package extractor

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DocumentFinder evaluates locators against a static HTML document, such as a
// saved copy of the dashboard. goquery has no XPath engine, so XPath locators
// never match and the chain falls through to its CSS entries.
type DocumentFinder struct {
	doc *goquery.Document
}

func NewDocumentFinder(r io.Reader) (*DocumentFinder, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &DocumentFinder{doc: doc}, nil
}

func (f *DocumentFinder) Text(_ context.Context, loc Locator) (string, bool, error) {
	if loc.Kind != KindCSS {
		return "", false, nil
	}
	// invalid selectors match nothing in goquery
	sel := f.doc.Find(loc.Expr).First()
	if sel.Length() == 0 {
		return "", false, nil
	}
	return strings.TrimSpace(sel.Text()), true, nil
}
