package extractor

import (
	"context"
	"time"

	"github.com/go-rod/rod"
)

// textOf resolves a locator inside the page in a single evaluation. Reading
// textContent from JS avoids the visibility checks rod's Element.Text applies.
const textOf = `(kind, expr) => {
	let el = null;
	if (kind === 'xpath') {
		el = document.evaluate(expr, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	} else {
		el = document.querySelector(expr);
	}
	return el ? el.textContent.trim() : null;
}`

// PageFinder evaluates locators against a live rod page.
type PageFinder struct {
	page    *rod.Page
	timeout time.Duration
}

// NewPageFinder creates a PageFinder. Each lookup is bounded by timeout.
func NewPageFinder(page *rod.Page, timeout time.Duration) *PageFinder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PageFinder{page: page, timeout: timeout}
}

func (f *PageFinder) Text(ctx context.Context, loc Locator) (string, bool, error) {
	res, err := f.page.Context(ctx).Timeout(f.timeout).Eval(textOf, string(loc.Kind), loc.Expr)
	if err != nil {
		return "", false, err
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}
