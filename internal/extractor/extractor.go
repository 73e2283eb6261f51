package extractor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the query language of a Locator.
type Kind string

const (
	KindCSS   Kind = "css"
	KindXPath Kind = "xpath"
)

// Locator is one way of finding an element on the dashboard.
type Locator struct {
	Kind Kind
	Expr string
}

func CSS(expr string) Locator   { return Locator{Kind: KindCSS, Expr: expr} }
func XPath(expr string) Locator { return Locator{Kind: KindXPath, Expr: expr} }

func (l Locator) String() string {
	return fmt.Sprintf("%s(%s)", l.Kind, l.Expr)
}

// Finder returns the trimmed text of the first element a locator selects.
// found is false when nothing matched.
type Finder interface {
	Text(ctx context.Context, loc Locator) (text string, found bool, err error)
}

// Chain is an ordered list of fallback locators for a single logical field.
type Chain []Locator

// Match is the outcome of a successful chain resolution.
type Match struct {
	Locator Locator
	Index   int // position of Locator in the chain
	Text    string
	Value   int
}

// Resolve evaluates the locators in order and returns the first one whose
// element text parses as a count. Finder errors count as a miss; they are
// returned alongside so callers can log them.
func (c Chain) Resolve(ctx context.Context, f Finder) (Match, bool, []error) {
	var errs []error
	for i, loc := range c {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		text, found, err := f.Text(ctx, loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", loc, err))
			continue
		}
		if !found || text == "" {
			continue
		}
		n, ok := ParseCount(text)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: not a count: %q", loc, text))
			continue
		}
		return Match{Locator: loc, Index: i, Text: text, Value: n}, true, errs
	}
	return Match{}, false, errs
}

// ParseCount reads a non-negative integer from the start of text, the way the
// dashboard renders counts ("1,204", "42 nodes"). A comma is accepted as a
// group separator only between digits.
func ParseCount(text string) (int, bool) {
	s := strings.TrimSpace(text)
	digits := make([]byte, 0, len(s))
scan:
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isDigit(c):
			digits = append(digits, c)
		case c == ',' && len(digits) > 0 && i+1 < len(s) && isDigit(s[i+1]):
		default:
			break scan
		}
	}
	if len(digits) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
