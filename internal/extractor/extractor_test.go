package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFinder struct {
	texts map[Locator]string
	errs  map[Locator]error
	calls []Locator
}

func (f *fakeFinder) Text(_ context.Context, loc Locator) (string, bool, error) {
	f.calls = append(f.calls, loc)
	if err, ok := f.errs[loc]; ok {
		return "", false, err
	}
	text, ok := f.texts[loc]
	return text, ok, nil
}

func TestChainFirstMatchWins(t *testing.T) {
	primary := CSS(".a")
	second := XPath("//b")
	third := XPath("//c")
	f := &fakeFinder{texts: map[Locator]string{second: "17", third: "99"}}

	m, ok, errs := Chain{primary, second, third}.Resolve(context.Background(), f)
	require.True(t, ok)
	require.Empty(t, errs)
	require.Equal(t, 17, m.Value)
	require.Equal(t, 1, m.Index)
	require.Equal(t, second, m.Locator)
	require.Equal(t, []Locator{primary, second}, f.calls)
}

func TestChainNoMatch(t *testing.T) {
	f := &fakeFinder{texts: map[Locator]string{}}
	_, ok, errs := Chain{CSS(".a"), XPath("//b"), XPath("//c")}.Resolve(context.Background(), f)
	require.False(t, ok)
	require.Empty(t, errs)
}

func TestChainSkipsErrorsAndNonNumericText(t *testing.T) {
	bad := CSS(".label")
	broken := XPath("//[")
	good := CSS(".count")
	f := &fakeFinder{
		texts: map[Locator]string{bad: "Nodes", good: "8"},
		errs:  map[Locator]error{broken: errors.New("syntax error")},
	}

	m, ok, errs := Chain{bad, broken, good}.Resolve(context.Background(), f)
	require.True(t, ok)
	require.Equal(t, 8, m.Value)
	require.Len(t, errs, 2)
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFinder{texts: map[Locator]string{CSS(".a"): "1"}}
	_, ok, errs := Chain{CSS(".a")}.Resolve(ctx, f)
	require.False(t, ok)
	require.ErrorIs(t, errs[0], context.Canceled)
	require.Empty(t, f.calls)
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{"  42\n", 42, true},
		{"1,204", 1204, true},
		{"42 nodes", 42, true},
		{"7,", 7, true},
		{"", 0, false},
		{"-3", 0, false},
		{"n/a", 0, false},
		{",12", 0, false},
		{"99999999999999999999999", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseCount(c.in)
		require.Equal(t, c.ok, ok, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

const page = `<html><body><div id="root"><div>
<div class="Chains"><div class="Chains-chain Chains-chain-selected"><span class="Chains-node-count">42</span></div>
<div class="Chains-chain"><span class="Chains-node-count">7</span></div></div>
</div></div></body></html>`

func TestDocumentFinder(t *testing.T) {
	f, err := NewDocumentFinder(strings.NewReader(page))
	require.NoError(t, err)

	text, found, err := f.Text(context.Background(), CSS(".Chains-chain-selected .Chains-node-count"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "42", text)

	_, found, err = f.Text(context.Background(), XPath("//span"))
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = f.Text(context.Background(), CSS("div[[["))
	require.NoError(t, err)
	require.False(t, found)

	m, ok, _ := Chain{XPath("//span"), CSS(".Chains-chain-selected .Chains-node-count")}.Resolve(context.Background(), f)
	require.True(t, ok)
	require.Equal(t, 42, m.Value)
	require.Equal(t, 1, m.Index)
}
