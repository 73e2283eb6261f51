package scraper

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"telesheet/internal/extractor"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func ptr(v int) *int { return &v }

func finderFor(t *testing.T, html string) *extractor.DocumentFinder {
	t.Helper()
	f, err := extractor.NewDocumentFinder(strings.NewReader(html))
	require.NoError(t, err)
	return f
}

func fixture(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/dashboard.html")
	require.NoError(t, err)
	return string(b)
}

func TestExtractDashboard(t *testing.T) {
	s := New(DefaultFields(), DefaultOptions(), quiet)
	got := s.Extract(context.Background(), finderFor(t, fixture(t)), nil)

	want := Stats{
		NodeCount:           ptr(42),
		SubspaceNodeCount:   ptr(12),
		SpaceAcresNodeCount: ptr(1030),
		LinuxNodeCount:      ptr(20),
		WindowsNodeCount:    ptr(15),
		MacOSNodeCount:      ptr(7),
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestExtractUnreadableImplementationCounts(t *testing.T) {
	html := strings.NewReplacer(
		`<td class="Stats-count">12</td>`, `<td class="Stats-count">-</td>`,
		`<td class="Stats-count">1,030</td>`, `<td class="Stats-count">n/a</td>`,
	).Replace(fixture(t))

	got := New(DefaultFields(), DefaultOptions(), quiet).Extract(context.Background(), finderFor(t, html), nil)
	require.Nil(t, got.SubspaceNodeCount)
	require.Nil(t, got.SpaceAcresNodeCount)
	require.Equal(t, 42, *got.NodeCount)
	require.Equal(t, 20, *got.LinuxNodeCount)
	require.Equal(t, 7, *got.MacOSNodeCount)
}

func TestExtractBroadImplementationSelector(t *testing.T) {
	fields := DefaultFields()
	// only the second candidate is known to the finder
	f := staticFinder{
		fields.NodeCount[0]:         "42",
		fields.SubspaceNodeCount[1]: "11",
	}
	got := New(fields, DefaultOptions(), quiet).Extract(context.Background(), f, nil)
	require.Equal(t, 11, *got.SubspaceNodeCount)
	require.Equal(t, extractor.CSS("div.Chain-content-container table tbody tr:nth-child(1) td.Stats-count"), fields.SubspaceNodeCount[1])
	require.Equal(t, extractor.CSS("div.Chain-content-container table tbody tr:nth-child(2) td.Stats-count"), fields.SpaceAcresNodeCount[1])
}

func TestDefaultFieldsOrder(t *testing.T) {
	kinds := func(c extractor.Chain) []extractor.Kind {
		var out []extractor.Kind
		for _, l := range c {
			out = append(out, l.Kind)
		}
		return out
	}
	fields := DefaultFields()
	impl := []extractor.Kind{extractor.KindCSS, extractor.KindCSS, extractor.KindXPath, extractor.KindXPath}
	osKinds := []extractor.Kind{extractor.KindXPath, extractor.KindCSS, extractor.KindXPath}

	require.Equal(t, impl, kinds(fields.SubspaceNodeCount))
	require.Equal(t, impl, kinds(fields.SpaceAcresNodeCount))
	require.Equal(t, osKinds, kinds(fields.LinuxNodeCount))
	require.Equal(t, osKinds, kinds(fields.WindowsNodeCount))
	require.Equal(t, osKinds, kinds(fields.MacOSNodeCount))
	require.Equal(t, extractor.CSS("div.Chain-content-container > div > div > div:nth-child(3) > table > tbody > tr:nth-child(3) > td.Stats-count"), fields.MacOSNodeCount[1])
}

type staticFinder map[extractor.Locator]string

func (f staticFinder) Text(_ context.Context, loc extractor.Locator) (string, bool, error) {
	v, ok := f[loc]
	return v, ok, nil
}

func TestExtractSelectedNodeCountIsInteger(t *testing.T) {
	f := staticFinder{extractor.CSS(".Chains-chain-selected .Chains-node-count"): "42"}
	got := New(DefaultFields(), DefaultOptions(), quiet).Extract(context.Background(), f, nil)
	require.NotNil(t, got.NodeCount)
	require.Equal(t, 42, *got.NodeCount)
	require.Nil(t, got.SubspaceNodeCount)
}

func TestExtractAllSubspaceCandidatesFail(t *testing.T) {
	fields := DefaultFields()
	require.Len(t, fields.SubspaceNodeCount, 4)

	f := staticFinder{
		fields.NodeCount[0]:           "42",
		fields.SpaceAcresNodeCount[1]: "30",
		fields.LinuxNodeCount[2]:      "20",
	}
	got := New(fields, DefaultOptions(), quiet).Extract(context.Background(), f, nil)
	require.Nil(t, got.SubspaceNodeCount)
	require.Equal(t, 30, *got.SpaceAcresNodeCount)
	require.Equal(t, 20, *got.LinuxNodeCount)
	require.Equal(t, []*int{nil, got.SpaceAcresNodeCount, got.LinuxNodeCount, nil, nil}, got.Secondary())
}
