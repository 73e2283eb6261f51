package scraper

import (
	"errors"
	"log/slog"
)

// ErrNoNodeCount means the primary node count could not be read. No row is
// written for a network that fails this way.
var ErrNoNodeCount = errors.New("node count not found on dashboard")

// Stats is what one dashboard visit yields. A nil field could not be read.
type Stats struct {
	NodeCount           *int `json:"nodeCount"`
	SubspaceNodeCount   *int `json:"subspaceNodeCount"`
	SpaceAcresNodeCount *int `json:"spaceAcresNodeCount"`
	LinuxNodeCount      *int `json:"linuxNodeCount"`
	WindowsNodeCount    *int `json:"windowsNodeCount"`
	MacOSNodeCount      *int `json:"macosNodeCount"`
}

// Secondary returns the optional counts in report column order.
func (s Stats) Secondary() []*int {
	return []*int{s.SubspaceNodeCount, s.SpaceAcresNodeCount, s.LinuxNodeCount, s.WindowsNodeCount, s.MacOSNodeCount}
}

func (s Stats) LogValue() slog.Value {
	attr := func(key string, v *int) slog.Attr {
		if v == nil {
			return slog.Any(key, nil)
		}
		return slog.Int(key, *v)
	}
	return slog.GroupValue(
		attr("nodes", s.NodeCount),
		attr("subspace", s.SubspaceNodeCount),
		attr("space_acres", s.SpaceAcresNodeCount),
		attr("linux", s.LinuxNodeCount),
		attr("windows", s.WindowsNodeCount),
		attr("macos", s.MacOSNodeCount),
	)
}
