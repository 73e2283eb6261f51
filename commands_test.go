package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"telesheet/internal/network"
	"telesheet/internal/report"
	"telesheet/internal/workflow"
)

func TestSummaryTable(t *testing.T) {
	results := []workflow.Result{
		{Target: network.Target{ID: "taurus"}, Row: &report.Row{NodeCount: 42, SpacePledged: "1000"}},
		{Target: network.Target{ID: "gemini-3h"}, Skipped: true},
		{Target: network.Target{ID: "mainnet"}, Err: errors.New("boom")},
	}

	tbl := summaryTable(results)
	require.Equal(t, [][]any{
		{"taurus", "appended", 42, "1000"},
		{"gemini-3h", "skipped", "", ""},
		{"mainnet", "failed", "", ""},
	}, tbl.Rows)
}

func TestTotalTimeout(t *testing.T) {
	defer func(a int, d, to time.Duration) { attempts, retryDelay, timeout = a, d, to }(attempts, retryDelay, timeout)

	attempts, retryDelay, timeout = 3, 2*time.Second, time.Minute
	require.Equal(t, 3*time.Minute+4*time.Second, totalTimeout())

	timeout = 0
	require.Zero(t, totalTimeout())
}

func TestValidateFlags(t *testing.T) {
	defer func(a int, w, wt string) { attempts, waitFor, waitTarget = a, w, wt }(attempts, waitFor, waitTarget)

	tests := []struct {
		name     string
		attempts int
		waitFor  string
		target   string
		wantErr  string
	}{
		{name: "idle", attempts: 3, waitFor: "idle"},
		{name: "load", attempts: 1, waitFor: "load"},
		{name: "time", attempts: 1, waitFor: "time", target: "5s"},
		{name: "element", attempts: 1, waitFor: "element", target: "table"},
		{name: "element without selector", attempts: 1, waitFor: "element", wantErr: "wait target is required"},
		{name: "time without duration", attempts: 1, waitFor: "time", wantErr: "invalid wait time"},
		{name: "unknown strategy", attempts: 1, waitFor: "forever", wantErr: "unknown wait strategy"},
		{name: "no attempts", attempts: 0, waitFor: "idle", wantErr: "--attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts, waitFor, waitTarget = tt.attempts, tt.waitFor, tt.target
			err := validateFlags()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
