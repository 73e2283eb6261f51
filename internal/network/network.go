package network

import "strings"

// PledgeKind selects how the space pledged metric is obtained for a target.
type PledgeKind string

const (
	PledgeAPI PledgeKind = "api" // plain GET against a JSON endpoint
	PledgeRPC PledgeKind = "rpc" // storage query over a node's WebSocket RPC
)

// PledgeSource describes where a target's space pledged value comes from.
type PledgeSource struct {
	Kind     PledgeKind
	Endpoint string
}

// Target is one tracked network. Targets are values and are never mutated
// after registration.
type Target struct {
	ID           string
	DashboardURL string
	Range        string // sheet range rows are appended to
	Pledge       PledgeSource
	ChainID      string // genesis hash, used by the telemetry feed
}

func (t Target) String() string {
	return t.ID
}

// ParseIDs splits a comma separated list of network ids.
func ParseIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func init() {
	Register(Target{
		ID:           "taurus",
		DashboardURL: "https://telemetry.subspace.foundation/#list/0x295aeafca762a304d92ee1505548695091f6082d3f0aa4d092ac3cd6397a6c5e",
		Range:        "taurus",
		Pledge:       PledgeSource{Kind: PledgeRPC, Endpoint: "wss://rpc-0.taurus.subspace.network/ws"},
		ChainID:      "0x295aeafca762a304d92ee1505548695091f6082d3f0aa4d092ac3cd6397a6c5e",
	})
	Register(Target{
		ID:           "gemini-3h",
		DashboardURL: "https://telemetry.subspace.network/#list/0x0c121c75f4ef450f40619e1fca9d1e8e7fbabc42c895bc4790801e85d5a91c34",
		Range:        "gemini-3h",
		Pledge:       PledgeSource{Kind: PledgeRPC, Endpoint: "wss://rpc-1.gemini-3h.subspace.network/ws"},
		ChainID:      "0x0c121c75f4ef450f40619e1fca9d1e8e7fbabc42c895bc4790801e85d5a91c34",
	})
	Register(Target{
		ID:           "gemini",
		DashboardURL: "https://telemetry.subspace.network/#list/0x0c121c75f4ef450f40619e1fca9d1e8e7fbabc42c895bc4790801e85d5a91c34",
		Range:        "Sheet1",
		Pledge:       PledgeSource{Kind: PledgeAPI, Endpoint: "https://telemetry.subspace.network/api"},
		ChainID:      "0x0c121c75f4ef450f40619e1fca9d1e8e7fbabc42c895bc4790801e85d5a91c34",
	})
	Register(Target{
		ID:           "mainnet",
		DashboardURL: "https://telemetry.subspace.foundation/#list/0x66455a580aabff303720aa83adbe6c44502922251c03ba73686d5245da9e21bd",
		Range:        "mainnet",
		Pledge:       PledgeSource{Kind: PledgeRPC, Endpoint: "wss://rpc.mainnet.subspace.foundation/ws"},
		ChainID:      "0x66455a580aabff303720aa83adbe6c44502922251c03ba73686d5245da9e21bd",
	})
}
