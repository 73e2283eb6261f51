// Package pledge fetches the space pledged metric of a network.
package pledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"telesheet/internal/network"
	"telesheet/internal/retry"
)

// ErrNoFetcher means the target's pledge source has no fetcher configured.
// Retrying cannot fix it.
var ErrNoFetcher = errors.New("no fetcher for pledge source")

// Fetcher returns the space pledged by a network's farmers, in bytes, as a
// decimal string. Values exceed 64 bits on mainnet.
type Fetcher interface {
	SpacePledged(ctx context.Context, target network.Target) (string, error)
}

// Router dispatches on the target's pledge source.
type Router struct {
	API Fetcher
	RPC Fetcher
}

func (r Router) SpacePledged(ctx context.Context, target network.Target) (string, error) {
	var f Fetcher
	switch target.Pledge.Kind {
	case network.PledgeAPI:
		f = r.API
	case network.PledgeRPC:
		f = r.RPC
	}
	if f == nil {
		return "", retry.Permanent(fmt.Errorf("%w %q of %s", ErrNoFetcher, target.Pledge.Kind, target.ID))
	}
	return f.SpacePledged(ctx, target)
}

// Retrying retries Next according to Policy.
type Retrying struct {
	Next   Fetcher
	Policy retry.Policy
	Log    *slog.Logger
}

func (r Retrying) SpacePledged(ctx context.Context, target network.Target) (string, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("network", target.ID, "op", "space_pledged")

	v, err := retry.Value(ctx, r.Policy, log, func(ctx context.Context, attempt int) (string, error) {
		log.Debug("fetching space pledged", "attempt", attempt, "source", target.Pledge.Kind)
		return r.Next.SpacePledged(ctx, target)
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch space pledged for %s: %w", target.ID, err)
	}
	log.Info("space pledged", "value", v)
	return v, nil
}
