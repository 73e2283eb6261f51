package pledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"

	"telesheet/internal/network"
)

// Consensus constants of the Subspace protocol.
const (
	slotProbabilityNum = 1
	slotProbabilityDen = 6
	pieceSize          = 1 << 20
	numChunks          = 1 << 15
	numSBuckets        = 1 << 16
)

// solutionRanges is the Subspace pallet's SolutionRanges storage value.
type solutionRanges struct {
	Current       types.U64
	Next          types.OptionU64
	VotingCurrent types.U64
	VotingNext    types.OptionU64
}

// storageReader returns the raw SCALE encoded Subspace.SolutionRanges value.
type storageReader interface {
	SolutionRanges(ctx context.Context) ([]byte, error)
	Close()
}

// RPCFetcher derives space pledged from the current solution range stored on
// chain.
type RPCFetcher struct {
	dial func(ctx context.Context, url string) (storageReader, error)
}

func NewRPCFetcher() *RPCFetcher {
	return &RPCFetcher{dial: dialNode}
}

func (f *RPCFetcher) SpacePledged(ctx context.Context, target network.Target) (string, error) {
	c, err := f.dial(ctx, target.Pledge.Endpoint)
	if err != nil {
		return "", err
	}
	defer c.Close()

	raw, err := c.SolutionRanges(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read solution ranges: %w", err)
	}
	ranges, err := decodeSolutionRanges(raw)
	if err != nil {
		return "", err
	}
	v, err := FromSolutionRange(uint64(ranges.Current))
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func decodeSolutionRanges(raw []byte) (solutionRanges, error) {
	var sr solutionRanges
	if len(raw) == 0 {
		return sr, errors.New("solution ranges not found in storage")
	}
	if err := codec.Decode(raw, &sr); err != nil {
		return sr, fmt.Errorf("failed to decode solution ranges: %w", err)
	}
	return sr, nil
}

// FromSolutionRange converts a solution range into pledged bytes. Divisions
// truncate in the same order as the reference explorer so figures match.
func FromSolutionRange(current uint64) (*big.Int, error) {
	if current == 0 {
		return nil, errors.New("solution range is zero")
	}
	v := new(big.Int).SetUint64(math.MaxUint64)
	v.Mul(v, big.NewInt(slotProbabilityNum))
	v.Quo(v, big.NewInt(slotProbabilityDen))
	v.Quo(v, new(big.Int).SetUint64(current))
	v.Mul(v, big.NewInt(pieceSize))
	v.Mul(v, big.NewInt(numChunks))
	v.Quo(v, big.NewInt(numSBuckets))
	return v, nil
}

// nodeClient reads storage through go-substrate-rpc-client. The client has
// no context support, so calls run on their own goroutine and are abandoned
// when ctx is done.
type nodeClient struct {
	api *gsrpc.SubstrateAPI
}

func dialNode(ctx context.Context, url string) (storageReader, error) {
	api, err := await(ctx, func() (*gsrpc.SubstrateAPI, error) {
		return gsrpc.NewSubstrateAPI(url)
	}, func(api *gsrpc.SubstrateAPI) { api.Client.Close() })
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &nodeClient{api: api}, nil
}

func (c *nodeClient) SolutionRanges(ctx context.Context) ([]byte, error) {
	return await(ctx, func() ([]byte, error) {
		meta, err := c.api.RPC.State.GetMetadataLatest()
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata: %w", err)
		}
		key, err := types.CreateStorageKey(meta, "Subspace", "SolutionRanges")
		if err != nil {
			return nil, fmt.Errorf("failed to build storage key: %w", err)
		}
		raw, err := c.api.RPC.State.GetStorageRawLatest(key)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
		return *raw, nil
	}, nil)
}

func (c *nodeClient) Close() {
	c.api.Client.Close()
}

// await runs fn and returns its result, or ctx.Err if ctx is done first. A
// result that arrives after that is handed to discard.
func await[T any](ctx context.Context, fn func() (T, error), discard func(T)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil && discard != nil {
				discard(r.v)
			}
		}()
		var zero T
		return zero, ctx.Err()
	}
}
