// Package rpc benchmarks a network's JSON-RPC endpoints and picks one.
package rpc

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoHealthyRPC is returned when no endpoint answered correctly.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Nodes more than this many blocks behind the best are skipped.
const staleBlockThreshold = 3

// Endpoint is one benchmarked RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     int64
	Err         error
}

// Healthy reports whether the endpoint answered both probes.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Status is a one-word summary for tables.
func (e Endpoint) Status(bestBlock uint64, wantChain int64) string {
	switch {
	case !e.Healthy():
		return "down"
	case wantChain != 0 && e.ChainID != wantChain:
		return fmt.Sprintf("chain %d", e.ChainID)
	case stale(e.BlockNumber, bestBlock):
		return "stale"
	}
	return "ok"
}

// BestBlock is the highest head reported by a healthy endpoint.
func BestBlock(endpoints []Endpoint) uint64 {
	var best uint64
	for _, e := range endpoints {
		if e.Healthy() && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	return best
}

// Fastest picks the best-scoring endpoint that is healthy, on wantChain
// (0 skips the check) and not stale.
func Fastest(endpoints []Endpoint, wantChain int64) (*Endpoint, error) {
	best := BestBlock(endpoints)

	var (
		winner    *Endpoint
		bestScore float64
	)
	for i := range endpoints {
		e := &endpoints[i]
		if e.Status(best, wantChain) != "ok" {
			continue
		}
		if s := score(e, best); winner == nil || s > bestScore {
			winner, bestScore = e, s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}
	return winner, nil
}

func stale(block, best uint64) bool {
	return best > block && best-block > staleBlockThreshold
}

// score favours low latency, with a point off per block behind the head.
func score(e *Endpoint, bestBlock uint64) float64 {
	var s float64
	if us := e.Latency.Microseconds(); us > 0 {
		s += 1e6 / float64(us)
	}
	if bestBlock > e.BlockNumber {
		s -= float64(bestBlock - e.BlockNumber)
	}
	return s
}
