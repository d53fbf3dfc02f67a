package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/Mohsinsiddi/ykp/internal/chain"
)

// PingTimeout bounds each endpoint probe.
const PingTimeout = 5 * time.Second

// Benchmark probes every URL in parallel for latency, head block and
// chain id. Results keep the order of urls.
func Benchmark(ctx context.Context, urls []string) []Endpoint {
	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			out[idx] = probe(ctx, u)
		}(i, url)
	}
	wg.Wait()
	return out
}

func probe(ctx context.Context, url string) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	c := chain.NewEVMClient(url)
	e := Endpoint{URL: url}
	e.Latency, e.BlockNumber, e.Err = c.Ping(ctx)
	if e.Err == nil {
		e.ChainID, e.Err = c.ChainID(ctx)
	}
	return e
}

// Best returns the fastest healthy URL for wantChain. A single URL is
// returned without probing.
func Best(ctx context.Context, urls []string, wantChain int64) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	winner, err := Fastest(Benchmark(ctx, urls), wantChain)
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
