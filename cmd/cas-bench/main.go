// Package main provides cas-bench, an in-process throughput benchmark
// for package cas: it drives a *cas.Controller directly (no subprocess,
// unlike a shelled-out wall-clock benchmark) across a matrix of file
// sizes and node limits and reports writes/sec and reads/sec for each.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/casnode/cas/pkg/cas"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	sizesStr := flag.String("sizes", "64,4096,1048576", "comma-separated file sizes in bytes")
	limitsStr := flag.String("node-limits", "131072,1048576", "comma-separated node_limit values in bytes")
	iterations := flag.Int("iterations", 20, "number of files written/read per size/limit pair")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: cas-bench [flags]\n\n")
		fmt.Fprint(os.Stderr, "Benchmarks cas write/read throughput across file sizes and node limits.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	sizes, err := parseIntList(*sizesStr)
	if err != nil {
		return fmt.Errorf("parsing -sizes: %w", err)
	}

	limits, err := parseIntList(*limitsStr)
	if err != nil {
		return fmt.Errorf("parsing -node-limits: %w", err)
	}

	fmt.Printf("%-12s %-12s %-10s %14s %14s %10s\n", "size", "node_limit", "iters", "writes/sec", "reads/sec", "nodes")

	ctx := context.Background()

	for _, limit := range limits {
		for _, size := range sizes {
			result, err := benchOne(ctx, size, uint32(limit), *iterations)
			if err != nil {
				return fmt.Errorf("size=%d node_limit=%d: %w", size, limit, err)
			}

			fmt.Printf("%-12d %-12d %-10d %14.0f %14.0f %10d\n",
				size, limit, *iterations, result.writesPerSec, result.readsPerSec, result.nodeCount)
		}
	}

	return nil
}

type benchResult struct {
	writesPerSec float64
	readsPerSec  float64
	nodeCount    int
}

func benchOne(ctx context.Context, size int, nodeLimit uint32, iterations int) (benchResult, error) {
	store := cas.NewMemStore()
	ctl := cas.NewController(store, cas.SHA256{}, nodeLimit)

	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		return benchResult{}, err
	}

	keys := make([]cas.Key, iterations)

	start := time.Now()

	for i := range keys {
		// Perturb one byte per iteration so each write is a distinct key,
		// measuring cold-write throughput rather than the idempotent-put
		// fast path.
		data[0] = byte(i)

		res, err := ctl.WriteFile(ctx, data, "application/octet-stream")
		if err != nil {
			return benchResult{}, err
		}

		keys[i] = res.Key
	}

	writeElapsed := time.Since(start)

	start = time.Now()

	for _, k := range keys {
		if _, _, err := ctl.ReadFile(ctx, k); err != nil {
			return benchResult{}, err
		}
	}

	readElapsed := time.Since(start)

	return benchResult{
		writesPerSec: float64(iterations) / writeElapsed.Seconds(),
		readsPerSec:  float64(iterations) / readElapsed.Seconds(),
		nodeCount:    store.Len(),
	}, nil
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", p, err)
		}

		out = append(out, n)
	}

	return out, nil
}
