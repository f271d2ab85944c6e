// Command queryagent is the PATTERN_MATCHING_QUERY load generator of
// SPEC_FULL.md §6.2 "Benchmark harness": it issues --concurrency
// concurrent workers, each repeating the same query --iterations
// times against a running busnode, and reports per-query latency
// percentiles and aggregate throughput, grounded on
// original_source/src/tests/benchmark/query_agent/query_agent_main.cc
// (the `<num_iterations> [server_host:port] [client_host:port]`
// harness) and benchmark_utils.h's Metrics (operation_time samples,
// total_time, throughput) report shape.
//
//	queryagent --hostname localhost:6001 --service-hostname localhost:5001 \
//	    --request 'LINK_TEMPLATE Expression 3 NODE Symbol Similarity VARIABLE v1 VARIABLE v2' \
//	    --concurrency 8 --iterations 50
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/singnet/das-servicebus/config"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/servicebus"
	"github.com/singnet/das-servicebus/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "queryagent:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.ParseBenchFlags(flag.NewFlagSet("queryagent", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	log := logging.NewStd().Bind("bench", cfg.Hostname)

	node, err := transport.NewNatsNode(cfg.Hostname, natsURL(cfg.PeerAddr))
	if err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}
	defer node.Close()

	ports, err := servicebus.NewNamedPortPool(cfg.Hostname, cfg.PortRangeLo, cfg.PortRangeHi)
	if err != nil {
		return fmt.Errorf("build port pool: %w", err)
	}
	bus := servicebus.NewBus(cfg.Hostname, node, ports)
	if err := node.AnnounceJoin(); err != nil {
		return fmt.Errorf("announce join: %w", err)
	}

	log.Info("starting load", "concurrency", cfg.Concurrency, "iterations", cfg.Iterations, "request", cfg.Request)

	samples := runLoad(context.Background(), bus, cfg)
	printReport(samples, cfg)
	return nil
}

// sample is one query's outcome: its end-to-end latency (issue to
// FINISHED) and the number of answers it produced.
type sample struct {
	latency time.Duration
	answers uint64
}

// runLoad spawns cfg.Concurrency workers, each issuing cfg.Iterations
// sequential PATTERN_MATCHING_QUERY commands (sequential per worker
// because each in-flight command pins one Port Pool port for its
// lifetime — spec.md §4.1/§4.6 invariant 4 — so concurrency is modeled
// as worker count, not a shared unbounded fan-out).
func runLoad(ctx context.Context, bus *servicebus.Bus, cfg config.BenchConfig) []sample {
	results := make(chan sample, cfg.Concurrency*cfg.Iterations)
	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for w := 0; w < cfg.Concurrency; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < cfg.Iterations; i++ {
				results <- runOne(ctx, bus, cfg.Request)
			}
		}()
	}
	wg.Wait()
	close(results)

	samples := make([]sample, 0, cfg.Concurrency*cfg.Iterations)
	for s := range results {
		samples = append(samples, s)
	}
	return samples
}

// runOne issues a single PATTERN_MATCHING_QUERY, drains it to
// completion, and measures its wall-clock latency.
func runOne(ctx context.Context, bus *servicebus.Bus, query string) sample {
	proxy := servicebus.NewPatternMatchingQueryProxy(0, "", 0)
	proxy.Query = query

	start := time.Now()
	if err := bus.IssueBusCommand(ctx, proxy); err != nil {
		return sample{}
	}
	defer bus.ReleaseProxy(proxy)

	for {
		if _, ok := proxy.Pop(); ok {
			continue
		}
		if proxy.Finished() {
			break
		}
		select {
		case <-ctx.Done():
			return sample{latency: time.Since(start), answers: proxy.AnswerCount()}
		case <-time.After(time.Millisecond):
		}
	}
	return sample{latency: time.Since(start), answers: proxy.AnswerCount()}
}

// printReport prints percentile latencies and aggregate throughput,
// the Go-native analogue of benchmark_utils.h's
// calculate_metric_statistics/create_report.
func printReport(samples []sample, cfg config.BenchConfig) {
	if len(samples) == 0 {
		fmt.Println("no samples collected")
		return
	}

	latencies := make([]float64, len(samples))
	var totalAnswers uint64
	var totalLatency time.Duration
	for i, s := range samples {
		latencies[i] = float64(s.latency) / float64(time.Millisecond)
		totalAnswers += s.answers
		totalLatency += s.latency
	}
	sort.Float64s(latencies)

	workers := cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	wallClock := totalLatency / time.Duration(workers)
	throughput := float64(len(samples)) / wallClock.Seconds()

	fmt.Printf("queries=%d concurrency=%d answers=%d\n", len(samples), cfg.Concurrency, totalAnswers)
	fmt.Printf("latency_ms p50=%.2f p90=%.2f p99=%.2f max=%.2f\n",
		percentile(latencies, 0.50),
		percentile(latencies, 0.90),
		percentile(latencies, 0.99),
		latencies[len(latencies)-1],
	)
	fmt.Printf("throughput_qps=%.2f\n", throughput)
}

// percentile computes the given fraction (0.0-1.0) of sorted via
// linear interpolation, matching benchmark_utils.h's
// compute_percentile.
func percentile(sorted []float64, fraction float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := fraction * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func natsURL(peerAddr string) string {
	if peerAddr == "" {
		return "nats://127.0.0.1:4222"
	}
	return "nats://" + peerAddr
}
