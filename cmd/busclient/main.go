// Command busclient issues a single bus command against a running
// busnode and streams the results to stdout as JSON lines (spec.md §6
// "CLI surface (executable binaries)"):
//
//	busclient --service PATTERN_MATCHING_QUERY --hostname localhost:5001 \
//	    --service-hostname localhost:4001 \
//	    --request 'LINK_TEMPLATE Expression 3 NODE Symbol Similarity VARIABLE v1 VARIABLE v2' \
//	    --max-answers 100
//
// Required flags: --service, --hostname, --service-hostname. Optional:
// --peer-address, --request, --max-answers, --count. Exit code 0 on
// graceful completion (FINISHED or an --max-answers-triggered abort),
// 1 on startup failure, grounded on the teacher's cmd/main.go exit-code
// convention.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/config"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/servicebus"
	"github.com/singnet/das-servicebus/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "busclient:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.ParseClientFlags(flag.NewFlagSet("busclient", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	log := logging.NewStd().Bind("client", cfg.Hostname, "service", cfg.Service)

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

	ctx := context.Background()

	switch servicebus.Command(cfg.Service) {
	case servicebus.CommandPatternMatchingQuery:
		return runPatternMatching(ctx, bus, cfg, log)
	case servicebus.CommandQueryEvolution:
		return runStreamingQuery(ctx, bus, servicebus.NewQueryEvolutionProxy(0, "", 0), cfg, log)
	case servicebus.CommandLinkCreation:
		return runStreamingQuery(ctx, bus, servicebus.NewLinkCreationRequestProxy(0, "", 0), cfg, log)
	case servicebus.CommandInference:
		return runStreamingQuery(ctx, bus, servicebus.NewInferenceProxy(0, "", 0), cfg, log)
	case servicebus.CommandContext:
		return runContext(ctx, bus, cfg, log)
	case servicebus.CommandAtomDB:
		return runAtomDB(ctx, bus, cfg, log)
	default:
		return fmt.Errorf("unknown --service %q", cfg.Service)
	}
}

type streamingProxy interface {
	servicebus.Proxy
	Pop() (*atomspace.QueryAnswer, bool)
	AnswerCount() uint64
}

func runPatternMatching(ctx context.Context, bus *servicebus.Bus, cfg config.ClientConfig, log logging.Logger) error {
	proxy := servicebus.NewPatternMatchingQueryProxy(0, "", 0)
	proxy.Query = cfg.Request
	proxy.Params.Set(servicebus.ParamCountFlag, boolStr(cfg.Count))
	proxy.Params.Set(servicebus.ParamMaxAnswers, fmt.Sprintf("%d", cfg.MaxAnswers))

	if err := bus.IssueBusCommand(ctx, proxy); err != nil {
		return fmt.Errorf("issue command: %w", err)
	}
	defer bus.ReleaseProxy(proxy)

	drain(proxy, cfg.MaxAnswers, log)
	if cfg.Count {
		fmt.Printf(`{"count":%d}`+"\n", proxy.Total())
	}
	return nil
}

func runStreamingQuery(ctx context.Context, bus *servicebus.Bus, proxy streamingProxy, cfg config.ClientConfig, log logging.Logger) error {
	if err := bus.IssueBusCommand(ctx, proxy); err != nil {
		return fmt.Errorf("issue command: %w", err)
	}
	defer bus.ReleaseProxy(proxy)
	drain(proxy, cfg.MaxAnswers, log)
	return nil
}

// drain pops answers until proxy.Finished(), printing each as a JSON
// line; it aborts once maxAnswers have been observed (0 = unbounded),
// enforcing the CLI's --max-answers budget the same way
// PatternMatchingQueryProxy's own max_answers parameter does
// server-side (spec.md §4.10).
func drain(proxy streamingProxy, maxAnswers int, log logging.Logger) {
	printed := 0
	for {
		if a, ok := proxy.Pop(); ok {
			printAnswer(a)
			printed++
			if maxAnswers > 0 && printed >= maxAnswers {
				proxy.Abort()
				log.Info("max-answers reached, aborting", "count", printed)
				break
			}
			continue
		}
		if proxy.Finished() {
			break
		}
		time.Sleep(time.Millisecond)
	}
}

func printAnswer(a *atomspace.QueryAnswer) {
	out := struct {
		Handles    []string          `json:"handles"`
		Assignment map[string]string `json:"assignment,omitempty"`
		Strength   float64           `json:"strength"`
	}{Strength: a.Strength}
	for _, h := range a.Handles {
		out.Handles = append(out.Handles, string(h))
	}
	if a.Assignment != nil && a.Assignment.Len() > 0 {
		out.Assignment = make(map[string]string, a.Assignment.Len())
		for _, v := range a.Assignment.Variables() {
			h, _ := a.Assignment.Get(v)
			out.Assignment[v] = string(h)
		}
	}
	data, _ := json.Marshal(out)
	fmt.Println(string(data))
}

func runContext(ctx context.Context, bus *servicebus.Bus, cfg config.ClientConfig, log logging.Logger) error {
	proxy := servicebus.NewContextBrokerProxy(0, "")
	proxy.Params.Set(servicebus.ParamContextQuery, cfg.Request)
	proxy.Params.Set(servicebus.ParamCacheFlag, "true")

	if err := bus.IssueBusCommand(ctx, proxy); err != nil {
		return fmt.Errorf("issue command: %w", err)
	}
	defer bus.ReleaseProxy(proxy)

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := proxy.WaitCreated(waitCtx); err != nil {
		return fmt.Errorf("wait for CONTEXT_CREATED: %w", err)
	}
	fmt.Println(`{"context_created":true}`)
	return nil
}

func runAtomDB(ctx context.Context, bus *servicebus.Bus, cfg config.ClientConfig, log logging.Logger) error {
	proxy := servicebus.NewAtomDBBrokerProxy(0, "")
	proxy.Params.Set(servicebus.ParamAtomDBOperation, cfg.Request)

	if err := bus.IssueBusCommand(ctx, proxy); err != nil {
		return fmt.Errorf("issue command: %w", err)
	}
	defer bus.ReleaseProxy(proxy)

	deadline := time.After(30 * time.Second)
	for !proxy.Finished() {
		select {
		case <-deadline:
			return fmt.Errorf("timed out waiting for ATOMDB FINISHED")
		case <-time.After(time.Millisecond):
		}
	}
	fmt.Printf(`{"result":%v}`+"\n", proxy.Result())
	return nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func natsURL(peerAddr string) string {
	if peerAddr == "" {
		return "nats://127.0.0.1:4222"
	}
	return "nats://" + peerAddr
}
