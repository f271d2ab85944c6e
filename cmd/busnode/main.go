// Command busnode launches one Service Bus node serving exactly one
// bus command (spec.md §6 "CLI surface (executable binaries)"):
//
//	busnode --service PATTERN_MATCHING_QUERY --hostname localhost:4001 \
//	    --ports-range 30000:30100 --peer-address localhost:4222
//
// Required flags: --service, --hostname, --ports-range. Optional:
// --attention-broker-address, --peer-address, --grpc-control-address,
// --metrics-address, --trace-collector-address. Exit code 0 on
// graceful shutdown (SIGINT/SIGTERM), 1 on startup failure, grounded
// on the teacher's cmd/main.go signal-handling shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/atomspace/buntstore"
	"github.com/singnet/das-servicebus/commands/atomdb"
	"github.com/singnet/das-servicebus/commands/contextbroker"
	"github.com/singnet/das-servicebus/commands/inference"
	"github.com/singnet/das-servicebus/commands/linkcreation"
	"github.com/singnet/das-servicebus/commands/patternmatching"
	"github.com/singnet/das-servicebus/commands/queryevolution"
	"github.com/singnet/das-servicebus/config"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/servicebus"
	"github.com/singnet/das-servicebus/servicebus/grpcctl"
	"github.com/singnet/das-servicebus/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "busnode:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.ParseNodeFlags(flag.NewFlagSet("busnode", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	log := logging.NewStd().Bind("node", cfg.Hostname, "service", cfg.Service)
	log.Info("starting")

	if cfg.AttentionBrokerAddr != "" {
		log.Warn("attention_broker_address given but no RPC client is implemented (spec.md §1 non-goal); using NoopAttentionBroker")
	}

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

	proc, err := buildProcessor(cfg.Service, log)
	if err != nil {
		return err
	}
	if err := bus.RegisterProcessor(proc); err != nil {
		return fmt.Errorf("register processor: %w", err)
	}
	if err := node.AnnounceJoin(); err != nil {
		return fmt.Errorf("announce join: %w", err)
	}

	var shutdown []func()

	if cfg.TraceCollectorAddr != "" {
		stop, err := servicebus.InitTracer("das-servicebus-busnode", cfg.TraceCollectorAddr)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		shutdown = append(shutdown, func() { _ = stop(context.Background()) })
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() { _ = srv.ListenAndServe() }()
		shutdown = append(shutdown, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}

	var ctl *grpcctl.Server
	if cfg.GRPCControlAddr != "" {
		ctl = grpcctl.New(cfg.Service, ports)
		ctx, cancel := context.WithCancel(context.Background())
		shutdown = append(shutdown, cancel)
		go func() {
			if err := ctl.Serve(ctx, cfg.GRPCControlAddr); err != nil {
				log.Error("grpcctl serve failed", "error", err)
			}
		}()
		ctl.MarkServing(cfg.Service)
	}

	log.Info("ready", "ports", fmt.Sprintf("%d:%d", cfg.PortRangeLo, cfg.PortRangeHi))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if ctl != nil {
		ctl.MarkNotServing(cfg.Service)
		ctl.GracefulStop()
	}
	for _, fn := range shutdown {
		fn()
	}
	return nil
}

// buildProcessor wires the CommandProcessor for service against an
// in-process buntstore Store and a NoopAttentionBroker — the Attention
// Broker RPC client is out of scope (spec.md §1) and the atom store's
// format is unspecified (spec.md §1), so buntstore is this binary's
// concrete, swappable choice.
func buildProcessor(service string, log logging.Logger) (servicebus.CommandProcessor, error) {
	store, err := buntstore.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open atom store: %w", err)
	}
	broker := atomspace.NoopAttentionBroker{}

	switch servicebus.Command(service) {
	case servicebus.CommandPatternMatchingQuery:
		return patternmatching.New(store, broker, log), nil
	case servicebus.CommandQueryEvolution:
		return queryevolution.New(store, broker, log), nil
	case servicebus.CommandContext:
		return contextbroker.New(store, broker, log, "."), nil
	case servicebus.CommandLinkCreation:
		return linkcreation.New(store, log), nil
	case servicebus.CommandInference:
		return inference.New(store, log), nil
	case servicebus.CommandAtomDB:
		return atomdb.New(store, log), nil
	default:
		return nil, fmt.Errorf("unknown --service %q", service)
	}
}

// natsURL resolves the known-peer address into the NATS server URL
// this node joins through; an empty peerAddr means "start of the star"
// and falls back to the default local NATS server address.
func natsURL(peerAddr string) string {
	if peerAddr == "" {
		return "nats://127.0.0.1:4222"
	}
	return "nats://" + peerAddr
}
