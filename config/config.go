// Package config provides the plain, JSON-tagged configuration structs
// and flag-based CLI parsing every das-servicebus binary shares,
// grounded on the teacher's coreengine/config package shape
// (Default*Config constructors returning a struct of primitives, no
// env-var magic baked into the core) and cmd/main.go's direct use of
// the standard flag package — no cobra/viper anywhere in the
// retrieved pack, so flag stays the CLI layer here too.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// NodeConfig is the configuration a Service Bus node is launched with
// (spec.md §6 "CLI surface"): the bus command(s) it serves, its own
// hostname:port, the port-pool range it hands out, and optional
// collaborator addresses.
type NodeConfig struct {
	Service               string `json:"service"`
	Hostname              string `json:"hostname"`
	PortRangeLo           int    `json:"port_range_lo"`
	PortRangeHi           int    `json:"port_range_hi"`
	AttentionBrokerAddr   string `json:"attention_broker_address,omitempty"`
	PeerAddr              string `json:"peer_address,omitempty"`
	GRPCControlAddr       string `json:"grpc_control_address,omitempty"`
	MetricsAddr           string `json:"metrics_address,omitempty"`
	TraceCollectorAddr    string `json:"trace_collector_address,omitempty"`
}

// DefaultNodeConfig returns a NodeConfig with conservative defaults;
// Service/Hostname must still be supplied by the caller.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		PortRangeLo: 30000,
		PortRangeHi: 30100,
	}
}

// Validate checks the required fields and the port range's shape.
func (c NodeConfig) Validate() error {
	if c.Service == "" {
		return fmt.Errorf("config: --service is required")
	}
	if c.Hostname == "" {
		return fmt.Errorf("config: --hostname is required")
	}
	if c.PortRangeLo > c.PortRangeHi {
		return fmt.Errorf("config: invalid --ports-range %d:%d", c.PortRangeLo, c.PortRangeHi)
	}
	return nil
}

// ParsePortRange parses the "lo:hi" flag value spec.md §6 names
// ("--ports-range lo:hi").
func ParsePortRange(s string) (lo, hi int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("config: --ports-range must be lo:hi, got %q", s)
	}
	lo, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("config: invalid ports-range low bound %q: %w", parts[0], err)
	}
	hi, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("config: invalid ports-range high bound %q: %w", parts[1], err)
	}
	return lo, hi, nil
}

// ParseNodeFlags parses the busnode CLI surface from args (excluding
// the program name), matching spec.md §6: "--service, --hostname
// host:port, --ports-range lo:hi" required, plus five optional
// addresses (attention broker, peer, gRPC control plane, metrics,
// trace collector).
func ParseNodeFlags(fs *flag.FlagSet, args []string) (NodeConfig, error) {
	cfg := DefaultNodeConfig()
	var portsRange string

	fs.StringVar(&cfg.Service, "service", "", "bus command this node serves (required)")
	fs.StringVar(&cfg.Hostname, "hostname", "", "this node's host:port (required)")
	fs.StringVar(&portsRange, "ports-range", "", "inclusive port pool range lo:hi (required)")
	fs.StringVar(&cfg.AttentionBrokerAddr, "attention-broker-address", "", "Attention Broker RPC address")
	fs.StringVar(&cfg.PeerAddr, "peer-address", "", "a known peer's host:port to join through")
	fs.StringVar(&cfg.GRPCControlAddr, "grpc-control-address", "", "gRPC health/status control-plane address")
	fs.StringVar(&cfg.MetricsAddr, "metrics-address", "", "Prometheus /metrics listen address")
	fs.StringVar(&cfg.TraceCollectorAddr, "trace-collector-address", "", "OTLP/gRPC trace collector address")

	if err := fs.Parse(args); err != nil {
		return NodeConfig{}, err
	}
	if portsRange == "" {
		return NodeConfig{}, fmt.Errorf("config: --ports-range is required")
	}
	lo, hi, err := ParsePortRange(portsRange)
	if err != nil {
		return NodeConfig{}, err
	}
	cfg.PortRangeLo, cfg.PortRangeHi = lo, hi
	if err := cfg.Validate(); err != nil {
		return NodeConfig{}, err
	}
	return cfg, nil
}

// ClientConfig is the configuration a bus client binary is launched
// with (spec.md §6): the same node-bootstrap flags plus
// --service-hostname identifying which node's command to invoke.
type ClientConfig struct {
	NodeConfig
	ServiceHostname string `json:"service_hostname"`
	MaxAnswers      int    `json:"max_answers,omitempty"`
	Request         string `json:"request,omitempty"`
	Count           bool   `json:"count,omitempty"`
}

// ParseClientFlags parses the busclient CLI surface: --service,
// --hostname, --ports-range and --peer-address from the node flags,
// plus --service-hostname and the command-specific
// --request/--max-answers/--count flags.
func ParseClientFlags(fs *flag.FlagSet, args []string) (ClientConfig, error) {
	cfg := ClientConfig{NodeConfig: DefaultNodeConfig()}
	var portsRange string

	fs.StringVar(&cfg.Service, "service", "", "bus command to invoke (required)")
	fs.StringVar(&cfg.Hostname, "hostname", "", "this client's host:port (required)")
	fs.StringVar(&portsRange, "ports-range", "31000:31050", "inclusive port pool range lo:hi")
	fs.StringVar(&cfg.PeerAddr, "peer-address", "", "a known peer's host:port to join through")
	fs.StringVar(&cfg.ServiceHostname, "service-hostname", "", "the node to route this command to (required)")
	fs.StringVar(&cfg.Request, "request", "", "token-stream query, for PATTERN_MATCHING_QUERY")
	fs.IntVar(&cfg.MaxAnswers, "max-answers", 0, "abort once this many answers are received (0 = unbounded)")
	fs.BoolVar(&cfg.Count, "count", false, "request COUNT-only mode instead of streaming answers")

	if err := fs.Parse(args); err != nil {
		return ClientConfig{}, err
	}
	lo, hi, err := ParsePortRange(portsRange)
	if err != nil {
		return ClientConfig{}, err
	}
	cfg.PortRangeLo, cfg.PortRangeHi = lo, hi
	if cfg.Service == "" {
		return ClientConfig{}, fmt.Errorf("config: --service is required")
	}
	if cfg.Hostname == "" {
		return ClientConfig{}, fmt.Errorf("config: --hostname is required")
	}
	if cfg.ServiceHostname == "" {
		return ClientConfig{}, fmt.Errorf("config: --service-hostname is required")
	}
	return cfg, nil
}

// BenchConfig is the configuration bench/queryagent is launched with
// (SPEC_FULL.md §6.2 "Benchmark harness"): the same hostname/peer
// bootstrap flags every CLI binary shares, plus the load-generator's
// own concurrency/iterations/request knobs, grounded on
// original_source/src/tests/benchmark/query_agent/query_agent_main.cc's
// `<num_iterations> [server_host:port] [client_host:port]` argv shape,
// carried over here as named flags per this repo's flag-package
// convention instead of positional argv.
type BenchConfig struct {
	Hostname        string `json:"hostname"`
	PeerAddr        string `json:"peer_address,omitempty"`
	ServiceHostname string `json:"service_hostname"`
	PortRangeLo     int    `json:"port_range_lo"`
	PortRangeHi     int    `json:"port_range_hi"`
	Request         string `json:"request,omitempty"`
	Concurrency     int    `json:"concurrency"`
	Iterations      int    `json:"iterations"`
}

// ParseBenchFlags parses bench/queryagent's CLI surface.
func ParseBenchFlags(fs *flag.FlagSet, args []string) (BenchConfig, error) {
	cfg := BenchConfig{PortRangeLo: 32000, PortRangeHi: 32200, Concurrency: 1, Iterations: 1}
	var portsRange string

	fs.StringVar(&cfg.Hostname, "hostname", "", "this harness's host:port (required)")
	fs.StringVar(&portsRange, "ports-range", "32000:32200", "inclusive port pool range lo:hi")
	fs.StringVar(&cfg.PeerAddr, "peer-address", "", "a known peer's host:port to join through")
	fs.StringVar(&cfg.ServiceHostname, "service-hostname", "", "the PATTERN_MATCHING_QUERY node to load-test (required)")
	fs.StringVar(&cfg.Request, "request", "", "token-stream PATTERN_MATCHING_QUERY to repeat (required)")
	fs.IntVar(&cfg.Concurrency, "concurrency", 1, "number of concurrent in-flight queries")
	fs.IntVar(&cfg.Iterations, "iterations", 1, "number of queries each concurrent worker issues")

	if err := fs.Parse(args); err != nil {
		return BenchConfig{}, err
	}
	lo, hi, err := ParsePortRange(portsRange)
	if err != nil {
		return BenchConfig{}, err
	}
	cfg.PortRangeLo, cfg.PortRangeHi = lo, hi
	if cfg.Hostname == "" {
		return BenchConfig{}, fmt.Errorf("config: --hostname is required")
	}
	if cfg.ServiceHostname == "" {
		return BenchConfig{}, fmt.Errorf("config: --service-hostname is required")
	}
	if cfg.Request == "" {
		return BenchConfig{}, fmt.Errorf("config: --request is required")
	}
	if cfg.Concurrency < 1 {
		return BenchConfig{}, fmt.Errorf("config: --concurrency must be >= 1")
	}
	if cfg.Iterations < 1 {
		return BenchConfig{}, fmt.Errorf("config: --iterations must be >= 1")
	}
	return cfg, nil
}

// LoadJSONFile reads a JSON-encoded NodeConfig or ClientConfig (or any
// config struct) from path into out, mirroring the teacher's config
// package constructors that build from either flags or a file.
func LoadJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}
