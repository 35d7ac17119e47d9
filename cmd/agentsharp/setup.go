package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/observability"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
)

// ============================================================================
// SHARED FLAG GROUPS AND WIRING
// ============================================================================

// ProviderFlags selects and configures the LLM provider.
type ProviderFlags struct {
	Provider    string  `help:"LLM provider (openai, anthropic)." default:"openai"`
	Model       string  `help:"Model name (provider default when empty)."`
	APIKey      string  `name:"api-key" help:"API key (defaults to OPENAI_API_KEY / ANTHROPIC_API_KEY)."`
	BaseURL     string  `name:"base-url" help:"Custom API base URL."`
	Temperature float64 `help:"Sampling temperature." default:"0.7"`
	MaxTokens   int     `name:"max-tokens" help:"Max tokens for generation." default:"4096"`
}

// StorageFlags selects the state store backend.
type StorageFlags struct {
	Storage    string `help:"State backend: sqlite, postgres, mysql (default: in-memory)." placeholder:"BACKEND"`
	StorageDSN string `name:"storage-dsn" help:"Database DSN (default: ./.agentsharp/state.db for sqlite)." placeholder:"DSN"`
}

// MCPFlags attach an MCP stdio server as a tool source.
type MCPFlags struct {
	MCPCommand string   `name:"mcp-command" help:"Command launching an MCP stdio server." placeholder:"CMD"`
	MCPArgs    []string `name:"mcp-args" help:"Arguments for the MCP server command."`
	MCPFilter  []string `name:"mcp-filter" help:"Only expose these MCP tools."`
}

// MetricsFlags control the Prometheus endpoint and span export.
type MetricsFlags struct {
	Metrics     bool   `help:"Serve Prometheus metrics."`
	MetricsAddr string `name:"metrics-addr" help:"Metrics listen address." default:":9090"`
	Trace       bool   `help:"Export spans for each run to stdout."`
}

// loadAgentConfig reads the config file when given, defaults otherwise.
func loadAgentConfig(cli *CLI) (config.AgentConfig, error) {
	if cli.Config == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return cfg, err
	}
	slog.Info("Loaded configuration", "path", cli.Config)
	return cfg, nil
}

// buildProvider constructs the selected LLM provider, resolving the API key
// from flags or the provider's conventional environment variable.
func buildProvider(flags ProviderFlags) (llms.Provider, error) {
	switch flags.Provider {
	case "openai":
		key := flags.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return llms.NewOpenAIProvider(llms.OpenAIConfig{
			APIKey:      key,
			Model:       flags.Model,
			BaseURL:     flags.BaseURL,
			Temperature: float32(flags.Temperature),
			MaxTokens:   flags.MaxTokens,
		})
	case "anthropic":
		key := flags.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		return llms.NewAnthropicProvider(llms.AnthropicConfig{
			APIKey:      key,
			Model:       flags.Model,
			BaseURL:     flags.BaseURL,
			Temperature: flags.Temperature,
			MaxTokens:   flags.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q (openai, anthropic)", flags.Provider)
	}
}

// buildRegistry registers the built-in tools and, when configured, the tools
// of an MCP server. The returned closer shuts the MCP subprocess down.
func buildRegistry(ctx context.Context, flags MCPFlags) (*tools.Registry, func(), error) {
	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry); err != nil {
		return nil, nil, err
	}

	closer := func() {}
	if flags.MCPCommand != "" {
		source, err := tools.NewMCPSource(tools.MCPConfig{
			Command: flags.MCPCommand,
			Args:    flags.MCPArgs,
			Filter:  flags.MCPFilter,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := registry.RegisterSource(ctx, source); err != nil {
			source.Close()
			return nil, nil, err
		}
		closer = func() {
			if err := source.Close(); err != nil {
				slog.Warn("Failed to close MCP source", "error", err)
			}
		}
		slog.Info("MCP tools registered", "command", flags.MCPCommand)
	}
	return registry, closer, nil
}

// buildStore creates the state store. Empty backend means in-memory.
func buildStore(flags StorageFlags) (state.Store, func(), error) {
	if flags.Storage == "" || flags.Storage == "inmemory" {
		return state.NewMemoryStore(), func() {}, nil
	}

	dsn := flags.StorageDSN
	if dsn == "" && (flags.Storage == "sqlite" || flags.Storage == "sqlite3") {
		if err := os.MkdirAll(".agentsharp", 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = "./.agentsharp/state.db"
	}

	store, err := state.NewSQLStoreFromConfig(&state.SQLConfig{
		Driver: flags.Storage,
		DSN:    dsn,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	slog.Info("Persistent state enabled", "backend", flags.Storage)
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close state store", "error", err)
		}
	}, nil
}

// startMetrics installs the metrics collector and serves /metrics when
// enabled. The returned function stops the HTTP listener.
func startMetrics(flags MetricsFlags) (func(), error) {
	if !flags.Metrics {
		return func() {}, nil
	}

	collector, handler, err := observability.InitMetrics(observability.MetricsConfig{Enabled: true})
	if err != nil {
		return nil, err
	}
	observability.SetDefault(collector)

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: flags.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server error", "error", err)
		}
	}()
	slog.Info("Metrics enabled", "addr", flags.MetricsAddr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// startTracing installs the span exporter when enabled. The returned tracer
// is always usable; the shutdown flushes pending spans.
func startTracing(ctx context.Context, flags MetricsFlags) (trace.Tracer, func(), error) {
	tracer, shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{Enabled: flags.Trace})
	if err != nil {
		return nil, nil, err
	}
	return tracer, func() {
		fctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdown(fctx); err != nil {
			slog.Warn("Trace exporter shutdown failed", "error", err)
		}
	}, nil
}
