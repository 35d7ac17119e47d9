package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agent"
	"github.com/erwin-beckers/AIAgentSharp-sub001/events"
)

// RunCmd runs a single agent to completion and prints the final output.
type RunCmd struct {
	Goal  string `arg:"" help:"The goal the agent works toward."`
	Agent string `help:"Agent identifier; reuse it to resume saved state." default:"default"`

	ProviderFlags
	StorageFlags
	MCPFlags
	MetricsFlags

	Events bool `help:"Print lifecycle events to stderr."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := loadAgentConfig(cli)
	if err != nil {
		return err
	}

	provider, err := buildProvider(c.ProviderFlags)
	if err != nil {
		return err
	}

	registry, closeRegistry, err := buildRegistry(ctx, c.MCPFlags)
	if err != nil {
		return err
	}
	defer closeRegistry()

	store, closeStore, err := buildStore(c.StorageFlags)
	if err != nil {
		return err
	}
	defer closeStore()

	shutdownMetrics, err := startMetrics(c.MetricsFlags)
	if err != nil {
		return err
	}
	defer shutdownMetrics()

	tracer, shutdownTracing, err := startTracing(ctx, c.MetricsFlags)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	em := events.NewManager()
	defer em.Close()
	if c.Events {
		em.Subscribe(printEvent)
	}

	runner := agent.NewRunner(cfg, provider, registry, store, em)

	runCtx, span := tracer.Start(ctx, "agent.run",
		trace.WithAttributes(attribute.String("agent.id", c.Agent)))
	result, err := runner.Run(runCtx, c.Agent, c.Goal)
	span.End()
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if result.Succeeded {
		fmt.Println(result.FinalOutput)
		return nil
	}
	return fmt.Errorf("agent stopped after %d turns without finishing", result.Turns)
}

// printEvent renders one lifecycle event for --events output.
func printEvent(ev events.Event) {
	switch ev.Type {
	case events.TypeLLMCompleted:
		if ev.LLM != nil && ev.LLM.Error != "" {
			fmt.Fprintf(os.Stderr, "[%s] turn=%d error=%s\n", ev.Type, ev.TurnIndex, ev.LLM.Error)
			return
		}
		fmt.Fprintf(os.Stderr, "[%s] turn=%d\n", ev.Type, ev.TurnIndex)
	case events.TypeToolCompleted:
		if ev.Tool != nil {
			fmt.Fprintf(os.Stderr, "[%s] turn=%d tool=%s success=%v\n",
				ev.Type, ev.TurnIndex, ev.Tool.Name, ev.Tool.Success)
			return
		}
		fmt.Fprintf(os.Stderr, "[%s] turn=%d\n", ev.Type, ev.TurnIndex)
	case events.TypeStatusUpdate:
		if ev.Status != nil {
			fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", ev.Type, ev.Status.Title, ev.Status.Details)
		}
	default:
		fmt.Fprintf(os.Stderr, "[%s] turn=%d\n", ev.Type, ev.TurnIndex)
	}
}
