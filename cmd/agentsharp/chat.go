package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agent"
	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/events"
)

// ChatCmd runs an interactive session. Every line of input becomes a goal
// for the same agent id, so the turn history carries across messages.
type ChatCmd struct {
	Agent string `help:"Agent identifier; state persists across messages." default:"chat"`
	Watch bool   `help:"Reload the config file on change."`

	ProviderFlags
	StorageFlags
	MCPFlags
	MetricsFlags
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nBye.")
		cancel()
	}()

	cfg, err := loadAgentConfig(cli)
	if err != nil {
		return err
	}

	// Hot reload swaps the config used for the next message; the message
	// currently running keeps the config it started with.
	var cfgMu sync.Mutex
	current := cfg
	if c.Watch && cli.Config != "" {
		go func() {
			err := config.Watch(ctx, cli.Config, func(next config.AgentConfig) {
				cfgMu.Lock()
				current = next
				cfgMu.Unlock()
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
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

	em := events.NewManager()
	defer em.Close()
	em.Subscribe(func(ev events.Event) {
		if ev.Type == events.TypeStatusUpdate && ev.Status != nil {
			fmt.Printf("  … %s\n", ev.Status.Title)
		}
	})

	fmt.Printf("Chatting as agent %q. Type 'exit' to quit.\n", c.Agent)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if ctx.Err() != nil {
			break
		}

		cfgMu.Lock()
		runCfg := current
		cfgMu.Unlock()

		runner := agent.NewRunner(runCfg, provider, registry, store, em)
		result, err := runner.Run(ctx, c.Agent, line)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Printf("error: %v\n", err)
			continue
		}
		if result.Succeeded {
			fmt.Println(result.FinalOutput)
		} else {
			fmt.Printf("(stopped after %d turns without finishing)\n", result.Turns)
		}
	}
	return scanner.Err()
}
