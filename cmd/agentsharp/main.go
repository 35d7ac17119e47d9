// Command agentsharp runs stateful tool-using agents from the terminal.
//
// Usage:
//
//	agentsharp run "add 2 and 2" --provider openai
//	agentsharp run "book a trip" --config agent.yaml --storage sqlite
//	agentsharp chat --config agent.yaml --watch
//	agentsharp validate --config agent.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	agentsharp "github.com/erwin-beckers/AIAgentSharp-sub001"
	"github.com/erwin-beckers/AIAgentSharp-sub001/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Run      RunCmd      `cmd:"" help:"Run one agent to completion."`
	Chat     ChatCmd     `cmd:"" help:"Interactive session; every line starts a run."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (text or json)." default:"text"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(agentsharp.GetVersion())
	return nil
}

func main() {
	// Best effort; explicit environment always wins.
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentsharp"),
		kong.Description("agentsharp - stateful tool-using agent runner"),
		kong.UsageOnError(),
	)

	if _, err := logger.Setup(logger.Options{
		Level:  cli.LogLevel,
		Format: logger.Format(cli.LogFormat),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
