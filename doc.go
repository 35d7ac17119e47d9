// Package agentsharp is a framework for stateful tool-using LLM agents.
//
// An agent works toward a goal one step at a time: each step builds a prompt
// from the accumulated turn history, asks the model for its next action,
// dispatches that action (a tool call, a plan, a retry, or the final answer),
// and persists the updated state. Identical successful tool calls are reused
// within a TTL, repeated failing calls trip a loop breaker, and optional
// reasoning engines (chain-of-thought, tree-of-thoughts, or a hybrid of the
// two) enrich the goal with structured analysis between turns.
//
// # Quick start
//
// Run an agent from the command line:
//
//	agentsharp run "add 2 and 2" --provider openai
//
// Or drive it from Go:
//
//	provider, _ := llms.NewOpenAIProvider(llms.OpenAIConfig{APIKey: key})
//	registry := tools.NewRegistry()
//	tools.RegisterBuiltins(registry)
//
//	runner := agent.NewRunner(config.DefaultConfig(), provider, registry,
//		state.NewMemoryStore(), events.NewManager())
//	result, err := runner.Run(ctx, "my-agent", "add 2 and 2")
//
// # Packages
//
//   - agent: the per-step orchestrator, prompt builder, and runner
//   - llms: provider contract plus OpenAI and Anthropic implementations
//   - tools: tool contract, registry, executor, built-ins, and MCP sources
//   - reasoning: chain-of-thought, tree-of-thoughts, and hybrid engines
//   - state: agent state, turn history, and memory/SQL stores
//   - events: lifecycle events and public status updates
//   - config: knobs, YAML loading, and hot reload
//   - observability: OTel metrics with a Prometheus exporter
package agentsharp
