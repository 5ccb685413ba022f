// Package agentcore provides the core execution engine for a
// coding-agent orchestrator: the loop that interleaves LLM calls with
// tool invocations, enforces resource budgets, detects pathological
// loops, propagates cancellation through a parent/child agent tree,
// manages the context window through recitation and compaction, and
// mediates writes through a plan-mode approval gate.
//
// # Quick Start
//
// Run a configured agent against a task:
//
//	go install github.com/fenwick-labs/agentcore/cmd/agentcore@latest
//	agentcore run --config agentcore.yaml --agent investigator --task "list the TODOs in this repo"
//
// # Packages
//
// The engine is split across single-purpose packages rather than one
// monolith:
//
//	core        the execution loop itself
//	economics   budget accounting and loop/phase detection
//	substrate   blackboard, file cache, budget pool, cancellation tree
//	contextwin  message assembly, recitation, compaction
//	toolexec    tool dispatch, policy gate, sandboxing, file claims
//	subagent    subagent spawning and lifecycle
//	planmode    write interception and plan bubbling
//	tracesink   trace events, OpenTelemetry spans, metrics
//	persistence durable worker-result records
//	config      the agent configuration document and its loaders
//
// LLM provider wire encoding, concrete tool implementations, a terminal
// UI, and an A2A/HTTP server are deliberately out of scope: this module
// consumes each through a narrow interface and leaves the implementation
// to the caller.
//
// # Alpha status
//
// APIs may change as the engine grows additional capability traits.
package agentcore
