package toolexec

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-plugin"
)

func withinRoot(root, path string) bool {
	if root == "" {
		return true
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath := path
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(absRoot, path)
	}
	absPath, err = filepath.Abs(absPath)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// DefaultToolTimeout is the default per-tool execution timeout (spec.md §5).
const DefaultToolTimeout = 60 * time.Second

// PluginHandshake is the go-plugin handshake configuration used by
// NewPluginSandbox's client, grounded on the teacher's go.mod dependency
// on `hashicorp/go-plugin` (SPEC_FULL §B). Run does not dispatch through
// that client, so tool calls still execute in the host process.
var PluginHandshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AGENTCORE_TOOL_PLUGIN",
	MagicCookieValue: "agentcore",
}

// Sandbox enforces a per-tool timeout on tool calls, which always execute
// in-process. A sandbox built by NewPluginSandbox also holds a go-plugin
// client (Configured reports true), but calls are not dispatched to it.
type Sandbox struct {
	Timeout time.Duration
	client  *plugin.Client // set only by NewPluginSandbox; not used by Run
}

// NewSandbox constructs a Sandbox with the given timeout (0 selects
// DefaultToolTimeout), executing in-process.
func NewSandbox(timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &Sandbox{Timeout: timeout}
}

// NewPluginSandbox constructs a Sandbox bounded by timeout that holds a
// go-plugin client for cmd (killed by Close). Run does not use the
// client: calls still execute in-process.
func NewPluginSandbox(timeout time.Duration, cmd *exec.Cmd) *Sandbox {
	s := NewSandbox(timeout)
	s.client = plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: PluginHandshake,
		Plugins:         plugin.PluginSet{},
		Cmd:             cmd,
	})
	return s
}

// Configured reports whether this sandbox holds a go-plugin client.
func (s *Sandbox) Configured() bool { return s.client != nil }

// Close tears down the plugin subprocess, if one was started.
func (s *Sandbox) Close() {
	if s.client != nil {
		s.client.Kill()
	}
}

// Run executes fn (the tool's Call) in-process under the sandbox's
// timeout, for plugin sandboxes as well.
func (s *Sandbox) Run(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	type result struct {
		val any
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		done <- result{val, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("tool execution timed out after %s: %w", s.Timeout, ctx.Err())
	}
}
