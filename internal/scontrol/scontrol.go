package scontrol

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// NodeState is an administrative node state accepted by
// `scontrol update state=...`.
type NodeState string

const (
	StateDrain  NodeState = "drain"
	StateIdle   NodeState = "idle"
	StateResume NodeState = "resume"
)

// CommandError carries the diagnostic output of a failed administrative
// command so actions can report it back to the operator instead of
// raising an unhandled fault.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("scontrol %s: %s", strings.Join(e.Args, " "), e.Output)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Client invokes the workload manager's administrative CLI. Cluster
// node administrative state is authoritative externally; the client
// mutates no local state.
type Client struct{}

func NewClient() *Client { return &Client{} }

// UpdateNodes issues one batched state update for all listed nodes.
func (c *Client) UpdateNodes(ctx context.Context, nodes []string, state NodeState, reason string) error {
	args := []string{
		"update",
		"nodename=" + strings.Join(nodes, ","),
		"state=" + string(state),
	}
	if reason != "" {
		args = append(args, fmt.Sprintf("reason=%q", reason))
	}
	return c.run(ctx, args...)
}

// Drain marks nodes drained with a reason.
func (c *Client) Drain(ctx context.Context, nodes []string, reason string) error {
	return c.UpdateNodes(ctx, nodes, StateDrain, reason)
}

// Resume returns nodes to active scheduling.
func (c *Client) Resume(ctx context.Context, nodes []string) error {
	return c.UpdateNodes(ctx, nodes, StateResume, "")
}

// Reconfigure pushes a live re-read of the configuration to the
// running daemons.
func (c *Client) Reconfigure(ctx context.Context) error {
	return c.run(ctx, "reconfigure")
}

func (c *Client) run(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, "scontrol", args...).CombinedOutput()
	if err != nil {
		return &CommandError{Args: args, Output: strings.TrimSpace(string(out)), Err: err}
	}
	return nil
}
