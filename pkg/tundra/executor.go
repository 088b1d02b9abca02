package tundra

import (
	"context"
	"fmt"
	"os/exec"
)

// DefaultBinary is the orchestrator executable looked up on PATH
const DefaultBinary = "tundra2"

// Executor handles the execution of tundra commands
type Executor interface {
	ListTargets(ctx context.Context, dir string) ([]byte, error)
}

// DefaultExecutor runs the real binary
type DefaultExecutor struct {
	Binary string
}

// NewExecutor creates a new default tundra executor
func NewExecutor() Executor {
	return &DefaultExecutor{Binary: DefaultBinary}
}

// ListTargets runs "tundra2 -t" in dir and returns its output.
// It respects the provided context for cancellation.
func (e *DefaultExecutor) ListTargets(ctx context.Context, dir string) ([]byte, error) {
	bin := e.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	cmd := exec.CommandContext(ctx, bin, "-t")
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s -t failed: %w\nOutput: %s", bin, err, string(output))
	}

	return output, nil
}
