package tundra

import (
	"context"
)

// MockExecutor is a mock implementation of Executor for testing
type MockExecutor struct {
	MockOutput []byte
	MockError  error
	Dirs       []string // Directories ListTargets was called with
}

func (m *MockExecutor) ListTargets(ctx context.Context, dir string) ([]byte, error) {
	m.Dirs = append(m.Dirs, dir)
	return m.MockOutput, m.MockError
}
