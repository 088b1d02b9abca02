package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ritzau/unitgen/pkg/deps"
	"github.com/ritzau/unitgen/pkg/flatten"
	"github.com/ritzau/unitgen/pkg/graph"
	"github.com/ritzau/unitgen/pkg/implicit"
	"github.com/ritzau/unitgen/pkg/logging"
	"github.com/ritzau/unitgen/pkg/model"
	"github.com/ritzau/unitgen/pkg/scanner"
	"github.com/ritzau/unitgen/pkg/units"
	"github.com/ritzau/unitgen/pkg/validate"
)

// Stage names one step of a generator run
type Stage string

const (
	StageLoad     Stage = "load"
	StageScan     Stage = "scan"
	StageExtract  Stage = "extract"
	StageValidate Stage = "validate"
	StageFlatten  Stage = "flatten"
	StageRender   Stage = "render"
	StageWrite    Stage = "write"
)

// StageError tags a failure with the stage that produced it
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options configures a generator run
type Options struct {
	Workspace string // Directory every other path is relative to
	Root      string // Source root, e.g. "src"
	Output    string // Generated unit file
	Implicit  string // Implicit unit table, empty for none
	Prefix    string // Intra-tree include prefix
	Rules     scanner.Rules
	Units     units.Options
	DryRun    bool   // Render without writing
	Reason    string // e.g. "initial run", "source changed"
}

// Analysis is the validated input of unit emission
type Analysis struct {
	Table      *implicit.Table
	Tree       *model.Tree
	References map[string][]model.Dependency
	Warnings   []deps.UnknownPackageWarning
}

// Result describes a completed run
type Result struct {
	RunID string
	*Analysis
	Closure flatten.Closure
	Units   []model.Unit
	Text    []byte
	Output  string // Unit file path, joined with the workspace
	Written bool   // False when dry running or the file was up to date
	DryRun  bool
	Elapsed time.Duration
}

// Runner executes generator runs. Runs are serialized.
type Runner struct {
	fsys fs.FS
	opts Options
	mu   sync.Mutex
}

// New creates a runner reading the workspace from disk
func New(opts Options) *Runner {
	if opts.Workspace == "" {
		opts.Workspace = "."
	}
	return NewWithFS(os.DirFS(opts.Workspace), opts)
}

// NewWithFS creates a runner reading sources from fsys. Output and the
// implicit table are still resolved against Options.Workspace on disk.
func NewWithFS(fsys fs.FS, opts Options) *Runner {
	if opts.Root == "" {
		opts.Root = "src"
	}
	if opts.Rules.EntryPoint == "" && len(opts.Rules.SourceExts) == 0 {
		opts.Rules = scanner.DefaultRules()
	}
	return &Runner{fsys: fsys, opts: opts}
}

// Options returns the effective options
func (r *Runner) Options() Options {
	return r.opts
}

// Analyze loads the implicit table, scans the tree and extracts
// dependencies. Nothing is validated.
func (r *Runner) Analyze(ctx context.Context) (*Analysis, error) {
	logger := logging.New("pipeline")

	table, err := implicit.Load(r.path(r.opts.Implicit))
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	logger.Debug("implicit unit table loaded", "headers", table.Len(), "units", len(table.Units()))

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageScan, Err: err}
	}
	tree, err := scanner.Scan(r.fsys, r.opts.Root, r.opts.Rules)
	if err != nil {
		return nil, &StageError{Stage: StageScan, Err: err}
	}

	extracted, err := deps.NewExtractor(r.fsys, table, r.opts.Prefix).Extract(ctx, tree)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}

	return &Analysis{
		Table:      table,
		Tree:       extracted.Tree,
		References: extracted.References,
		Warnings:   extracted.Warnings,
	}, nil
}

// Check analyzes and validates the tree
func (r *Runner) Check(ctx context.Context) (*Analysis, error) {
	a, err := r.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate.Check(a.Tree, a.Table); err != nil {
		return a, &StageError{Stage: StageValidate, Err: err}
	}
	return a, nil
}

// Graph returns the package graph of an unvalidated analysis, so cycles can
// be drawn
func (r *Runner) Graph(ctx context.Context) (*graph.PackageGraph, error) {
	a, err := r.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Build(a.Tree, a.Table), nil
}

// Run executes every stage and writes the unit file when its text changed.
// Any failure aborts before the write, leaving a previous file untouched.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	runID := logging.GetRunID(ctx)
	if runID == "" {
		runID = logging.NewRunID()
		ctx = logging.WithRunID(ctx, runID)
	}
	logging.InfoContext(ctx, "generating units", "reason", r.opts.Reason, "root", r.opts.Root)

	a, err := r.Check(ctx)
	if err != nil {
		logging.DebugContext(ctx, "generation failed", "error", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageFlatten, Err: err}
	}
	closure := flatten.Flatten(a.Tree, a.Table)

	emitted := units.Emit(a.Tree, closure, r.opts.Units)

	text, err := units.Render(emitted)
	if err != nil {
		return nil, &StageError{Stage: StageRender, Err: err}
	}

	result := &Result{
		RunID:    runID,
		Analysis: a,
		Closure:  closure,
		Units:    emitted,
		Text:     text,
		Output:   r.path(r.opts.Output),
		DryRun:   r.opts.DryRun,
	}

	if !r.opts.DryRun && r.opts.Output != "" {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: StageWrite, Err: err}
		}
		written, err := WriteIfChanged(result.Output, text)
		if err != nil {
			return nil, &StageError{Stage: StageWrite, Err: err}
		}
		result.Written = written
	}

	result.Elapsed = time.Since(start)
	logging.InfoContext(ctx, "generation complete",
		"packages", len(a.Tree.Packages),
		"units", len(emitted),
		"warnings", len(a.Warnings),
		"written", result.Written,
		"durationMs", result.Elapsed.Milliseconds())
	return result, nil
}

func (r *Runner) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.opts.Workspace, p)
}

// WriteIfChanged replaces path with data through a temporary file in the
// same directory. It reports false when the file already holds data.
func WriteIfChanged(path string, data []byte) (bool, error) {
	if current, err := os.ReadFile(path); err == nil && string(current) == string(data) {
		return false, nil
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return false, fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("replacing %s: %w", path, err)
	}
	return true, nil
}
