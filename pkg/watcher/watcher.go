package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/unitgen/pkg/logging"
	"github.com/ritzau/unitgen/pkg/scanner"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypePackage ChangeType = iota // Package directory added, removed or renamed
	ChangeTypeSource                    // Header, source, test or entry point file
	ChangeTypeTable                     // Implicit unit table
)

func (c ChangeType) String() string {
	switch c {
	case ChangeTypePackage:
		return "package"
	case ChangeTypeSource:
		return "source"
	case ChangeTypeTable:
		return "table"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchDelay groups the burst of events a single save produces
const batchDelay = 100 * time.Millisecond

// FileWatcher watches a source tree for file changes
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	table   string
	rules   scanner.Rules
	events  chan ChangeEvent
	mu      sync.Mutex
	watched map[string]bool
}

// NewFileWatcher creates a watcher for the packages below root. table is
// the implicit unit table, or empty.
func NewFileWatcher(root, table string, rules scanner.Rules) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		root:    filepath.Clean(root),
		rules:   rules,
		events:  make(chan ChangeEvent, 100),
		watched: make(map[string]bool),
	}
	if table != "" {
		fw.table = filepath.Clean(table)
	}

	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	if err := fw.add(fw.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", fw.root, err)
	}

	entries, err := os.ReadDir(fw.root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", fw.root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := fw.add(filepath.Join(fw.root, e.Name())); err != nil {
				logging.Warn("failed to watch directory", "path", e.Name(), "error", err)
			}
		}
	}

	// Editors replace files by rename, so watch the directory of the table
	if fw.table != "" {
		if err := fw.add(filepath.Dir(fw.table)); err != nil {
			logging.Warn("failed to watch implicit unit table", "path", fw.table, "error", err)
		}
	}

	logging.Info("started watching source tree", "path", fw.root, "directories", len(fw.watched))

	go fw.processEvents(ctx)

	return nil
}

func (fw *FileWatcher) add(dir string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.watched[dir] {
		return nil
	}
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}
	fw.watched[dir] = true
	return nil
}

// Classify maps a file system event to a change type. Events outside the
// package level of the tree, and files the scanner ignores, are dropped.
func (fw *FileWatcher) Classify(name string, op fsnotify.Op) (ChangeType, bool) {
	name = filepath.Clean(name)
	if fw.table != "" && name == fw.table {
		return ChangeTypeTable, true
	}

	rel, err := filepath.Rel(fw.root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return 0, false
	}

	switch parts := strings.Split(filepath.ToSlash(rel), "/"); len(parts) {
	case 1:
		if op.Has(fsnotify.Create) || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			return ChangeTypePackage, true
		}
	case 2:
		if role, _ := fw.rules.Classify(parts[1]); role != scanner.RoleIgnored {
			return ChangeTypeSource, true
		}
	}
	return 0, false
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	batches := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchDelay)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeTable, ChangeTypePackage, ChangeTypeSource} {
			if len(batches[t]) > 0 {
				fw.events <- ChangeEvent{
					Type:      t,
					Paths:     batches[t],
					Timestamp: time.Now(),
				}
			}
		}
		batches = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			_ = fw.watcher.Close()
			close(fw.events)
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				close(fw.events)
				return
			}

			t, relevant := fw.Classify(event.Name, event.Op)
			if !relevant {
				continue
			}
			logging.Trace("file change", "type", t.String(), "path", event.Name, "op", event.Op.String())

			// New packages have to be watched before their files change
			if t == ChangeTypePackage && event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.add(event.Name); err != nil {
						logging.Warn("failed to watch new package", "path", event.Name, "error", err)
					}
				}
			}

			batches[t] = append(batches[t], event.Name)
			flushTimer.Reset(batchDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				close(fw.events)
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	return fw.watcher.Close()
}
