package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/unitgen/pkg/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	fw, err := NewFileWatcher("/work/src", "/work/scripts/implicit-units.json", scanner.DefaultRules())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.Stop() })

	tests := []struct {
		name     string
		op       fsnotify.Op
		want     ChangeType
		relevant bool
	}{
		{"/work/scripts/implicit-units.json", fsnotify.Write, ChangeTypeTable, true},
		{"/work/scripts/other.json", fsnotify.Write, 0, false},
		{"/work/src/render", fsnotify.Create, ChangeTypePackage, true},
		{"/work/src/render", fsnotify.Remove, ChangeTypePackage, true},
		{"/work/src/render", fsnotify.Chmod, 0, false},
		{"/work/src/math/vec3.hh", fsnotify.Write, ChangeTypeSource, true},
		{"/work/src/math/vec3_test.cc", fsnotify.Create, ChangeTypeSource, true},
		{"/work/src/os/file_linux.cc", fsnotify.Remove, ChangeTypeSource, true},
		{"/work/src/math/notes.txt", fsnotify.Write, 0, false},
		{"/work/src/math/sub/x.cc", fsnotify.Write, 0, false},
		{"/work/src", fsnotify.Remove, 0, false},
		{"/work/units-generated.lua", fsnotify.Write, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name+" "+tt.op.String(), func(t *testing.T) {
			got, relevant := fw.Classify(tt.name, tt.op)
			assert.Equal(t, tt.relevant, relevant)
			if tt.relevant {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDebouncerMergesBursts(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 20*time.Millisecond, time.Second)
	d.Start(context.Background())

	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"a.cc"}}
	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"b.cc"}}
	input <- ChangeEvent{Type: ChangeTypeTable, Paths: []string{"t.json"}}

	first := receive(t, d.Output())
	assert.Equal(t, ChangeTypeTable, first.Type)

	second := receive(t, d.Output())
	assert.Equal(t, ChangeTypeSource, second.Type)
	assert.Equal(t, []string{"a.cc", "b.cc"}, second.Paths)

	close(input)
	_, ok := <-d.Output()
	assert.False(t, ok)
}

func TestDebouncerMaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, time.Hour, 30*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypePackage, Paths: []string{"src/new"}}

	got := receive(t, d.Output())
	assert.Equal(t, []string{"src/new"}, got.Paths)
}

func TestAnalyzeChanges(t *testing.T) {
	tests := []struct {
		events []ChangeEvent
		want   string
	}{
		{nil, "no changes"},
		{[]ChangeEvent{{Type: ChangeTypeSource, Paths: []string{"a.cc"}}}, "source files changed"},
		{[]ChangeEvent{{Type: ChangeTypeSource}, {Type: ChangeTypePackage}}, "package added or removed"},
		{[]ChangeEvent{{Type: ChangeTypePackage}, {Type: ChangeTypeTable}}, "implicit unit table changed"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AnalyzeChanges(tt.events...).Reason)
	}

	a := AnalyzeChanges(
		ChangeEvent{Type: ChangeTypeSource, Paths: []string{"a.cc"}},
		ChangeEvent{Type: ChangeTypeSource, Paths: []string{"b.cc"}},
	)
	assert.Equal(t, []ChangeType{ChangeTypeSource}, a.Types)
	assert.Equal(t, []string{"a.cc", "b.cc"}, a.ChangedFiles)
}

func TestFileWatcherSeesNewPackage(t *testing.T) {
	root := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "math"), 0o755))

	fw, err := NewFileWatcher(root, "", scanner.DefaultRules())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(root, "math", "vec3.hh"), nil, 0o644))
	got := receive(t, fw.Events())
	assert.Equal(t, ChangeTypeSource, got.Type)

	require.NoError(t, os.Mkdir(filepath.Join(root, "render"), 0o755))
	got = receive(t, fw.Events())
	assert.Equal(t, ChangeTypePackage, got.Type)

	// The new package is watched as well
	require.NoError(t, os.WriteFile(filepath.Join(root, "render", "gpu.cc"), nil, 0o644))
	got = receive(t, fw.Events())
	assert.Equal(t, ChangeTypeSource, got.Type)
	assert.Contains(t, got.Paths, filepath.Join(root, "render", "gpu.cc"))
}

func receive(t *testing.T, ch <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
		return ChangeEvent{}
	}
}
