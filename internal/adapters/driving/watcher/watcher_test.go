package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// recordingIngest captures every batch it receives.
type recordingIngest struct {
	mu      sync.Mutex
	batches [][]domain.Document
	err     error
}

func (r *recordingIngest) Ingest(_ context.Context, docs []domain.Document) (*domain.IngestReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, docs)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.IngestReport{DocumentsIndexed: len(docs), ChunksIndexed: len(docs)}, nil
}

func (r *recordingIngest) filenames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, batch := range r.batches {
		for _, d := range batch {
			names = append(names, d.Filename)
		}
	}
	return names
}

// startWatcher runs w in the background and waits until it is watching.
func startWatcher(t *testing.T, w *Watcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// fsnotify registration happens synchronously at the start of Run.
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func TestWatcher_IngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	ingest := &recordingIngest{}
	reports := make(chan *domain.IngestReport, 4)
	w := New(dir, ingest,
		WithDebounce(50*time.Millisecond),
		WithReportHandler(func(r *domain.IngestReport, _ error) { reports <- r }),
	)
	startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "france.txt"), []byte("Paris"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte("\x89PNG"), 0600))

	select {
	case report := <-reports:
		require.NotNil(t, report)
		assert.Equal(t, 1, report.DocumentsIndexed)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for ingestion")
	}
	assert.Equal(t, []string{"france.txt"}, ingest.filenames())
}

func TestWatcher_DebouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	ingest := &recordingIngest{}
	reports := make(chan *domain.IngestReport, 4)
	w := New(dir, ingest,
		WithDebounce(200*time.Millisecond),
		WithReportHandler(func(r *domain.IngestReport, _ error) { reports <- r }),
	)
	startWatcher(t, w)

	path := filepath.Join(dir, "notes.md")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("draft"), 0600))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-reports:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for ingestion")
	}
	assert.Equal(t, []string{"notes.md"}, ingest.filenames())
}

func TestWatcher_InitialScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.pdf"), []byte("%PDF-1.4"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "c.txt"), []byte("c"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.bin"), []byte("d"), 0600))

	ingest := &recordingIngest{}
	reports := make(chan *domain.IngestReport, 4)
	w := New(dir, ingest,
		WithInitialScan(true),
		WithReportHandler(func(r *domain.IngestReport, _ error) { reports <- r }),
	)
	startWatcher(t, w)

	select {
	case <-reports:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for initial scan")
	}
	assert.Equal(t, []string{"a.txt", "sub/b.pdf"}, ingest.filenames())
}

func TestWatcher_Run_Errors(t *testing.T) {
	t.Run("non-existent directory", func(t *testing.T) {
		w := New("/non/existent/path", &recordingIngest{})
		err := w.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("file instead of directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
		err := New(path, &recordingIngest{}).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("closed watcher", func(t *testing.T) {
		w := New(t.TempDir(), &recordingIngest{})
		require.NoError(t, w.Close())
		assert.ErrorIs(t, w.Run(context.Background()), ErrClosed)
	})
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, &recordingIngest{})

	file := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0600))
	unsupported := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(unsupported, []byte("png"), 0600))
	hidden := filepath.Join(dir, ".hidden.txt")
	require.NoError(t, os.WriteFile(hidden, []byte("hidden"), 0600))
	subdir := filepath.Join(dir, "testdir.txt")
	require.NoError(t, os.Mkdir(subdir, 0750))

	tests := []struct {
		name     string
		event    fsnotify.Event
		expected string
	}{
		{"create file", fsnotify.Event{Name: file, Op: fsnotify.Create}, file},
		{"write file", fsnotify.Event{Name: file, Op: fsnotify.Write}, file},
		{"write and chmod", fsnotify.Event{Name: file, Op: fsnotify.Write | fsnotify.Chmod}, file},
		{"chmod only", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, ""},
		{"remove", fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Remove}, ""},
		{"rename", fsnotify.Event{Name: filepath.Join(dir, "old.txt"), Op: fsnotify.Rename}, ""},
		{"unsupported type", fsnotify.Event{Name: unsupported, Op: fsnotify.Create}, ""},
		{"hidden file", fsnotify.Event{Name: hidden, Op: fsnotify.Write}, ""},
		{"directory", fsnotify.Event{Name: subdir, Op: fsnotify.Create}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.handleFsEvent(tt.event))
		})
	}
}

func TestWatcher_HiddenRootIsWatched(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".docqa", "inbox")
	require.NoError(t, os.MkdirAll(root, 0750))
	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0600))

	w := New(root, &recordingIngest{})

	assert.Equal(t, file, w.handleFsEvent(fsnotify.Event{Name: file, Op: fsnotify.Create}))
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"dir/.git/config", true},
		{".config/.cache/data", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestSourceName(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "docs")
	w := New(root, &recordingIngest{})

	assert.Equal(t, "a.txt", w.sourceName(filepath.Join(root, "a.txt")))
	assert.Equal(t, "sub/b.txt", w.sourceName(filepath.Join(root, "sub", "b.txt")))
	assert.Equal(t, "c.txt", w.sourceName(filepath.Join(string(filepath.Separator), "other", "c.txt")))
}
