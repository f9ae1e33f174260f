package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

const testSettle = 50 * time.Millisecond

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func receive(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case change, ok := <-changes:
		require.True(t, ok, "channel closed before a change arrived")
		return change
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for file change")
		return Change{}
	}
}

func TestNew(t *testing.T) {
	t.Run("uses default settle delay", func(t *testing.T) {
		c := New()
		assert.Equal(t, DefaultSettleDelay, c.settle)
	})

	t.Run("applies settle delay option", func(t *testing.T) {
		c := New(WithSettleDelay(time.Second))
		assert.Equal(t, time.Second, c.settle)
	})

	t.Run("ignores non-positive settle delay", func(t *testing.T) {
		c := New(WithSettleDelay(0))
		assert.Equal(t, DefaultSettleDelay, c.settle)
	})

	t.Run("implements PDFSource interface", func(t *testing.T) {
		var _ driven.PDFSource = New()
	})
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"guide.pdf", true},
		{"GUIDE.PDF", true},
		{"/docs/Money.Pdf", true},
		{"notes.txt", false},
		{"pdf", false},
		{"archive.pdf.zip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPDF(tt.path))
		})
	}
}

func TestConnector_List(t *testing.T) {
	t.Run("returns visible PDFs sorted by path", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "savings.pdf"), "b")
		writeFile(t, filepath.Join(dir, "Budget.PDF"), "aa")
		writeFile(t, filepath.Join(dir, "notes.txt"), "x")
		writeFile(t, filepath.Join(dir, ".draft.pdf"), "x")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))
		writeFile(t, filepath.Join(dir, "nested.pdf", "inner.pdf"), "x")

		files, err := New().List(context.Background(), dir)
		require.NoError(t, err)

		require.Len(t, files, 2)
		assert.Equal(t, filepath.Join(dir, "Budget.PDF"), files[0].Path)
		assert.Equal(t, int64(2), files[0].Size)
		assert.Equal(t, filepath.Join(dir, "savings.pdf"), files[1].Path)
		assert.False(t, files[1].ModTime.IsZero())
	})

	t.Run("returns nothing for directory without PDFs", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "readme.md"), "x")

		files, err := New().List(context.Background(), dir)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("fails for missing directory", func(t *testing.T) {
		_, err := New().List(context.Background(), filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read directory")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.pdf"), "x")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New().List(ctx, dir)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestConnector_Stat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.pdf")
	writeFile(t, path, "12345")

	t.Run("describes file", func(t *testing.T) {
		f, err := New().Stat(path)
		require.NoError(t, err)
		assert.Equal(t, path, f.Path)
		assert.Equal(t, int64(5), f.Size)
	})

	t.Run("rejects directory", func(t *testing.T) {
		_, err := New().Stat(dir)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("fails for missing file", func(t *testing.T) {
		_, err := New().Stat(filepath.Join(dir, "missing.pdf"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestConnector_Watch(t *testing.T) {
	t.Run("reports created PDF once", func(t *testing.T) {
		dir := t.TempDir()
		c := New(WithSettleDelay(testSettle))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := c.Watch(ctx, dir)
		require.NoError(t, err)

		path := filepath.Join(dir, "new.pdf")
		writeFile(t, path, "part one")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString(" part two")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		change := receive(t, changes)
		assert.Equal(t, Change{Path: path, Type: ChangeCreated}, change)

		select {
		case extra := <-changes:
			t.Fatalf("unexpected second change %+v", extra)
		case <-time.After(4 * testSettle):
		}
	})

	t.Run("reports modified PDF", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "guide.pdf")
		writeFile(t, path, "initial")

		c := New(WithSettleDelay(testSettle))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := c.Watch(ctx, dir)
		require.NoError(t, err)

		writeFile(t, path, "modified")

		change := receive(t, changes)
		assert.Equal(t, ChangeUpdated, change.Type)
		assert.Equal(t, path, change.Path)
	})

	t.Run("reports removed PDF", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "old.pdf")
		writeFile(t, path, "bye")

		c := New(WithSettleDelay(testSettle))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := c.Watch(ctx, dir)
		require.NoError(t, err)

		require.NoError(t, os.Remove(path))

		change := receive(t, changes)
		assert.Equal(t, Change{Path: path, Type: ChangeRemoved}, change)
	})

	t.Run("ignores other files", func(t *testing.T) {
		dir := t.TempDir()
		c := New(WithSettleDelay(testSettle))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := c.Watch(ctx, dir)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "notes.txt"), "x")
		writeFile(t, filepath.Join(dir, ".hidden.pdf"), "x")
		writeFile(t, filepath.Join(dir, "real.pdf"), "x")

		change := receive(t, changes)
		assert.Equal(t, filepath.Join(dir, "real.pdf"), change.Path)
	})

	t.Run("fails for missing directory", func(t *testing.T) {
		changes, err := New().Watch(context.Background(), "/non/existent/path")
		assert.Error(t, err)
		assert.Nil(t, changes)
	})

	t.Run("fails for a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.pdf")
		writeFile(t, path, "x")

		_, err := New().Watch(context.Background(), path)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		c := New()
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())

		changes, err := c.Watch(ctx, t.TempDir())
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("closes channel when connector is closed", func(t *testing.T) {
		c := New()
		changes, err := c.Watch(context.Background(), t.TempDir())
		require.NoError(t, err)

		require.NoError(t, c.Close())

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after connector close")
		}
	})

	t.Run("returns error when connector is closed", func(t *testing.T) {
		c := New()
		require.NoError(t, c.Close())

		changes, err := c.Watch(context.Background(), t.TempDir())
		assert.ErrorIs(t, err, ErrClosed)
		assert.Nil(t, changes)
	})
}

func TestConnector_Close(t *testing.T) {
	c := New()

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		prev ChangeType
		next ChangeType
		want ChangeType
	}{
		{"first event", "", ChangeUpdated, ChangeUpdated},
		{"write after create", ChangeCreated, ChangeUpdated, ChangeCreated},
		{"remove after create", ChangeCreated, ChangeRemoved, ChangeRemoved},
		{"create after remove", ChangeRemoved, ChangeCreated, ChangeCreated},
		{"write after write", ChangeUpdated, ChangeUpdated, ChangeUpdated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merge(tt.prev, tt.next))
		})
	}
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name      string
		setupFile bool
		setupDir  bool
		fileName  string
		operation fsnotify.Op
		want      bool
		wantType  ChangeType
	}{
		{name: "create", setupFile: true, fileName: "a.pdf", operation: fsnotify.Create, want: true, wantType: ChangeCreated},
		{name: "write", setupFile: true, fileName: "a.pdf", operation: fsnotify.Write, want: true, wantType: ChangeUpdated},
		{name: "write and chmod", setupFile: true, fileName: "a.pdf", operation: fsnotify.Write | fsnotify.Chmod, want: true, wantType: ChangeUpdated},
		{name: "remove", fileName: "a.pdf", operation: fsnotify.Remove, want: true, wantType: ChangeRemoved},
		{name: "rename", fileName: "a.pdf", operation: fsnotify.Rename, want: true, wantType: ChangeRemoved},
		{name: "chmod only", setupFile: true, fileName: "a.pdf", operation: fsnotify.Chmod},
		{name: "create vanished before stat", fileName: "gone.pdf", operation: fsnotify.Create},
		{name: "directory named like a PDF", setupDir: true, fileName: "dir.pdf", operation: fsnotify.Create},
		{name: "not a PDF", setupFile: true, fileName: "a.txt", operation: fsnotify.Create},
		{name: "hidden PDF", setupFile: true, fileName: ".a.pdf", operation: fsnotify.Create},
		{name: "hidden PDF removed", fileName: ".a.pdf", operation: fsnotify.Remove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.fileName)
			if tt.setupFile {
				writeFile(t, path, "content")
			}
			if tt.setupDir {
				require.NoError(t, os.Mkdir(path, 0o755))
			}

			change := handleFsEvent(fsnotify.Event{Name: path, Op: tt.operation})

			if !tt.want {
				assert.Nil(t, change)
				return
			}
			require.NotNil(t, change)
			assert.Equal(t, tt.wantType, change.Type)
			assert.Equal(t, path, change.Path)
		})
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".hidden.pdf", true},
		{"docs/.drafts/a.pdf", true},
		{"/home/user/.cache/a.pdf", true},
		{"a.pdf", false},
		{"docs/a.pdf", false},
		{"./a.pdf", false},
		{"../docs/a.pdf", false},
		{"file.hidden", false},
		{"", false},
		{"/", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isHidden(tt.path))
		})
	}
}
