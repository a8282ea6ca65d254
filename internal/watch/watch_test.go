package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := New(dir, ".bc3")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DetectsChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "obra.BC3")
	if err := os.WriteFile(file, []byte("~V|a|FIEBDC-3/2020|\r\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := startWatcher(t, dir)

	if err := os.WriteFile(file, []byte("~V|b|FIEBDC-3/2020|\r\n"), 0o644); err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case change := <-w.Changes:
		if change.Kind != ChangeModified {
			t.Errorf("expected ChangeModified, got %s", change.Kind)
		}
		if change.File != file {
			t.Errorf("file = %q, want %q", change.File, file)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "obra.bc3")

	w := startWatcher(t, dir)

	for i := range 5 {
		data := []byte{'~', 'V', '|', byte('0' + i), '|'}
		if err := os.WriteFile(file, data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	select {
	case <-w.Changes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	select {
	case change := <-w.Changes:
		t.Errorf("burst produced a second event: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "obra.bc3")
	if err := os.WriteFile(file, []byte("~V|a|"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := startWatcher(t, dir)

	if err := os.Remove(file); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case change := <-w.Changes:
		if change.Kind != ChangeRemoved {
			t.Errorf("expected ChangeRemoved, got %s", change.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for removal event")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case change := <-w.Changes:
		t.Errorf("unexpected change event: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), ".bc3")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err == nil {
		t.Error("expected error watching a missing directory")
	}
	w.watcher.Close()
}

func TestChangeKind_String(t *testing.T) {
	t.Parallel()
	if ChangeModified.String() != "modified" || ChangeRemoved.String() != "removed" {
		t.Errorf("got %s/%s", ChangeModified, ChangeRemoved)
	}
}

func TestWatcher_StopWithoutReader(t *testing.T) {
	tests := []struct {
		name   string
		settle time.Duration
	}{
		{"settled changes fill the channel", 4 * Debounce},
		{"changes still pending", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			w, err := New(dir, ".bc3")
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if err := w.Start(); err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			for i := range 40 {
				file := filepath.Join(dir, fmt.Sprintf("obra%02d.bc3", i))
				if err := os.WriteFile(file, []byte("~V|a|"), 0o644); err != nil {
					t.Fatalf("write: %v", err)
				}
			}
			time.Sleep(tt.settle)

			stopped := make(chan struct{})
			go func() {
				w.Stop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(2 * time.Second):
				t.Fatal("Stop blocked with nobody reading Changes")
			}

			n := 0
			for range w.Changes {
				n++
			}
			if n > cap(w.changes) {
				t.Errorf("drained %d changes, channel holds %d", n, cap(w.changes))
			}
		})
	}
}
