package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_EventAndReanalysis(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	runs := 0

	go func() {
		_ = Watch(ctx, root, nil, 50*time.Millisecond, testLogger(),
			func(kind, path string) {
				mu.Lock()
				events = append(events, kind+":"+path)
				mu.Unlock()
			},
			func() {
				mu.Lock()
				runs++
				mu.Unlock()
			})
	}()

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md callback")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 1
	}, "debounced re-analysis never fired")
}

func TestWatch_BurstCoalesced(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	runs := 0

	go func() {
		_ = Watch(ctx, root, nil, 200*time.Millisecond, testLogger(), nil, func() {
			mu.Lock()
			runs++
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// A burst of writes inside the quiet period collapses into one run.
	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(root, "burst.md"), []byte("x"), 0o644)
		time.Sleep(20 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 1
	}, "re-analysis never fired")

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	got := runs
	mu.Unlock()
	if got != 1 {
		t.Errorf("runs = %d, want 1 for a single burst", got)
	}
}

func TestWatch_NewDirWatched(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go func() {
		_ = Watch(ctx, root, nil, 50*time.Millisecond, testLogger(),
			func(kind, path string) {
				mu.Lock()
				events = append(events, kind+":"+path)
				mu.Unlock()
			}, func() {})
	}()

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(root, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:subdir/deep.md" {
				return true
			}
		}
		return false
	}, "file in new subdir not seen by watcher")
}

func TestWatch_NonDocIgnored(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go func() {
		_ = Watch(ctx, root, []string{".md"}, 50*time.Millisecond, testLogger(),
			func(kind, path string) {
				mu.Lock()
				events = append(events, path)
				mu.Unlock()
			}, func() {})
	}()

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 0 {
		t.Errorf("events = %v, want none for non-document files", events)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, root, nil, 50*time.Millisecond, testLogger(), nil, func() {})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
