package staging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestStoreWriteReportsEntry(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{Session: "s-1", Name: "0-report.pdf"}

	payload := []byte("payload")
	entry, err := store.Write(context.Background(), locator, writeBytes(payload))
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if entry.SizeBytes != int64(len(payload)) {
		t.Fatalf("size mismatch: %d", entry.SizeBytes)
	}
	if entry.FilePath != filepath.Join(store.Root(), "s-1", "0-report.pdf") {
		t.Fatalf("unexpected path: %s", entry.FilePath)
	}

	body, err := os.ReadFile(entry.FilePath)
	if err != nil {
		t.Fatalf("read staged body error: %v", err)
	}
	if !bytes.Equal(body, payload) {
		t.Fatalf("staged payload mismatch: %s", string(body))
	}
}

func TestStoreWriteCanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := store.Write(ctx, Locator{Session: "s-1", Name: "a.txt"}, func(io.Writer) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("canceled write should not run fill, err=%v called=%v", err, called)
	}
}

func TestStoreWriteFailureLeavesNothing(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{Session: "s-1", Name: "broken.txt"}

	_, err := store.Write(context.Background(), locator, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("peer went away")
	})
	if err == nil {
		t.Fatalf("write should fail")
	}

	entries, err := os.ReadDir(filepath.Join(store.Root(), "s-1"))
	if err != nil {
		t.Fatalf("read session dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("失败的写入不应留下文件: %v", entries)
	}
}

func TestStoreRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	bad := []Locator{
		{Session: "s-1", Name: "../escape"},
		{Session: "..", Name: "a.txt"},
		{Session: "", Name: "a.txt"},
		{Session: "s-1", Name: ""},
	}
	for _, loc := range bad {
		if _, err := store.Path(loc); !errors.Is(err, ErrInvalidLocator) {
			t.Fatalf("%+v should be rejected, got %v", loc, err)
		}
	}
}

func TestSessionsDoNotCollide(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for _, session := range []string{"alpha", "beta"} {
		wg.Add(1)
		go func(session string) {
			defer wg.Done()
			loc := Locator{Session: session, Name: "same.txt"}
			if _, err := store.Write(context.Background(), loc, writeBytes([]byte(session))); err != nil {
				t.Errorf("put %s: %v", session, err)
			}
		}(session)
	}
	wg.Wait()

	for _, session := range []string{"alpha", "beta"} {
		data, err := os.ReadFile(filepath.Join(store.Root(), session, "same.txt"))
		if err != nil {
			t.Fatalf("read %s: %v", session, err)
		}
		if string(data) != session {
			t.Fatalf("会话 %s 的暂存内容被覆盖: %s", session, data)
		}
	}
}

func TestLedgerCloseRemovesEverything(t *testing.T) {
	store := newTestStore(t)
	ledger := NewLedger(store, "s-2")
	ctx := context.Background()

	for _, name := range []string{"0-a.txt", "1-b.pdf"} {
		if _, err := ledger.Stage(ctx, name, func(w io.Writer) error {
			_, err := w.Write([]byte(name))
			return err
		}); err != nil {
			t.Fatalf("stage %s: %v", name, err)
		}
	}
	if _, path, err := ledger.Reserve("cfiles.tar"); err != nil {
		t.Fatalf("reserve: %v", err)
	} else if err := os.WriteFile(path, []byte("tar"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if ledger.Pending() != 3 {
		t.Fatalf("expected 3 pending entries, got %d", ledger.Pending())
	}

	if err := ledger.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "s-2")); !os.IsNotExist(err) {
		t.Fatalf("会话目录应被清理, stat err = %v", err)
	}
}

func TestLedgerReleaseIsImmediate(t *testing.T) {
	store := newTestStore(t)
	ledger := NewLedger(store, "s-3")
	ctx := context.Background()

	entry, err := ledger.Stage(ctx, "x.c", func(w io.Writer) error {
		_, err := w.Write([]byte("int main;"))
		return err
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := ledger.Release(ctx, entry.Locator); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ledger.Pending() != 0 {
		t.Fatalf("release should clear the obligation")
	}
	if _, err := os.Stat(entry.FilePath); !os.IsNotExist(err) {
		t.Fatalf("staged file should be gone")
	}
}

func writeBytes(payload []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
