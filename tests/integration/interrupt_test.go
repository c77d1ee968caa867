package integration

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/any-hub/any-fs/internal/staging"
	"github.com/any-hub/any-fs/internal/wire"
)

// 上传方声明 64 字节后只发出一部分就断开，暂存区不能留下任何文件。
func TestStagingCleanupOnInterruptedFrame(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := staging.NewStore(tmpDir)
	if err != nil {
		t.Fatalf("store init error: %v", err)
	}

	hubSide, peer := net.Pipe()
	ch := wire.NewChannel(hubSide, wire.Options{ReadTimeout: 2 * time.Second, HeaderBackoff: 10 * time.Millisecond})
	defer ch.Close()

	go func() {
		defer peer.Close()
		var header [8]byte
		binary.LittleEndian.PutUint64(header[:], 64)
		_, _ = peer.Write(header[:])
		_, _ = peer.Write([]byte("partial_data"))
	}()

	ledger := staging.NewLedger(store, "interrupt")
	_, err = ledger.Stage(context.Background(), "0-blob.pdf", func(w io.Writer) error {
		_, err := ch.RecvFrame(w)
		return err
	})
	if !errors.Is(err, wire.ErrTruncated) {
		t.Fatalf("expected truncated frame error, got %v", err)
	}

	target := filepath.Join(tmpDir, "interrupt", "0-blob.pdf")
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no final file, got err=%v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(tmpDir, "interrupt", ".part-*"))
	if len(matches) != 0 {
		t.Fatalf("temporary files should be cleaned up, found %v", matches)
	}

	if err := ledger.Close(context.Background()); err != nil {
		t.Fatalf("ledger close error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "interrupt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("session dir should be removed, got err=%v", err)
	}
}
