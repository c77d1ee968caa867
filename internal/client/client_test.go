package client

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/any-hub/any-fs/internal/wire"
)

// fakeHub 在回环地址上接受一条连接，并用 script 驱动 hub 一侧的通道。
func fakeHub(t *testing.T, script func(ch *wire.Channel)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		ch := wire.NewChannel(conn, wire.Options{ReadTimeout: 2 * time.Second})
		defer ch.Close()
		if err := ch.SendLine("Welcome to S1 server."); err != nil {
			return
		}
		script(ch)
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), addr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDialReadsGreeting(t *testing.T) {
	addr := fakeHub(t, func(ch *wire.Channel) {
		line, err := ch.RecvLine()
		if err == nil && line == "TEST" {
			_ = ch.SendLine("S1 OK - All servers connected")
		}
	})
	c := dial(t, addr)
	require.Equal(t, "Welcome to S1 server.", c.Greeting())

	reply, err := c.Test(context.Background())
	require.NoError(t, err)
	require.Equal(t, "S1 OK - All servers connected", reply)
}

func TestUploadRefusesUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(good, []byte("alpha"), 0o644))
	missing := filepath.Join(dir, "missing.txt")

	got := make(chan []string, 1)
	addr := fakeHub(t, func(ch *wire.Channel) {
		var events []string
		line, _ := ch.RecvLine()
		events = append(events, line)
		_ = ch.SendLine("READY")

		var buf bytes.Buffer
		if _, err := ch.RecvFrame(&buf); err == nil {
			events = append(events, "frame:"+buf.String())
		}
		_, err := ch.RecvFrame(&buf)
		events = append(events, "second:"+err.Error())
		_ = ch.SendLine("PARTIAL SUCCESS: 1/2 files uploaded successfully")
		got <- events
	})

	reply, err := dial(t, addr).Upload(context.Background(), "~/S1/d", good, missing)
	require.NoError(t, err)
	require.Equal(t, "PARTIAL SUCCESS: 1/2 files uploaded successfully", reply)

	events := <-got
	require.Equal(t, "uploadf "+good+" "+missing+" ~/S1/d", events[0])
	require.Equal(t, "frame:alpha", events[1])
	require.Contains(t, events[2], "cannot read missing.txt")
}

func TestDownloadSavesByName(t *testing.T) {
	addr := fakeHub(t, func(ch *wire.Channel) {
		if _, err := ch.RecvLine(); err != nil {
			return
		}
		_ = ch.SendLine("READY 2")
		_ = ch.SendLine("a.txt")
		_ = ch.SendFrame(strings.NewReader("alpha"), 5)
		_ = ch.SendLine("b.pdf")
		_ = ch.SendLine("ERROR: staged file unavailable")
	})

	out := t.TempDir()
	result, err := dial(t, addr).Download(context.Background(), out, "~/S1/a.txt", "~/S1/b.pdf")
	require.NoError(t, err)
	require.Equal(t, "READY 2", result.Reply)
	require.Equal(t, []string{filepath.Join(out, "a.txt")}, result.Saved)

	data, err := os.ReadFile(filepath.Join(out, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "alpha", string(data))
	_, err = os.Stat(filepath.Join(out, "b.pdf"))
	require.True(t, os.IsNotExist(err))
}

func TestArchiveSavesAsKindName(t *testing.T) {
	addr := fakeHub(t, func(ch *wire.Channel) {
		if _, err := ch.RecvLine(); err != nil {
			return
		}
		_ = ch.SendLine("TAR_READY")
		_ = ch.SendFrame(strings.NewReader("tarball"), 7)
	})

	out := t.TempDir()
	result, err := dial(t, addr).Archive(context.Background(), ".pdf", out)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(out, "pdffiles.tar")}, result.Saved)
}

func TestParseListing(t *testing.T) {
	require.Equal(t, []string{"a.c", "b.pdf"}, ParseListing("a.c\nb.pdf\n"))
	require.Nil(t, ParseListing("No files found in the specified directory\n"))
	require.Nil(t, ParseListing("ERROR: Invalid command format. Command: dispfnames pathname"))
}
