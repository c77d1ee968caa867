package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func pipe(t *testing.T, opts Options) (*Channel, *Channel) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return NewChannel(a, opts), NewChannel(b, opts)
}

func goSend(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	return done
}

func rawHeader(size int64) []byte {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(size))
	return header[:]
}

func TestFrameRoundTripAcrossBlocks(t *testing.T) {
	sender, receiver := pipe(t, Options{})
	payload := bytes.Repeat([]byte("any-fs"), 3*BlockSize)

	done := goSend(func() error {
		return sender.SendFrame(bytes.NewReader(payload), int64(len(payload)))
	})

	var got bytes.Buffer
	n, err := receiver.RecvFrame(&got)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, int64(len(payload)), n)
	require.Equal(t, payload, got.Bytes())
}

func TestRecvFrameRejectsInvalidHeaderWithoutBody(t *testing.T) {
	for _, size := range []int64{0, -5, MaxFrameSize + 1} {
		sender, receiver := pipe(t, Options{})
		done := goSend(func() error {
			msg := append(rawHeader(size), []byte("next\x00")...)
			_, err := sender.conn.Write(msg)
			return err
		})

		_, err := receiver.RecvFrame(io.Discard)
		require.ErrorIs(t, err, ErrCorruptHeader)

		line, err := receiver.RecvLine()
		require.NoError(t, err)
		require.Equal(t, "next", line, "body must not be consumed for size %d", size)
		require.NoError(t, <-done)
	}
}

func TestSendFrameRejectsInvalidSizeWithoutWriting(t *testing.T) {
	sender, receiver := pipe(t, Options{})

	done := goSend(func() error {
		if err := sender.SendFrame(bytes.NewReader(nil), 0); !errors.Is(err, ErrInvalidFrameSize) {
			return err
		}
		if err := sender.SendFrame(bytes.NewReader(nil), MaxFrameSize+1); !errors.Is(err, ErrInvalidFrameSize) {
			return err
		}
		return sender.SendLine("after")
	})

	line, err := receiver.RecvLine()
	require.NoError(t, err)
	require.Equal(t, "after", line)
	require.NoError(t, <-done)
}

func TestLinesAndFramesShareOneStream(t *testing.T) {
	sender, receiver := pipe(t, Options{})

	done := goSend(func() error {
		var burst bytes.Buffer
		burst.WriteString("READY 1\x00report.pdf\x00")
		burst.Write(rawHeader(5))
		burst.WriteString("hello")
		burst.WriteString("multi\nline\x00")
		_, err := sender.conn.Write(burst.Bytes())
		return err
	})

	line, err := receiver.RecvLine()
	require.NoError(t, err)
	require.Equal(t, "READY 1", line)

	name, err := receiver.RecvLine()
	require.NoError(t, err)
	require.Equal(t, "report.pdf", name)

	var body bytes.Buffer
	_, err = receiver.RecvFrame(&body)
	require.NoError(t, err)
	require.Equal(t, "hello", body.String())

	line, err = receiver.RecvLine()
	require.NoError(t, err)
	require.Equal(t, "multi\nline", line)
	require.NoError(t, <-done)
}

func TestRecvFrameReportsRefusal(t *testing.T) {
	sender, receiver := pipe(t, Options{})
	done := goSend(func() error { return sender.SendLine("ERROR") })

	_, err := receiver.RecvFrame(io.Discard)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, "ERROR", remote.Message)
	require.True(t, Recoverable(err))
	require.NoError(t, <-done)
}

func TestRecvFrameTruncated(t *testing.T) {
	sender, receiver := pipe(t, Options{})
	go func() {
		_, _ = sender.conn.Write(append(rawHeader(100), []byte("short")...))
		_ = sender.Close()
	}()

	n, err := receiver.RecvFrame(io.Discard)
	require.ErrorIs(t, err, ErrTruncated)
	require.Equal(t, int64(5), n)
	require.False(t, Recoverable(err))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestRecvFrameDrainsOnSinkFailure(t *testing.T) {
	sender, receiver := pipe(t, Options{})
	payload := bytes.Repeat([]byte{7}, BlockSize+10)

	done := goSend(func() error {
		if err := sender.SendFrame(bytes.NewReader(payload), int64(len(payload))); err != nil {
			return err
		}
		return sender.SendLine("still aligned")
	})

	n, err := receiver.RecvFrame(failingWriter{})
	require.ErrorIs(t, err, ErrSinkFailed)
	require.Equal(t, int64(len(payload)), n)
	require.True(t, Recoverable(err))

	line, err := receiver.RecvLine()
	require.NoError(t, err)
	require.Equal(t, "still aligned", line)
	require.NoError(t, <-done)
}

func TestRecvFrameRetriesSlowHeader(t *testing.T) {
	opts := Options{HeaderWait: 100 * time.Millisecond, HeaderBackoff: 10 * time.Millisecond}
	sender, receiver := pipe(t, opts)

	done := goSend(func() error {
		msg := append(rawHeader(3), []byte("abc")...)
		if _, err := sender.conn.Write(msg[:3]); err != nil {
			return err
		}
		time.Sleep(150 * time.Millisecond)
		_, err := sender.conn.Write(msg[3:])
		return err
	})

	var body bytes.Buffer
	_, err := receiver.RecvFrame(&body)
	require.NoError(t, err)
	require.Equal(t, "abc", body.String())
	require.NoError(t, <-done)
}

func TestRecvFrameGivesUpAfterThreeAttempts(t *testing.T) {
	opts := Options{HeaderWait: 20 * time.Millisecond, HeaderBackoff: 5 * time.Millisecond}
	_, receiver := pipe(t, opts)

	start := time.Now()
	_, err := receiver.RecvFrame(io.Discard)
	require.Error(t, err)
	require.True(t, isTimeout(err), "expected timeout, got %v", err)
	require.GreaterOrEqual(t, time.Since(start), 3*opts.HeaderWait)
}

func TestRecvLineLimits(t *testing.T) {
	sender, receiver := pipe(t, Options{})
	go func() {
		_, _ = sender.conn.Write(bytes.Repeat([]byte("x"), MaxLineSize+BlockSize))
	}()

	_, err := receiver.RecvLine()
	require.ErrorIs(t, err, ErrLineTooLong)
}

func TestRecvLineCleanEOF(t *testing.T) {
	sender, receiver := pipe(t, Options{})
	_ = sender.Close()

	_, err := receiver.RecvLine()
	require.ErrorIs(t, err, io.EOF)
}

func TestSendLineRejectsNUL(t *testing.T) {
	sender, _ := pipe(t, Options{})
	require.ErrorIs(t, sender.SendLine("a\x00b"), ErrInvalidMessage)
}

func TestSendFileRefusesEmptyAndMissing(t *testing.T) {
	sender, _ := pipe(t, Options{})
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	_, err := sender.SendFile(empty)
	require.ErrorIs(t, err, ErrInvalidFrameSize)

	_, err = sender.SendFile(filepath.Join(dir, "missing.txt"))
	require.ErrorIs(t, err, ErrSourceUnavailable)
	require.True(t, Recoverable(err))
}
