package wire

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sethvargo/go-retry"
)

// SendFrame 发送长度头与 size 字节的帧体。长度非法时不写出任何字节。
// 返回 ErrShortSource 或写错误后，通道不再对齐，调用方应关闭连接。
func (c *Channel) SendFrame(src io.Reader, size int64) error {
	if size <= 0 || size > MaxFrameSize {
		return fmt.Errorf("%w: %d", ErrInvalidFrameSize, size)
	}

	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(size))
	if _, err := c.conn.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}

	buf := make([]byte, BlockSize)
	remaining := size
	for remaining > 0 {
		n := min(int64(BlockSize), remaining)
		read, err := io.ReadFull(src, buf[:n])
		if read > 0 {
			if _, wErr := c.conn.Write(buf[:read]); wErr != nil {
				return fmt.Errorf("wire: write body: %w", wErr)
			}
			remaining -= int64(read)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: %d bytes missing", ErrShortSource, remaining)
			}
			return fmt.Errorf("wire: read source: %w", err)
		}
	}
	return nil
}

// SendFile 将普通文件作为一帧发送，返回发送的字节数。
func (c *Channel) SendFile(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrSourceUnavailable, path)
	}
	if err := c.SendFrame(f, info.Size()); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// RecvFrame 读取一帧并写入 dst，返回帧长度。
func (c *Channel) RecvFrame(dst io.Writer) (int64, error) {
	size, err := c.readHeader()
	if err != nil {
		return 0, err
	}
	return c.readBody(dst, size)
}

// readHeader 在帧头读取超时时最多尝试 headerAttempts 次。
func (c *Channel) readHeader() (int64, error) {
	var (
		header  [headerSize]byte
		got     int
		refused bool
	)

	backoff := retry.WithMaxRetries(headerAttempts-1, retry.NewConstant(c.opts.HeaderBackoff))
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		c.armRead(c.opts.HeaderWait)
		if got == 0 {
			prefix, err := c.r.Peek(len(refusalPrefix))
			if err != nil {
				return headerError(err, len(prefix))
			}
			if string(prefix) == refusalPrefix {
				refused = true
				return nil
			}
		}
		n, err := io.ReadFull(c.r, header[got:])
		got += n
		if err != nil {
			return headerError(err, got)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if refused {
		msg, err := c.RecvLine()
		if err != nil {
			return 0, err
		}
		return 0, &RemoteError{Message: msg}
	}

	size := int64(binary.LittleEndian.Uint64(header[:]))
	if size <= 0 || size > MaxFrameSize {
		return 0, fmt.Errorf("%w: declared %d bytes", ErrCorruptHeader, size)
	}
	return size, nil
}

func headerError(err error, got int) error {
	if isTimeout(err) {
		return retry.RetryableError(fmt.Errorf("wire: read header: %w", err))
	}
	if errors.Is(err, io.EOF) && got == 0 {
		return io.EOF
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: header cut after %d bytes", ErrTruncated, got)
	}
	return fmt.Errorf("wire: read header: %w", err)
}

// readBody 读取 size 字节。dst 写失败后继续读完帧体，保证通道对齐。
func (c *Channel) readBody(dst io.Writer, size int64) (int64, error) {
	buf := make([]byte, BlockSize)
	var (
		received int64
		sinkErr  error
	)
	for received < size {
		n := min(int64(BlockSize), size-received)
		c.armRead(c.opts.ReadTimeout)
		read, err := io.ReadFull(c.r, buf[:n])
		if read > 0 {
			received += int64(read)
			if sinkErr == nil {
				w, wErr := dst.Write(buf[:read])
				if wErr == nil && w < read {
					wErr = io.ErrShortWrite
				}
				sinkErr = wErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return received, fmt.Errorf("%w: %d of %d bytes", ErrTruncated, received, size)
			}
			return received, fmt.Errorf("wire: read body: %w", err)
		}
	}
	if sinkErr != nil {
		return received, fmt.Errorf("%w: %v", ErrSinkFailed, sinkErr)
	}
	return size, nil
}
