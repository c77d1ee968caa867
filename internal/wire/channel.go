package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	// BlockSize 是帧体单次读写的最大字节数。
	BlockSize = 4096
	// MaxFrameSize 是帧长度的合法上限（100 MB）。
	MaxFrameSize int64 = 100_000_000
	// MaxLineSize 是单条文本消息（含终止符）的上限。
	MaxLineSize = 64 * 1024

	headerSize           = 8
	headerAttempts       = 3
	defaultHeaderBackoff = 100 * time.Millisecond
	lineTerminator       = byte(0)
	refusalPrefix        = "ERROR"
)

// Options 控制通道上的读超时。零值表示无限等待。
type Options struct {
	// ReadTimeout 作用于每次文本读取与每个帧体分块。
	ReadTimeout time.Duration
	// HeaderWait 是读取帧头时单次尝试的等待时间，未设置时沿用 ReadTimeout。
	HeaderWait time.Duration
	// HeaderBackoff 是帧头重试之间的间隔。
	HeaderBackoff time.Duration
}

// Channel 在一个 net.Conn 上承载帧与文本消息，读写方向都不是并发安全的。
type Channel struct {
	conn net.Conn
	r    *bufio.Reader
	opts Options
}

// NewChannel 包装一个已建立的连接。
func NewChannel(conn net.Conn, opts Options) *Channel {
	if opts.HeaderBackoff <= 0 {
		opts.HeaderBackoff = defaultHeaderBackoff
	}
	if opts.HeaderWait <= 0 {
		opts.HeaderWait = opts.ReadTimeout
	}
	return &Channel{
		conn: conn,
		r:    bufio.NewReaderSize(conn, BlockSize),
		opts: opts,
	}
}

// Dial 建立到 addr 的 TCP 连接并返回通道。
func Dial(ctx context.Context, addr string, timeout time.Duration, opts Options) (*Channel, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("wire: dial %s: %w", addr, err)
	}
	return NewChannel(conn, opts), nil
}

// RemoteAddr 返回对端地址，供日志使用。
func (c *Channel) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Close 关闭底层连接。
func (c *Channel) Close() error {
	return c.conn.Close()
}

func (c *Channel) armRead(d time.Duration) {
	if d > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
		return
	}
	_ = c.conn.SetReadDeadline(time.Time{})
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
