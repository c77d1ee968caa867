package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// SendLine 以一次写入发送一条以 NUL 结尾的文本消息。
func (c *Channel) SendLine(msg string) error {
	if len(msg)+1 > MaxLineSize {
		return ErrLineTooLong
	}
	if bytes.IndexByte([]byte(msg), lineTerminator) >= 0 {
		return ErrInvalidMessage
	}
	buf := make([]byte, 0, len(msg)+1)
	buf = append(buf, msg...)
	buf = append(buf, lineTerminator)
	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("wire: send message: %w", err)
	}
	return nil
}

// SendLinef 是 SendLine 的格式化版本。
func (c *Channel) SendLinef(format string, args ...any) error {
	return c.SendLine(fmt.Sprintf(format, args...))
}

// RecvLine 读取下一条文本消息（不含终止符）。对端在消息边界关闭连接时返回 io.EOF。
func (c *Channel) RecvLine() (string, error) {
	c.armRead(c.opts.ReadTimeout)

	var buf []byte
	for {
		chunk, err := c.r.ReadSlice(lineTerminator)
		buf = append(buf, chunk...)
		if len(buf) > MaxLineSize {
			return "", ErrLineTooLong
		}
		if err == nil {
			return string(buf[:len(buf)-1]), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(buf) > 0 {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
}
