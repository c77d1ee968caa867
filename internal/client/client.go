// Package client 提供连接 hub 的客户端：每个方法对应一条 hub 命令，
// 返回 hub 的原始回复文本，文件类结果落盘到调用方指定的目录。
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/any-hub/any-fs/internal/category"
	"github.com/any-hub/any-fs/internal/wire"
)

// ErrUnexpectedReply 表示 hub 的回复不符合协议。
var ErrUnexpectedReply = errors.New("client: unexpected reply")

const (
	replyReady    = "READY"
	replyTarReady = "TAR_READY"
	emptyListing  = "No files found in the specified directory\n"
)

// Client 是一条到 hub 的会话，不是并发安全的。
type Client struct {
	ch       *wire.Channel
	greeting string
}

// Transfer 描述一次下载类命令的结果。
type Transfer struct {
	// Reply 是 hub 的首条回复（READY n、TAR_READY 或错误消息）。
	Reply string
	// Saved 是已落盘文件的路径，按接收顺序排列。
	Saved []string
}

// Dial 连接 hub 并读取欢迎语。
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	ch, err := wire.Dial(ctx, addr, timeout, wire.Options{})
	if err != nil {
		return nil, err
	}
	c := &Client{ch: ch}
	stop := c.guard(ctx)
	defer stop()

	greeting, err := ch.RecvLine()
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("client: read greeting: %w", err)
	}
	c.greeting = greeting
	return c, nil
}

// Greeting 返回 hub 在连接建立时发送的欢迎语。
func (c *Client) Greeting() string {
	return c.greeting
}

// Close 关闭会话。
func (c *Client) Close() error {
	return c.ch.Close()
}

// guard 在 ctx 结束时关闭连接，使阻塞中的读写立即返回。
func (c *Client) guard(ctx context.Context) func() {
	stop := context.AfterFunc(ctx, func() {
		c.ch.Close()
	})
	return func() { stop() }
}

func (c *Client) command(ctx context.Context, args ...string) (string, error) {
	stop := c.guard(ctx)
	defer stop()
	if err := c.ch.SendLine(strings.Join(args, " ")); err != nil {
		return "", err
	}
	return c.ch.RecvLine()
}

// Raw 发送任意一行命令并返回一条回复，用于参数错误等不需要传输文件的场景。
func (c *Client) Raw(ctx context.Context, line string) (string, error) {
	return c.command(ctx, line)
}

// Upload 上传最多三个本地文件到 dest。某个文件无法读取时以 ERROR 消息代替其帧，
// hub 随即放弃剩余文件。
func (c *Client) Upload(ctx context.Context, dest string, files ...string) (string, error) {
	args := append(append([]string{"uploadf"}, files...), dest)
	reply, err := c.command(ctx, args...)
	if err != nil || reply != replyReady {
		return reply, err
	}

	stop := c.guard(ctx)
	defer stop()
	for _, file := range files {
		if _, err := c.ch.SendFile(file); err != nil {
			if !errors.Is(err, wire.ErrSourceUnavailable) && !errors.Is(err, wire.ErrInvalidFrameSize) {
				return "", err
			}
			if err := c.ch.SendLine("ERROR: cannot read " + filepath.Base(file)); err != nil {
				return "", err
			}
			break
		}
	}
	return c.ch.RecvLine()
}

// Download 下载最多两个文件，按 hub 给出的文件名保存到 saveDir。
func (c *Client) Download(ctx context.Context, saveDir string, paths ...string) (*Transfer, error) {
	reply, err := c.command(ctx, append([]string{"downlf"}, paths...)...)
	if err != nil {
		return nil, err
	}
	result := &Transfer{Reply: reply}
	if !strings.HasPrefix(reply, replyReady+" ") {
		return result, nil
	}
	count, err := strconv.Atoi(strings.TrimPrefix(reply, replyReady+" "))
	if err != nil || count < 0 {
		return result, fmt.Errorf("%w: %q", ErrUnexpectedReply, reply)
	}

	stop := c.guard(ctx)
	defer stop()
	for i := 0; i < count; i++ {
		name, err := c.ch.RecvLine()
		if err != nil {
			return result, err
		}
		saved, err := c.receiveFile(filepath.Join(saveDir, filepath.Base(name)))
		if err != nil {
			if !wire.Recoverable(err) {
				return result, err
			}
			continue
		}
		result.Saved = append(result.Saved, saved)
	}
	return result, nil
}

// Remove 删除最多两个文件。
func (c *Client) Remove(ctx context.Context, paths ...string) (string, error) {
	return c.command(ctx, append([]string{"removef"}, paths...)...)
}

// List 返回 dispfnames 的原始回复。
func (c *Client) List(ctx context.Context, dir string) (string, error) {
	return c.command(ctx, "dispfnames", dir)
}

// Archive 下载某类文件的 tar 包，保存为 saveDir/<kind>files.tar。
func (c *Client) Archive(ctx context.Context, filetype, saveDir string) (*Transfer, error) {
	reply, err := c.command(ctx, "downltar", filetype)
	if err != nil {
		return nil, err
	}
	result := &Transfer{Reply: reply}
	if reply != replyTarReady {
		return result, nil
	}

	name := "archive.tar"
	if cat, ok := category.ForSuffix(filetype); ok {
		name = cat.ArchiveName
	}

	stop := c.guard(ctx)
	defer stop()
	saved, err := c.receiveFile(filepath.Join(saveDir, name))
	if err != nil {
		return result, err
	}
	result.Saved = append(result.Saved, saved)
	return result, nil
}

// Test 检查 hub 与全部存储节点的连通性。
func (c *Client) Test(ctx context.Context) (string, error) {
	return c.command(ctx, "TEST")
}

// receiveFile 把下一帧写入 dest，失败时删除不完整的文件。
func (c *Client) receiveFile(dest string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dest)
	if err != nil {
		if _, drainErr := c.ch.RecvFrame(io.Discard); drainErr != nil {
			return "", drainErr
		}
		return "", fmt.Errorf("%w: %v", wire.ErrSinkFailed, err)
	}
	_, err = c.ch.RecvFrame(f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

// ParseListing 把 dispfnames 的回复拆成文件名，空目录或错误回复返回 nil。
func ParseListing(reply string) []string {
	if reply == emptyListing || strings.HasPrefix(reply, "ERROR") {
		return nil
	}
	var names []string
	for _, name := range strings.Split(reply, "\n") {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
