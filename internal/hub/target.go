package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/any-hub/any-fs/internal/archive"
	"github.com/any-hub/any-fs/internal/backend"
	"github.com/any-hub/any-fs/internal/server"
	"github.com/any-hub/any-fs/internal/storage"
	"github.com/any-hub/any-fs/internal/wire"
)

// ErrRejected 表示存储节点以非预期的回复拒绝了请求。
var ErrRejected = errors.New("hub: request rejected by storage node")

// ErrEmptyFile 表示本地文件长度为 0，无法作为帧发送。
var ErrEmptyFile = errors.New("hub: file is empty")

// Target 是某个类别文件的实际存放位置，所有路径都是已翻译的物理路径。
type Target interface {
	// Name 返回节点名（S1..S4）。
	Name() string
	// Store 把暂存文件 staged 保存为 dir/name。
	Store(ctx context.Context, staged, dir, name string) error
	// Retrieve 把物理文件写入 dst。
	Retrieve(ctx context.Context, physical string, dst io.Writer) (int64, error)
	// Delete 删除物理文件。
	Delete(ctx context.Context, physical string) error
	// List 列出目录中名称包含 filter 的条目。
	List(ctx context.Context, dir, filter string) ([]string, error)
	// Archive 把本类别的全部文件打包写入本地路径 dest。
	Archive(ctx context.Context, dest string) error
	// Probe 检查节点是否存活。
	Probe(ctx context.Context) error
}

// localTarget 直接操作 hub 根目录。
type localTarget struct {
	name     string
	suffix   string
	root     *storage.Root
	archiver archive.Archiver
}

func (t *localTarget) Name() string { return t.name }

func (t *localTarget) Store(_ context.Context, staged, dir, name string) error {
	return t.root.Adopt(staged, dir, name)
}

func (t *localTarget) Retrieve(ctx context.Context, physical string, dst io.Writer) (int64, error) {
	f, size, err := t.root.Open(physical)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if size == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyFile, physical)
	}
	return io.Copy(dst, f)
}

func (t *localTarget) Delete(_ context.Context, physical string) error {
	return t.root.Delete(physical)
}

func (t *localTarget) List(_ context.Context, dir, filter string) ([]string, error) {
	return t.root.List(dir, filter)
}

func (t *localTarget) Archive(ctx context.Context, dest string) error {
	_, err := t.archiver.Create(ctx, t.root.Dir(), t.suffix, dest)
	return err
}

func (t *localTarget) Probe(context.Context) error {
	_, err := os.Stat(t.root.Dir())
	return err
}

// remoteTarget 每次操作新建一条到存储节点的连接，操作结束即关闭。
type remoteTarget struct {
	endpoint    server.Endpoint
	dialTimeout time.Duration
	wireOpts    wire.Options
}

func (t *remoteTarget) Name() string { return t.endpoint.Name }

func (t *remoteTarget) dial(ctx context.Context) (*wire.Channel, error) {
	return wire.Dial(ctx, t.endpoint.Address, t.dialTimeout, t.wireOpts)
}

// exchange 发送一条命令并读取一条回复。
func (t *remoteTarget) exchange(ch *wire.Channel, command string) (string, error) {
	if err := ch.SendLine(command); err != nil {
		return "", err
	}
	return ch.RecvLine()
}

func (t *remoteTarget) Store(ctx context.Context, staged, dir, name string) error {
	ch, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	reply, err := t.exchange(ch, fmt.Sprintf("%s %s %s", backend.CmdStore, name, dir))
	if err != nil {
		return err
	}
	if reply != backend.ReplyReady {
		return fmt.Errorf("%w: %s", ErrRejected, reply)
	}

	if _, err := ch.SendFile(staged); err != nil {
		if errors.Is(err, wire.ErrSourceUnavailable) {
			// 对端正在等待帧，用 ERROR 代替
			_ = ch.SendLine(backend.ReplyError + ": staged file unavailable")
		}
		return err
	}

	reply, err = ch.RecvLine()
	if err != nil {
		return err
	}
	if reply != backend.ReplySuccess {
		return fmt.Errorf("%w: %s", ErrRejected, reply)
	}
	return nil
}

func (t *remoteTarget) Retrieve(ctx context.Context, physical string, dst io.Writer) (int64, error) {
	ch, err := t.dial(ctx)
	if err != nil {
		return 0, err
	}
	defer ch.Close()
	return t.retrieve(ch, physical, dst)
}

func (t *remoteTarget) retrieve(ch *wire.Channel, physical string, dst io.Writer) (int64, error) {
	if err := ch.SendLine(backend.CmdRetrieve + " " + physical); err != nil {
		return 0, err
	}
	return ch.RecvFrame(dst)
}

func (t *remoteTarget) Delete(ctx context.Context, physical string) error {
	ch, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	reply, err := t.exchange(ch, backend.CmdDelete+" "+physical)
	if err != nil {
		return err
	}
	if reply != backend.ReplySuccess {
		return fmt.Errorf("%w: %s", ErrRejected, reply)
	}
	return nil
}

func (t *remoteTarget) List(ctx context.Context, dir, filter string) ([]string, error) {
	ch, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	reply, err := t.exchange(ch, fmt.Sprintf("%s %s %s", backend.CmdList, dir, filter))
	if err != nil {
		return nil, err
	}
	switch reply {
	case backend.ReplyNoFiles, "":
		return nil, nil
	case backend.ReplyError:
		return nil, fmt.Errorf("%w: %s", ErrRejected, reply)
	}

	var names []string
	for _, name := range strings.Split(reply, "\n") {
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Archive 请求节点打包，再在同一连接上取回产物，节点在发送后删除产物。
func (t *remoteTarget) Archive(ctx context.Context, dest string) error {
	ch, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	reply, err := t.exchange(ch, fmt.Sprintf("%s ~/%s", backend.CmdCreateTar, t.endpoint.Root))
	if err != nil {
		return err
	}
	if !strings.HasPrefix(reply, t.endpoint.Root+"/") {
		return fmt.Errorf("%w: %s", ErrRejected, reply)
	}

	f, err := os.Create(dest)
	if err != nil {
		// 仍需取回产物，否则节点上的产物不会被删除
		_, _ = t.retrieve(ch, reply, io.Discard)
		return err
	}
	if _, err := t.retrieve(ch, reply, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (t *remoteTarget) Probe(ctx context.Context) error {
	ch, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	reply, err := t.exchange(ch, backend.CmdTest)
	if err != nil {
		return err
	}
	if reply != t.endpoint.Name+backend.ReplyAliveSuffix {
		return fmt.Errorf("%w: %s", ErrRejected, reply)
	}
	return nil
}
