package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/any-hub/any-fs/internal/archive"
	"github.com/any-hub/any-fs/internal/config"
	"github.com/any-hub/any-fs/internal/logging"
	"github.com/any-hub/any-fs/internal/server"
	"github.com/any-hub/any-fs/internal/staging"
	"github.com/any-hub/any-fs/internal/storage"
	"github.com/any-hub/any-fs/internal/wire"
)

// Options 描述 Dispatcher 的依赖。
type Options struct {
	Config   *config.Config
	Registry *server.EndpointRegistry
	Staging  staging.Store
	// Archiver 用于本地类别的打包，应排除暂存目录。
	Archiver archive.Archiver
	Logger   *logrus.Logger
}

// Dispatcher 处理客户端会话，实现 server.ConnHandler 与 server.Prober。
type Dispatcher struct {
	node      string
	namespace string
	greeting  string
	parallel  bool

	registry *server.EndpointRegistry
	targets  map[string]Target
	staging  staging.Store
	session  wire.Options
	logger   *logrus.Logger
}

// New 根据配置为每个类别构建 Target。
func New(opts Options) (*Dispatcher, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("endpoint registry is required")
	}
	if opts.Staging == nil {
		return nil, errors.New("staging store is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Archiver == nil {
		opts.Archiver = archive.NewNative(archive.WithExclude(opts.Staging.Root()))
	}

	global := opts.Config.Global
	backendOpts := wire.Options{
		ReadTimeout:   global.BackendTimeout.DurationValue(),
		HeaderWait:    global.HeaderWait.DurationValue(),
		HeaderBackoff: global.HeaderBackoff.DurationValue(),
	}

	d := &Dispatcher{
		node:      opts.Config.Hub.Name,
		namespace: opts.Config.Hub.Namespace,
		greeting:  opts.Config.Hub.Greeting,
		parallel:  opts.Config.Hub.ParallelFanout,
		registry:  opts.Registry,
		targets:   make(map[string]Target),
		staging:   opts.Staging,
		session: wire.Options{
			HeaderWait:    global.HeaderWait.DurationValue(),
			HeaderBackoff: global.HeaderBackoff.DurationValue(),
		},
		logger: opts.Logger,
	}

	for _, ep := range opts.Registry.List() {
		if ep.Local {
			root, err := storage.NewRoot(global.StoragePath, ep.Root)
			if err != nil {
				return nil, fmt.Errorf("hub root: %w", err)
			}
			d.targets[ep.Category.Key] = &localTarget{
				name:     ep.Name,
				suffix:   ep.Category.Suffix,
				root:     root,
				archiver: opts.Archiver,
			}
			continue
		}
		d.targets[ep.Category.Key] = &remoteTarget{
			endpoint:    ep,
			dialTimeout: global.DialTimeout.DurationValue(),
			wireOpts:    backendOpts,
		}
	}

	return d, nil
}

// route 根据文件名找到负责的 Endpoint 与 Target。
func (d *Dispatcher) route(name string) (*server.Endpoint, Target, bool) {
	ep, ok := d.registry.ForFile(name)
	if !ok {
		return nil, nil, false
	}
	target, ok := d.targets[ep.Category.Key]
	return ep, target, ok
}

// ServeConn 发送欢迎语后逐条执行客户端命令。
func (d *Dispatcher) ServeConn(ctx context.Context, conn net.Conn) {
	s := &session{
		d:  d,
		id: uuid.NewString(),
		ch: wire.NewChannel(conn, d.session),
	}
	s.log = d.logger.WithFields(logging.SessionFields(d.node, s.id, s.ch.RemoteAddr()))
	s.log.Info("客户端已连接")
	defer func() {
		if err := d.staging.RemoveSession(context.Background(), s.id); err != nil {
			s.log.WithError(err).Warn("清理会话暂存目录失败")
		}
		s.log.Info("客户端已断开")
	}()

	if d.greeting != "" {
		if err := s.ch.SendLine(d.greeting); err != nil {
			s.log.WithError(err).Warn("发送欢迎语失败")
			return
		}
	}

	for {
		line, err := s.ch.RecvLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.WithError(err).Warn("读取命令失败，关闭会话")
			}
			return
		}

		if err := s.execute(ctx, line); err != nil {
			if wire.Recoverable(err) {
				s.log.WithError(err).Warn("命令失败")
				continue
			}
			s.log.WithError(err).Error("通道不可用，关闭会话")
			return
		}
	}
}

// ProbeAll 检查所有远端存储节点。
func (d *Dispatcher) ProbeAll(ctx context.Context) []server.ProbeResult {
	remote := d.registry.Remote()
	results := make([]server.ProbeResult, len(remote))
	d.fanout(len(remote), func(i int) {
		ep := remote[i]
		result := server.ProbeResult{
			Name:     ep.Name,
			Category: ep.Category.Key,
			Address:  ep.Address,
		}
		start := time.Now()
		err := d.targets[ep.Category.Key].Probe(ctx)
		result.Latency = time.Since(start)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Up = true
		}
		results[i] = result
	})
	return results
}

// fanout 对 0..n-1 执行 fn，ParallelFanout 开启时并发执行。
func (d *Dispatcher) fanout(n int, fn func(i int)) {
	if !d.parallel {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// session 是一条客户端连接的状态。
type session struct {
	d   *Dispatcher
	id  string
	ch  *wire.Channel
	log *logrus.Entry
}

func (s *session) execute(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return s.ch.SendLine(msgUnknownCommand)
	}

	switch args[0] {
	case cmdUpload:
		return s.upload(ctx, args)
	case cmdDownload:
		return s.download(ctx, args)
	case cmdRemove:
		return s.remove(ctx, args)
	case cmdList:
		return s.list(ctx, args)
	case cmdTar:
		return s.archive(ctx, args)
	case cmdTest:
		return s.probe(ctx)
	default:
		s.log.WithField("command", args[0]).Debug("未知命令")
		return s.ch.SendLine(msgUnknownCommand)
	}
}

// ledger 为一条命令创建暂存清单，调用方必须 defer closeLedger。
func (s *session) ledger() *staging.Ledger {
	return staging.NewLedger(s.d.staging, s.id)
}

func (s *session) closeLedger(ledger *staging.Ledger) {
	if n := ledger.Pending(); n > 0 {
		s.log.WithField("pending", n).Debug("清理剩余暂存文件")
	}
	if err := ledger.Close(context.Background()); err != nil {
		s.log.WithError(err).Warn("清理暂存文件失败")
	}
}

// sendStaged 把暂存文件作为一帧发送；文件不可用时以 ERROR 消息代替，保持通道对齐。
func (s *session) sendStaged(path string) error {
	_, err := s.ch.SendFile(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, wire.ErrSourceUnavailable) || errors.Is(err, wire.ErrInvalidFrameSize) {
		s.log.WithError(err).Warn("暂存文件不可发送")
		return s.ch.SendLine(msgStagedUnavailable)
	}
	return err
}

// release 在文件用完后立即删除暂存条目，不必等到命令结束。
func (s *session) release(ledger *staging.Ledger, f stagedFile) {
	if err := ledger.Release(context.Background(), f.loc); err != nil {
		s.log.WithError(err).WithField("file", f.name).Debug("提前删除暂存文件失败")
	}
}

// stagedFile 是一条已暂存的文件：name 为原始文件名，path 为暂存绝对路径。
type stagedFile struct {
	name string
	path string
	loc  staging.Locator
}

func newStagedFile(name string, entry *staging.Entry) stagedFile {
	return stagedFile{name: name, path: entry.FilePath, loc: entry.Locator}
}

func batchName(index int, name string) string {
	return fmt.Sprintf("%d-%s", index, name)
}
