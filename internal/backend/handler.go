package backend

import (
	"context"
	"errors"
	"io"
	"net"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fs/internal/archive"
	"github.com/any-hub/any-fs/internal/category"
	"github.com/any-hub/any-fs/internal/logging"
	"github.com/any-hub/any-fs/internal/storage"
	"github.com/any-hub/any-fs/internal/wire"
)

// Options 描述一个存储节点运行所需的依赖。
type Options struct {
	// Node 是节点名，TEST 回复 <Node>_OK。
	Node     string
	Category category.Category
	Root     *storage.Root
	Archiver archive.Archiver
	Wire     wire.Options
	Logger   *logrus.Logger
}

// Handler 处理 hub 发来的连接，实现 server.ConnHandler。
type Handler struct {
	node     string
	category category.Category
	root     *storage.Root
	archiver archive.Archiver
	wireOpts wire.Options
	logger   *logrus.Logger

	mu        sync.Mutex
	artifacts map[string]struct{}
}

// NewHandler 校验依赖并构建处理器。
func NewHandler(opts Options) (*Handler, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Root == nil {
		return nil, errors.New("storage root is required")
	}
	if opts.Node == "" {
		return nil, errors.New("node name is required")
	}
	if opts.Category.Suffix == "" {
		return nil, errors.New("category is required")
	}
	if opts.Archiver == nil {
		opts.Archiver = archive.NewNative()
	}
	return &Handler{
		node:      opts.Node,
		category:  opts.Category,
		root:      opts.Root,
		archiver:  opts.Archiver,
		wireOpts:  opts.Wire,
		logger:    opts.Logger,
		artifacts: make(map[string]struct{}),
	}, nil
}

// ServeConn 逐条处理一个连接上的命令，直到对端关闭或通道失去对齐。
func (h *Handler) ServeConn(ctx context.Context, conn net.Conn) {
	ch := wire.NewChannel(conn, h.wireOpts)
	entry := h.logger.WithFields(logging.SessionFields(h.node, uuid.NewString(), ch.RemoteAddr()))
	entry.Debug("会话开始")

	for {
		line, err := ch.RecvLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				entry.Debug("会话结束")
			} else if ctx.Err() == nil {
				entry.WithError(err).Warn("读取命令失败")
			}
			return
		}

		if err := h.execute(ctx, ch, line, entry); err != nil {
			if wire.Recoverable(err) {
				entry.WithError(err).Warn("命令失败")
				continue
			}
			entry.WithError(err).Error("通道不可用，关闭会话")
			return
		}
	}
}

// execute 执行一条命令并写出回复。返回的错误来自通道本身。
func (h *Handler) execute(ctx context.Context, ch *wire.Channel, line string, entry *logrus.Entry) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return ch.SendLine(ReplyOK)
	}

	log := entry.WithFields(logging.CommandFields(args[0], h.category.Key, h.node))
	switch args[0] {
	case CmdStore:
		return h.store(ch, args, log)
	case CmdRetrieve:
		return h.retrieve(ch, args, log)
	case CmdDelete:
		return h.delete(ch, args, log)
	case CmdList:
		return h.list(ch, args, log)
	case CmdCreateTar:
		return h.createTar(ctx, ch, args, log)
	case CmdTest:
		return ch.SendLine(h.node + ReplyAliveSuffix)
	default:
		log.Debug("未知命令")
		return ch.SendLine(ReplyOK)
	}
}

// store: STORE filename destPath
func (h *Handler) store(ch *wire.Channel, args []string, log *logrus.Entry) error {
	if len(args) < 3 {
		return ch.SendLine(ReplyFormatError)
	}
	name, dir := args[1], args[2]

	if err := ch.SendLine(ReplyReady); err != nil {
		return err
	}

	pending, err := h.root.Create(dir, name)
	if err != nil {
		log.WithError(err).Warn("无法创建目标文件，丢弃帧")
		if _, drainErr := ch.RecvFrame(io.Discard); drainErr != nil && !wire.Recoverable(drainErr) {
			return drainErr
		}
		return ch.SendLine(ReplyError)
	}

	size, err := ch.RecvFrame(pending)
	if err != nil {
		pending.Abort()
		if !wire.Recoverable(err) {
			return err
		}
		log.WithError(err).Warn("接收文件失败")
		return ch.SendLine(ReplyError)
	}
	if err := pending.Commit(); err != nil {
		log.WithError(err).Warn("提交文件失败")
		return ch.SendLine(ReplyError)
	}

	log.WithFields(logrus.Fields{"path": path.Join(dir, name), "bytes": size}).Info("文件已保存")
	return ch.SendLine(ReplySuccess)
}

// retrieve: RETRIEVE fullPath
func (h *Handler) retrieve(ch *wire.Channel, args []string, log *logrus.Entry) error {
	if len(args) < 2 {
		return ch.SendLine(ReplyError)
	}
	physical := path.Clean(args[1])

	f, size, err := h.root.Open(physical)
	if err != nil {
		log.WithError(err).Warn("无法读取文件")
		return ch.SendLine(ReplyError)
	}
	defer f.Close()
	if size == 0 {
		log.WithField("path", physical).Warn("拒绝发送空文件")
		return ch.SendLine(ReplyError)
	}

	if err := ch.SendFrame(f, size); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"path": physical, "bytes": size}).Info("文件已发送")

	if h.releaseArtifact(physical) {
		f.Close()
		if err := h.root.Delete(physical); err != nil {
			log.WithError(err).Warn("删除打包产物失败")
		}
	}
	return nil
}

// delete: DELETE fullPath
func (h *Handler) delete(ch *wire.Channel, args []string, log *logrus.Entry) error {
	if len(args) < 2 {
		return ch.SendLine(ReplyError)
	}
	if err := h.root.Delete(args[1]); err != nil {
		log.WithError(err).Warn("删除失败")
		return ch.SendLine(ReplyError)
	}
	log.WithField("path", args[1]).Info("文件已删除")
	return ch.SendLine(ReplySuccess)
}

// list: LIST dirPath [filter]
func (h *Handler) list(ch *wire.Channel, args []string, log *logrus.Entry) error {
	if len(args) < 2 {
		return ch.SendLine(ReplyNoFiles)
	}
	filter := h.category.Suffix
	if len(args) > 2 {
		filter = args[2]
	}

	names, err := h.root.List(args[1], filter)
	if err != nil {
		log.WithError(err).Debug("目录不可读")
		return ch.SendLine(ReplyNoFiles)
	}
	if len(names) == 0 {
		return ch.SendLine(ReplyNoFiles)
	}
	listing := strings.Join(names, "\n")
	if len(listing)+1 > wire.MaxLineSize {
		log.WithField("files", len(names)).Warn("目录列表超过单条消息上限")
		return ch.SendLine(ReplyError)
	}
	return ch.SendLine(listing)
}

// createTar: CREATETAR namespaceRoot
func (h *Handler) createTar(ctx context.Context, ch *wire.Channel, args []string, log *logrus.Entry) error {
	if !h.category.Archivable {
		return ch.SendLine(ReplyTarError)
	}
	physical, err := h.buildArtifact(ctx, args)
	if err != nil {
		log.WithError(err).Warn("打包失败")
		return ch.SendLine(ReplyTarError)
	}
	log.WithField("artifact", physical).Info("打包完成")
	return ch.SendLine(physical)
}
