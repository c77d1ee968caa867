package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/any-hub/any-fs/internal/logging"
	"github.com/any-hub/any-fs/internal/nspath"
	"github.com/any-hub/any-fs/internal/staging"
	"github.com/any-hub/any-fs/internal/wire"
)

// upload: uploadf file1 [file2] [file3] destPath
func (s *session) upload(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return s.ch.SendLine(msgUploadUsage)
	}
	if len(args) > maxUploadFiles+2 {
		return s.ch.SendLine(msgUploadTooMany)
	}
	files := args[1 : len(args)-1]
	dest := args[len(args)-1]

	if err := s.ch.SendLine(replyReady); err != nil {
		return err
	}

	ledger := s.ledger()
	defer s.closeLedger(ledger)

	var received []stagedFile
	for i, file := range files {
		name := path.Base(file)
		entry, err := s.receive(ctx, ledger, batchName(i, name))
		if err != nil {
			if !wire.Recoverable(err) {
				return err
			}
			s.log.WithError(err).WithField("file", name).Warn("接收文件失败，放弃剩余文件")
			if errors.Is(err, wire.ErrSinkFailed) {
				if err := s.discardFrames(len(files) - i - 1); err != nil {
					return err
				}
			}
			break
		}
		received = append(received, newStagedFile(name, entry))
	}

	if len(received) == 0 {
		return s.ch.SendLine(msgUploadNotReceive)
	}

	stored := 0
	for _, f := range received {
		if s.distribute(ctx, f, dest) {
			stored++
		}
		s.release(ledger, f)
	}

	switch {
	case stored == len(files):
		return s.ch.SendLine(msgUploadAll)
	case stored > 0:
		return s.ch.SendLinef(msgUploadPartial, stored, len(files))
	default:
		return s.ch.SendLine(msgUploadNone)
	}
}

// receive 把下一帧写入暂存区。暂存区写入失败时帧体仍被读完，返回 wire.ErrSinkFailed。
func (s *session) receive(ctx context.Context, ledger *staging.Ledger, name string) (*staging.Entry, error) {
	var (
		filled  bool
		recvErr error
	)
	entry, err := ledger.Stage(ctx, name, func(w io.Writer) error {
		filled = true
		_, recvErr = s.ch.RecvFrame(w)
		return recvErr
	})
	if err == nil {
		return entry, nil
	}
	if recvErr != nil {
		return nil, recvErr
	}
	if !filled {
		if _, drainErr := s.ch.RecvFrame(io.Discard); drainErr != nil {
			return nil, drainErr
		}
	}
	return nil, fmt.Errorf("%w: %v", wire.ErrSinkFailed, err)
}

// discardFrames 读完客户端仍会发送的 n 帧，保持通道对齐。对端改发 ERROR 时说明已停止发送。
func (s *session) discardFrames(n int) error {
	for ; n > 0; n-- {
		_, err := s.ch.RecvFrame(io.Discard)
		var remote *wire.RemoteError
		switch {
		case err == nil:
		case errors.As(err, &remote):
			return nil
		case !wire.Recoverable(err):
			return err
		}
	}
	return nil
}

// distribute 把一个暂存文件交给其类别的 Target，返回是否成功。
func (s *session) distribute(ctx context.Context, f stagedFile, dest string) bool {
	ep, target, ok := s.d.route(f.name)
	if !ok {
		s.log.WithField("file", f.name).Warn("不支持的文件类型，跳过")
		return false
	}

	dir := nspath.Translate(dest, s.d.namespace, ep.Root)
	log := s.log.WithFields(logging.CommandFields(cmdUpload, ep.Category.Key, ep.Name)).
		WithField("path", nspath.Join(dir, f.name))
	if err := target.Store(ctx, f.path, dir, f.name); err != nil {
		log.WithError(err).Warn("文件分发失败")
		return false
	}
	log.Info("文件已保存")
	return true
}
