package hub

import (
	"context"
	"io"

	"github.com/any-hub/any-fs/internal/logging"
	"github.com/any-hub/any-fs/internal/nspath"
)

// download: downlf filepath1 [filepath2]
func (s *session) download(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return s.ch.SendLine(msgDownloadUsage)
	}
	if len(args) > maxDownloadFiles+1 {
		return s.ch.SendLine(msgDownloadTooMany)
	}

	ledger := s.ledger()
	defer s.closeLedger(ledger)

	var staged []stagedFile
	for i, logical := range args[1:] {
		_, name := nspath.Split(logical)
		ep, target, ok := s.d.route(name)
		if !ok {
			s.log.WithField("file", logical).Warn("不支持的文件类型，跳过")
			continue
		}

		physical := nspath.Resolve(logical, s.d.namespace, ep.Root)
		log := s.log.WithFields(logging.CommandFields(cmdDownload, ep.Category.Key, ep.Name)).
			WithField("path", physical)
		entry, err := ledger.Stage(ctx, batchName(i, name), func(w io.Writer) error {
			_, err := target.Retrieve(ctx, physical, w)
			return err
		})
		if err != nil {
			log.WithError(err).Warn("获取文件失败")
			continue
		}
		staged = append(staged, newStagedFile(name, entry))
	}

	if len(staged) == 0 {
		return s.ch.SendLine(msgDownloadNone)
	}

	if err := s.ch.SendLinef("%s %d", replyReady, len(staged)); err != nil {
		return err
	}
	for _, f := range staged {
		if err := s.ch.SendLine(f.name); err != nil {
			return err
		}
		if err := s.sendStaged(f.path); err != nil {
			return err
		}
		s.release(ledger, f)
	}
	return nil
}
