package hub

import (
	"context"
	"strings"

	"github.com/any-hub/any-fs/internal/category"
	"github.com/any-hub/any-fs/internal/logging"
)

// archive: downltar filetype
func (s *session) archive(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return s.ch.SendLine(msgTarUsage)
	}
	cat, ok := category.ForSuffix(args[1])
	if !ok {
		return s.ch.SendLinef(msgTarInvalid, archivableSuffixes())
	}
	if !cat.Archivable {
		return s.ch.SendLinef(msgTarUnsupported, cat.Label())
	}

	ep, ok := s.d.registry.Lookup(cat.Key)
	if !ok {
		return s.ch.SendLine(msgTarFailed)
	}
	log := s.log.WithFields(logging.CommandFields(cmdTar, cat.Key, ep.Name))

	ledger := s.ledger()
	defer s.closeLedger(ledger)

	_, dest, err := ledger.Reserve(cat.ArchiveName)
	if err != nil {
		log.WithError(err).Warn("无法分配暂存路径")
		return s.ch.SendLine(msgTarFailed)
	}
	if err := s.d.targets[cat.Key].Archive(ctx, dest); err != nil {
		log.WithError(err).Warn("打包失败")
		return s.ch.SendLine(msgTarFailed)
	}

	if err := s.ch.SendLine(replyTarReady); err != nil {
		return err
	}
	log.Info("打包文件已发送")
	return s.sendStaged(dest)
}

func archivableSuffixes() string {
	var suffixes []string
	for _, c := range category.List() {
		if c.Archivable {
			suffixes = append(suffixes, c.Suffix)
		}
	}
	return strings.Join(suffixes, ", ")
}
