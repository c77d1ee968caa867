package hub

import (
	"context"

	"github.com/any-hub/any-fs/internal/logging"
	"github.com/any-hub/any-fs/internal/nspath"
)

// remove: removef filepath1 [filepath2]
func (s *session) remove(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return s.ch.SendLine(msgRemoveUsage)
	}
	if len(args) > maxRemoveFiles+1 {
		return s.ch.SendLine(msgRemoveTooMany)
	}

	paths := args[1:]
	deleted := 0
	for _, logical := range paths {
		_, name := nspath.Split(logical)
		ep, target, ok := s.d.route(name)
		if !ok {
			s.log.WithField("file", logical).Warn("不支持的文件类型")
			continue
		}

		physical := nspath.Resolve(logical, s.d.namespace, ep.Root)
		log := s.log.WithFields(logging.CommandFields(cmdRemove, ep.Category.Key, ep.Name)).
			WithField("path", physical)
		if err := target.Delete(ctx, physical); err != nil {
			log.WithError(err).Warn("删除失败")
			continue
		}
		log.Info("文件已删除")
		deleted++
	}

	switch {
	case deleted == len(paths):
		return s.ch.SendLine(msgRemoveAll)
	case deleted > 0:
		return s.ch.SendLinef(msgRemovePartial, deleted, len(paths))
	default:
		return s.ch.SendLine(msgRemoveNone)
	}
}
