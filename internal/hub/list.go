package hub

import (
	"context"
	"sort"
	"strings"

	"github.com/any-hub/any-fs/internal/logging"
	"github.com/any-hub/any-fs/internal/nspath"
	"github.com/any-hub/any-fs/internal/wire"
)

// list: dispfnames pathname
func (s *session) list(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return s.ch.SendLine(msgListUsage)
	}
	logical := args[1]

	endpoints := s.d.registry.List()
	groups := make([][]string, len(endpoints))
	s.d.fanout(len(endpoints), func(i int) {
		ep := endpoints[i]
		dir := nspath.Translate(logical, s.d.namespace, ep.Root)
		names, err := s.d.targets[ep.Category.Key].List(ctx, dir, ep.Category.Suffix)
		if err != nil {
			s.log.WithFields(logging.CommandFields(cmdList, ep.Category.Key, ep.Name)).
				WithError(err).Debug("列目录失败")
			return
		}
		sort.Strings(names)
		groups[i] = names
	})

	var b strings.Builder
	for _, names := range groups {
		for _, name := range names {
			b.WriteString(name)
			b.WriteByte('\n')
		}
	}
	switch {
	case b.Len() == 0:
		return s.ch.SendLine(msgListEmpty)
	case b.Len()+1 > wire.MaxLineSize:
		s.log.WithField("command", cmdList).WithField("bytes", b.Len()).Warn("目录列表超过单条消息上限")
		return s.ch.SendLine(msgListTooLarge)
	}
	return s.ch.SendLine(b.String())
}
