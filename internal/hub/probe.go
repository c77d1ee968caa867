package hub

import (
	"context"

	"github.com/any-hub/any-fs/internal/logging"
)

// probe: TEST
func (s *session) probe(ctx context.Context) error {
	for _, result := range s.d.ProbeAll(ctx) {
		if !result.Up {
			s.log.WithFields(logging.CommandFields(cmdTest, result.Category, result.Name)).
				WithField("error", result.Error).Warn("存储节点不可用")
			return s.ch.SendLinef(msgProbeSome, s.d.node)
		}
	}
	return s.ch.SendLinef(msgProbeAll, s.d.node)
}
