package backend

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/google/uuid"

	"github.com/any-hub/any-fs/internal/nspath"
)

// buildArtifact 打包命名空间根目录下的本类别文件，返回产物的物理路径。
func (h *Handler) buildArtifact(ctx context.Context, args []string) (string, error) {
	source := h.root.Name()
	if len(args) > 1 {
		source = nspath.Translate(args[1], h.root.Name(), h.root.Name())
	}
	sourceDir, err := h.root.Resolve(source)
	if err != nil {
		return "", err
	}

	physical := path.Join(h.root.Name(), fmt.Sprintf("%sfiles-%s.tar", h.category.Key, uuid.NewString()[:8]))
	dest, err := h.root.Resolve(physical)
	if err != nil {
		return "", err
	}

	if _, err := h.archiver.Create(ctx, sourceDir, h.category.Suffix, dest); err != nil {
		os.Remove(dest)
		return "", err
	}

	h.mu.Lock()
	h.artifacts[physical] = struct{}{}
	h.mu.Unlock()
	return physical, nil
}

// releaseArtifact 解除产物登记，返回 physical 是否为登记过的产物。
func (h *Handler) releaseArtifact(physical string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.artifacts[physical]; !ok {
		return false
	}
	delete(h.artifacts, physical)
	return true
}

// PendingArtifacts 返回尚未被取走的产物数量。
func (h *Handler) PendingArtifacts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.artifacts)
}

// Close 删除所有未被取走的产物，节点退出时调用。
func (h *Handler) Close() error {
	h.mu.Lock()
	pending := h.artifacts
	h.artifacts = make(map[string]struct{})
	h.mu.Unlock()

	for physical := range pending {
		if err := h.root.Delete(physical); err != nil {
			h.logger.WithError(err).WithField("artifact", physical).Warn("清理打包产物失败")
		}
	}
	return nil
}
