package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Shell 先在进程内收集文件列表，再交给系统 tar 写出产物。
type Shell struct {
	settings settings
}

// NewShell 构建委托系统 tar 的归档器。
func NewShell(opts ...Option) *Shell {
	return &Shell{settings: applyOptions(opts)}
}

func (s *Shell) Create(ctx context.Context, root, suffix, dest string) (int, error) {
	files, err := collect(ctx, root, suffix, dest, s.settings.exclude)
	if err != nil {
		return 0, err
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(absDest), 0o755); err != nil {
		return 0, err
	}

	var list bytes.Buffer
	for _, rel := range files {
		list.WriteString(rel)
		list.WriteByte(0)
	}

	cmd := exec.CommandContext(ctx, s.settings.tarBin, "-c", "-f", absDest, "-C", root, "--null", "-T", "-")
	cmd.Stdin = &list
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(absDest)
		return 0, fmt.Errorf("archive: %s failed: %w: %s", s.settings.tarBin, err, strings.TrimSpace(stderr.String()))
	}
	return len(files), nil
}
