// Package archive 把某个根目录下文件名包含指定扩展名的文件打成一个 tar 产物。
//
// 产物格式对调用方不透明：hub 与存储节点只关心产物路径，并按帧原样传输。
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/any-hub/any-fs/internal/category"
)

// ErrNoFiles 表示根目录下没有任何匹配文件，此时不会生成产物。
var ErrNoFiles = errors.New("archive: no matching files")

// Archiver 在 dest 生成 root 下匹配 suffix 的文件的归档，返回归档的文件数。
type Archiver interface {
	Create(ctx context.Context, root, suffix, dest string) (int, error)
}

// Option 调整归档器的行为。
type Option func(*settings)

type settings struct {
	exclude []string
	tarBin  string
}

// WithExclude 跳过指定的目录或文件（绝对路径或相对工作目录的路径）。
func WithExclude(paths ...string) Option {
	return func(s *settings) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				s.exclude = append(s.exclude, abs)
			}
		}
	}
}

// WithTarBinary 指定 shell 模式使用的 tar 可执行文件。
func WithTarBinary(bin string) Option {
	return func(s *settings) {
		s.tarBin = bin
	}
}

// New 根据模式构建归档器：native 使用进程内目录遍历，shell 委托系统 tar。
func New(mode string, opts ...Option) (Archiver, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "native":
		return NewNative(opts...), nil
	case "shell":
		return NewShell(opts...), nil
	default:
		return nil, fmt.Errorf("archive: unknown mode %q", mode)
	}
}

func applyOptions(opts []Option) settings {
	s := settings{tarBin: "tar"}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// collect 递归收集 root 下文件名包含 suffix 的普通文件，返回排序后的相对路径。
func collect(ctx context.Context, root, suffix, dest string, exclude []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absDest, _ := filepath.Abs(dest)

	var files []string
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == absRoot {
				return walkErr
			}
			// 无法读取的子目录直接跳过
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if isExcluded(p, exclude) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if p == absDest || !category.MatchName(d.Name(), suffix) {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	sort.Strings(files)
	return files, nil
}

func isExcluded(p string, exclude []string) bool {
	for _, ex := range exclude {
		if p == ex {
			return true
		}
	}
	return false
}
