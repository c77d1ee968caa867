// Package storage 提供单个节点根目录（S1..S4）上的文件操作。
//
// 线上传输的物理路径形如 "S2/dir/file.pdf"，首段必须是本节点的根目录名；
// Resolve 将其映射到 <StoragePath>/S2/dir/file.pdf，任何越出根目录的路径都会被拒绝。
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/any-hub/any-fs/internal/category"
)

var (
	// ErrNotFound 表示目标不存在或不是普通文件。
	ErrNotFound = errors.New("storage: file not found")
	// ErrOutsideRoot 表示物理路径不在本节点根目录下。
	ErrOutsideRoot = errors.New("storage: path outside node root")
	// ErrInvalidName 表示文件名为空或包含路径分隔符。
	ErrInvalidName = errors.New("storage: invalid file name")
)

// Root 表示一个节点的物理根目录。
type Root struct {
	name string
	base string
	dir  string
}

// NewRoot 在 base 下创建（或复用）名为 name 的根目录。
func NewRoot(base, name string) (*Root, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return nil, fmt.Errorf("storage: invalid root name %q", name)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base: %w", err)
	}
	dir := filepath.Join(absBase, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Root{name: name, base: absBase, dir: dir}, nil
}

// Name 返回根目录名，即物理路径的首段。
func (r *Root) Name() string {
	return r.name
}

// Dir 返回根目录的绝对路径。
func (r *Root) Dir() string {
	return r.dir
}

// Resolve 将物理路径映射为绝对路径。
func (r *Root) Resolve(physical string) (string, error) {
	clean := path.Clean(filepath.ToSlash(strings.TrimSpace(physical)))
	if clean != r.name && !strings.HasPrefix(clean, r.name+"/") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, physical)
	}
	return filepath.Join(r.base, filepath.FromSlash(clean)), nil
}

// Open 打开物理路径上的普通文件并返回其大小。
func (r *Root) Open(physical string) (*os.File, int64, error) {
	abs, err := r.Resolve(physical)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, physical)
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, physical)
	}
	return f, info.Size(), nil
}

// Delete 删除物理路径上的普通文件，不存在时返回 ErrNotFound。
func (r *Root) Delete(physical string) error {
	abs, err := r.Resolve(physical)
	if err != nil {
		return err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, physical)
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotFound, physical)
	}
	return os.Remove(abs)
}

// List 列出目录下名称包含 filter 的直接子项（不递归），按名称排序。
func (r *Root) List(physicalDir, filter string) ([]string, error) {
	abs, err := r.Resolve(physicalDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if category.MatchName(entry.Name(), filter) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
