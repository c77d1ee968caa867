package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// PendingFile 是尚未落盘的写入：内容先写入同目录临时文件，Commit 时 rename 到目标路径。
type PendingFile struct {
	temp   *os.File
	target string
	done   bool
}

// Create 在物理目录 dir 下为 name 准备一次写入，缺失的目录会被逐级创建。
func (r *Root) Create(dir, name string) (*PendingFile, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	absDir, err := r.Resolve(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	temp, err := os.CreateTemp(absDir, ".incoming-*")
	if err != nil {
		return nil, err
	}
	return &PendingFile{temp: temp, target: filepath.Join(absDir, name)}, nil
}

func (p *PendingFile) Write(b []byte) (int, error) {
	return p.temp.Write(b)
}

// Path 返回提交后的目标绝对路径。
func (p *PendingFile) Path() string {
	return p.target
}

// Commit 关闭临时文件并替换目标文件。
func (p *PendingFile) Commit() error {
	if p.done {
		return errors.New("storage: pending file already finished")
	}
	p.done = true
	if err := p.temp.Close(); err != nil {
		os.Remove(p.temp.Name())
		return err
	}
	if err := os.Rename(p.temp.Name(), p.target); err != nil {
		os.Remove(p.temp.Name())
		return err
	}
	return nil
}

// Abort 丢弃已写入的内容，可重复调用。
func (p *PendingFile) Abort() {
	if p.done {
		return
	}
	p.done = true
	p.temp.Close()
	os.Remove(p.temp.Name())
}

// Adopt 把 src（通常是暂存文件）移动到物理目录 dir 下的 name，跨设备时退化为复制。
func (r *Root) Adopt(src, dir, name string) error {
	pending, err := r.Create(dir, name)
	if err != nil {
		return err
	}
	pending.Abort()

	if err := os.Rename(src, pending.Path()); err == nil {
		return nil
	} else if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	pending, err = r.Create(dir, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(pending, in); err != nil {
		pending.Abort()
		return err
	}
	return pending.Commit()
}
