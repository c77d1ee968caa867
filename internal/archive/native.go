package archive

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
)

// Native 在进程内遍历目录并用 archive/tar 写出产物。
type Native struct {
	settings settings
}

// NewNative 构建进程内归档器。
func NewNative(opts ...Option) *Native {
	return &Native{settings: applyOptions(opts)}
}

func (n *Native) Create(ctx context.Context, root, suffix, dest string) (int, error) {
	files, err := collect(ctx, root, suffix, dest, n.settings.exclude)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	tempFile, err := os.CreateTemp(filepath.Dir(dest), ".archive-*")
	if err != nil {
		return 0, err
	}
	tempName := tempFile.Name()

	err = writeTar(ctx, tempFile, root, files)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return 0, err
	}
	if err := os.Rename(tempName, dest); err != nil {
		os.Remove(tempName)
		return 0, err
	}
	return len(files), nil
}

func writeTar(ctx context.Context, w io.Writer, root string, files []string) error {
	tw := tar.NewWriter(w)
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(tw, root, rel); err != nil {
			return err
		}
	}
	return tw.Close()
}

func addFile(tw *tar.Writer, root, rel string) error {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
