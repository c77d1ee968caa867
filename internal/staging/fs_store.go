package staging

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// lockStripes 为条目锁分片数量，同一 Locator 总是落在同一把锁上。
const lockStripes = 64

// NewStore 以 basePath 为根目录构建暂存区，hub 进程内共享一份实例。
func NewStore(basePath string) (Store, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("staging path required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve staging path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create staging path: %w", err)
	}
	return &fileStore{root: abs}, nil
}

type fileStore struct {
	root    string
	stripes [lockStripes]sync.Mutex
}

func (s *fileStore) Root() string {
	return s.root
}

// Write 先写入同目录下的 .part 文件，fill 成功且落盘后再 rename 为正式条目。
func (s *fileStore) Write(ctx context.Context, loc Locator, fill func(io.Writer) error) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mu := s.stripe(loc)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.Path(loc)
	if err != nil {
		return nil, err
	}
	part, err := os.CreateTemp(filepath.Dir(p), ".part-"+loc.Name+"-*")
	if err != nil {
		return nil, err
	}
	partName := part.Name()

	w := &countingWriter{w: part}
	err = fill(w)
	if err == nil {
		err = part.Sync()
	}
	if cerr := part.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(partName, p)
	}
	if err != nil {
		_ = os.Remove(partName)
		return nil, err
	}
	return &Entry{Locator: loc, FilePath: p, SizeBytes: w.n, ModTime: time.Now().UTC()}, nil
}

func (s *fileStore) Remove(_ context.Context, loc Locator) error {
	mu := s.stripe(loc)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.resolve(loc)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) RemoveSession(_ context.Context, session string) error {
	if !validSegment(session) {
		return fmt.Errorf("%w: session %q", ErrInvalidLocator, session)
	}
	return os.RemoveAll(filepath.Join(s.root, session))
}

func (s *fileStore) Path(loc Locator) (string, error) {
	p, err := s.resolve(loc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	return p, nil
}

func (s *fileStore) resolve(loc Locator) (string, error) {
	if !validSegment(loc.Session) {
		return "", fmt.Errorf("%w: session %q", ErrInvalidLocator, loc.Session)
	}
	if !validSegment(loc.Name) {
		return "", fmt.Errorf("%w: name %q", ErrInvalidLocator, loc.Name)
	}
	return filepath.Join(s.root, loc.Session, loc.Name), nil
}

func (s *fileStore) stripe(loc Locator) *sync.Mutex {
	h := fnv.New32a()
	_, _ = io.WriteString(h, loc.Session)
	_, _ = h.Write([]byte{0})
	_, _ = io.WriteString(h, loc.Name)
	return &s.stripes[h.Sum32()%lockStripes]
}

func validSegment(s string) bool {
	switch s {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
