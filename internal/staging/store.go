package staging

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理暂存区的读写。磁盘布局遵循：
//
//	<StagingDir>/<Session>/<Name>
//
// 每个会话独占一个子目录，不同会话上传同名文件互不覆盖。
type Store interface {
	// Write 通过 fill 回调写入条目内容。实现需通过临时文件 + rename 保证原子性，
	// fill 返回错误时清理临时文件且不留下条目。
	Write(ctx context.Context, locator Locator, fill func(io.Writer) error) (*Entry, error)

	// Remove 删除条目，不存在时不报错。
	Remove(ctx context.Context, locator Locator) error

	// RemoveSession 删除整个会话目录。
	RemoveSession(ctx context.Context, session string) error

	// Path 返回条目的绝对路径，并确保会话目录存在。
	Path(locator Locator) (string, error)

	// Root 返回暂存区根目录。
	Root() string
}

// Locator 唯一定位一个暂存条目（会话 + 文件名），Name 不允许包含路径分隔符。
type Locator struct {
	Session string
	Name    string
}

// Entry 描述一个已写入的暂存条目。
type Entry struct {
	Locator   Locator `json:"locator"`
	FilePath  string  `json:"file_path"`
	SizeBytes int64   `json:"size_bytes"`
	ModTime   time.Time
}

// ErrInvalidLocator 表示会话或文件名非法。
var ErrInvalidLocator = errors.New("invalid staging locator")
