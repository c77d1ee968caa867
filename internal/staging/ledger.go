package staging

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Ledger 记录一次命令中产生的暂存条目，Close 时统一删除，成功与失败路径一致。
type Ledger struct {
	store   Store
	session string

	mu      sync.Mutex
	pending []Locator
}

// NewLedger 为 session 创建一份删除义务清单。
func NewLedger(store Store, session string) *Ledger {
	return &Ledger{store: store, session: session}
}

// Stage 写入一个暂存条目并登记删除义务。fill 失败时条目不会留下。
func (l *Ledger) Stage(ctx context.Context, name string, fill func(io.Writer) error) (*Entry, error) {
	loc := Locator{Session: l.session, Name: name}
	l.track(loc)
	return l.store.Write(ctx, loc, fill)
}

// Reserve 登记一个由外部写入的条目（例如打包产物），返回其绝对路径。
func (l *Ledger) Reserve(name string) (Locator, string, error) {
	loc := Locator{Session: l.session, Name: name}
	p, err := l.store.Path(loc)
	if err != nil {
		return Locator{}, "", err
	}
	l.track(loc)
	return loc, p, nil
}

// Release 立即删除一个条目并解除登记。
func (l *Ledger) Release(ctx context.Context, loc Locator) error {
	l.mu.Lock()
	for i, item := range l.pending {
		if item == loc {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			break
		}
	}
	l.mu.Unlock()
	return l.store.Remove(ctx, loc)
}

// Pending 返回尚未删除的条目数。
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Close 删除所有登记的条目，会话目录为空时一并删除。
func (l *Ledger) Close(ctx context.Context) error {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	var errs []error
	for _, loc := range pending {
		if err := l.store.Remove(ctx, loc); err != nil {
			errs = append(errs, err)
		}
	}
	// 非空目录删除失败是预期行为
	_ = os.Remove(filepath.Join(l.store.Root(), l.session))
	return errors.Join(errs...)
}

func (l *Ledger) track(loc Locator) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, item := range l.pending {
		if item == loc {
			return
		}
	}
	l.pending = append(l.pending, loc)
}
