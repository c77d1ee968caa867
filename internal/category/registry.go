package category

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var globalRegistry = newRegistry()

type registry struct {
	mu       sync.RWMutex
	byKey    map[string]Category
	bySuffix map[string]string
}

func newRegistry() *registry {
	return &registry{
		byKey:    make(map[string]Category),
		bySuffix: make(map[string]string),
	}
}

// Register 将类别加入全局注册表，重复的键或扩展名会返回错误。
func Register(c Category) error {
	return globalRegistry.register(c)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(c Category) {
	if err := Register(c); err != nil {
		panic(err)
	}
}

// Resolve 根据类别键（c/pdf/txt/zip）查找类别。
func Resolve(key string) (Category, bool) {
	return globalRegistry.resolve(key)
}

// ForSuffix 根据扩展名（例如 .pdf）查找类别。
func ForSuffix(suffix string) (Category, bool) {
	return globalRegistry.forSuffix(suffix)
}

// ForFile 根据文件名的扩展名查找类别。
func ForFile(name string) (Category, bool) {
	return globalRegistry.forSuffix(filepath.Ext(name))
}

// List 返回按 Rank 排序的类别列表。
func List() []Category {
	return globalRegistry.list()
}

// Keys 返回按 Rank 排序的类别键，供诊断与配置校验使用。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, c := range items {
		result[i] = c.Key
	}
	return result
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(c Category) error {
	key := normalizeKey(c.Key)
	if key == "" {
		return fmt.Errorf("category key is required")
	}
	suffix := strings.TrimSpace(c.Suffix)
	if !strings.HasPrefix(suffix, ".") || len(suffix) < 2 {
		return fmt.Errorf("category %s: suffix must start with a dot", key)
	}
	c.Key = key
	c.Suffix = suffix

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[key]; exists {
		return fmt.Errorf("category %s already registered", key)
	}
	if owner, exists := r.bySuffix[suffix]; exists {
		return fmt.Errorf("suffix %s already owned by category %s", suffix, owner)
	}
	r.byKey[key] = c
	r.bySuffix[suffix] = key
	return nil
}

func (r *registry) resolve(key string) (Category, bool) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return Category{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byKey[normalized]
	return c, ok
}

func (r *registry) forSuffix(suffix string) (Category, bool) {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return Category{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.bySuffix[suffix]
	if !ok {
		return Category{}, false
	}
	return r.byKey[key], true
}

func (r *registry) list() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.byKey) == 0 {
		return nil
	}

	result := make([]Category, 0, len(r.byKey))
	for _, c := range r.byKey {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Rank != result[j].Rank {
			return result[i].Rank < result[j].Rank
		}
		return result[i].Key < result[j].Key
	})
	return result
}
