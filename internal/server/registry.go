package server

import (
	"errors"
	"fmt"

	"github.com/any-hub/any-fs/internal/category"
	"github.com/any-hub/any-fs/internal/config"
)

// Endpoint 将一个文件类别与负责它的节点聚合在一起，供 hub 路由时直接复用。
type Endpoint struct {
	// Category 是注册表中的类别元数据副本。
	Category category.Category
	// Name 是节点名（S1..S4），Probe 回复 <Name>_OK。
	Name string
	// Address 是 hub 拨号地址；本地类别为空。
	Address string
	// Root 是节点的物理根目录名，物理路径以它开头。
	Root string
	// Local 表示该类别由 hub 直接读写磁盘。
	Local bool
}

// EndpointRegistry 提供类别到 Endpoint 的查询能力。
type EndpointRegistry struct {
	routes  map[string]*Endpoint
	ordered []*Endpoint
}

// NewEndpointRegistry 根据配置构建类别映射。调用方应在启动阶段创建一次并复用。
func NewEndpointRegistry(cfg *config.Config) (*EndpointRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &EndpointRegistry{
		routes: make(map[string]*Endpoint),
	}

	for _, cat := range category.List() {
		var ep *Endpoint
		if cat.Local {
			ep = &Endpoint{
				Category: cat,
				Name:     cfg.Hub.Name,
				Root:     cfg.Hub.Root,
				Local:    true,
			}
		} else {
			backend, ok := cfg.BackendFor(cat.Key)
			if !ok {
				return nil, fmt.Errorf("no backend configured for category %s", cat.Key)
			}
			ep = &Endpoint{
				Category: cat,
				Name:     backend.Name,
				Address:  backend.Address,
				Root:     backend.Root,
			}
		}
		registry.routes[cat.Key] = ep
		registry.ordered = append(registry.ordered, ep)
	}

	return registry, nil
}

// Lookup 根据类别键查找 Endpoint。
func (r *EndpointRegistry) Lookup(categoryKey string) (*Endpoint, bool) {
	if r == nil {
		return nil, false
	}
	ep, ok := r.routes[categoryKey]
	return ep, ok
}

// ForFile 根据文件扩展名查找 Endpoint，未注册的扩展名返回 false。
func (r *EndpointRegistry) ForFile(name string) (*Endpoint, bool) {
	cat, ok := category.ForFile(name)
	if !ok {
		return nil, false
	}
	return r.Lookup(cat.Key)
}

// List 返回按类别顺序排列的 Endpoint 副本，用于 dispfnames 与 /-/endpoints。
func (r *EndpointRegistry) List() []Endpoint {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}

	result := make([]Endpoint, len(r.ordered))
	for i, ep := range r.ordered {
		result[i] = *ep
	}
	return result
}

// Remote 只返回需要网络访问的 Endpoint，Probe 使用。
func (r *EndpointRegistry) Remote() []Endpoint {
	var result []Endpoint
	for _, ep := range r.List() {
		if !ep.Local {
			result = append(result, ep)
		}
	}
	return result
}
