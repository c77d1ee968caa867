package config

import (
	"fmt"
	"strings"
)

// RoleHub 是 hub 节点的角色名，其余角色使用存储节点名称。
const RoleHub = "hub"

// NodeRole 描述当前进程要运行的节点。
type NodeRole struct {
	Hub     bool
	Name    string
	Backend BackendConfig
}

// ResolveRole 根据 --role 取值定位节点配置。hub 也可以用 Hub.Name 指定。
func (c *Config) ResolveRole(role string) (NodeRole, error) {
	role = strings.TrimSpace(role)
	if role == "" || strings.EqualFold(role, RoleHub) || strings.EqualFold(role, c.Hub.Name) {
		return NodeRole{Hub: true, Name: c.Hub.Name}, nil
	}
	if b, ok := c.Backend(role); ok {
		return NodeRole{Name: b.Name, Backend: b}, nil
	}
	names := []string{RoleHub}
	for _, b := range c.Backends {
		names = append(names, b.Name)
	}
	return NodeRole{}, fmt.Errorf("未知角色 %q，可选: %s", role, strings.Join(names, "|"))
}
