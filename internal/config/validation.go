package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/any-hub/any-fs/internal/category"
)

var supportedArchiveModes = map[string]struct{}{
	"native": {},
	"shell":  {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动节点。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	durations := map[string]Duration{
		"Global.DialTimeout":    g.DialTimeout,
		"Global.BackendTimeout": g.BackendTimeout,
		"Global.HeaderWait":     g.HeaderWait,
		"Global.HeaderBackoff":  g.HeaderBackoff,
	}
	for field, d := range durations {
		if d.DurationValue() <= 0 {
			return newFieldError(field, "必须大于 0")
		}
	}
	if _, ok := supportedArchiveModes[g.ArchiveMode]; !ok {
		return newFieldError("Global.ArchiveMode", "仅支持 native|shell")
	}

	if err := c.Hub.validate(); err != nil {
		return err
	}

	if len(c.Backends) == 0 {
		return errors.New("至少需要配置一个 Backend")
	}

	seenNames := map[string]struct{}{strings.ToLower(c.Hub.Name): {}}
	seenRoots := map[string]struct{}{c.Hub.Root: {}}
	seenCategories := map[string]string{}
	for _, b := range c.Backends {
		if b.Name == "" {
			return newFieldError("Backend[].Name", "不能为空")
		}
		lower := strings.ToLower(b.Name)
		if _, exists := seenNames[lower]; exists {
			return newFieldError(backendField(b.Name, "Name"), "重复")
		}
		seenNames[lower] = struct{}{}

		cat, ok := category.Resolve(b.Category)
		if !ok {
			return newFieldError(backendField(b.Name, "Category"), "仅支持 "+strings.Join(category.Keys(), "|"))
		}
		if cat.Local {
			return newFieldError(backendField(b.Name, "Category"), fmt.Sprintf("%s 类别由 hub 本地保存", cat.Key))
		}
		if owner, exists := seenCategories[cat.Key]; exists {
			return newFieldError(backendField(b.Name, "Category"), fmt.Sprintf("已由 %s 负责", owner))
		}
		seenCategories[cat.Key] = b.Name

		if strings.TrimSpace(b.Address) == "" {
			return newFieldError(backendField(b.Name, "Address"), "不能为空")
		}
		if strings.TrimSpace(b.ListenAddr) == "" {
			return newFieldError(backendField(b.Name, "ListenAddr"), "不能为空")
		}
		if !singleSegment(b.Root) {
			return newFieldError(backendField(b.Name, "Root"), "必须是单级目录名")
		}
		if _, exists := seenRoots[b.Root]; exists {
			return newFieldError(backendField(b.Name, "Root"), "重复")
		}
		seenRoots[b.Root] = struct{}{}
	}

	for _, cat := range category.List() {
		if cat.Local {
			continue
		}
		if _, ok := seenCategories[cat.Key]; !ok {
			return newFieldError("Backend", fmt.Sprintf("缺少 %s 类别的存储节点", cat.Key))
		}
	}

	return nil
}

func (h HubConfig) validate() error {
	if h.Name == "" {
		return newFieldError("Hub.Name", "不能为空")
	}
	if strings.TrimSpace(h.Namespace) == "" {
		return newFieldError("Hub.Namespace", "不能为空")
	}
	if strings.TrimSpace(h.ListenAddr) == "" {
		return newFieldError("Hub.ListenAddr", "不能为空")
	}
	if !singleSegment(h.Root) {
		return newFieldError("Hub.Root", "必须是单级目录名")
	}
	if !singleSegment(h.StagingDir) {
		return newFieldError("Hub.StagingDir", "必须是单级目录名")
	}
	if h.DiagnosticsPort < 0 || h.DiagnosticsPort > 65535 {
		return newFieldError("Hub.DiagnosticsPort", "必须在 0-65535")
	}
	return nil
}

func singleSegment(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
