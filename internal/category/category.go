package category

import "strings"

// Category 描述一个文件类别及其在集群中的归属。
type Category struct {
	// Key 是类别短名，例如 c、pdf、txt、zip。
	Key string
	// Suffix 是带点的扩展名，路由、LIST 过滤与打包过滤都使用它。
	Suffix string
	// Local 表示该类别直接保存在 hub 根目录，不经过网络。
	Local bool
	// DefaultRoot 是默认的物理根目录名（S1..S4），配置可覆盖。
	DefaultRoot string
	// ArchiveName 是 downltar 产物在客户端落盘时使用的文件名。
	ArchiveName string
	// Archivable 为 false 的类别拒绝 downltar（例如 zip）。
	Archivable bool
	// Rank 决定 dispfnames 中的分组顺序。
	Rank        int
	Description string
}

// Label 返回大写的类别名，用于面向用户的提示语。
func (c Category) Label() string {
	return strings.ToUpper(c.Key)
}

// MatchName 是 LIST 与打包共用的过滤规则：包含 filter 即匹配，空 filter 不匹配任何文件。
func MatchName(name, filter string) bool {
	return filter != "" && strings.Contains(name, filter)
}
