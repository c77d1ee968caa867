// Package nspath 将客户端可见的逻辑路径翻译为各节点使用的物理路径。
//
// 翻译是纯字符串操作：不检查存在性、永不失败，非法路径要等到文件系统操作时才会暴露。
package nspath

import (
	"path"
	"strings"
)

// Translate 按优先级识别以下形式并替换为 root：
//
//	~/<NS>/<rest>  -> <root>/<rest>
//	~/<NS>, ~<NS>  -> <root>
//	~<NS>/<rest>   -> <root>/<rest>
//	/<p>           -> <root>/<p>
//	<p>            -> <root>/<p>
func Translate(logical, ns, root string) string {
	p := strings.TrimSpace(logical)
	home := "~/" + ns
	tilde := "~" + ns

	switch {
	case p == "":
		return root
	case strings.HasPrefix(p, home+"/"):
		return withRest(root, p[len(home)+1:])
	case p == home || p == tilde:
		return root
	case strings.HasPrefix(p, tilde+"/"):
		return withRest(root, p[len(tilde)+1:])
	case strings.HasPrefix(p, "/"):
		return root + p
	default:
		return root + "/" + p
	}
}

func withRest(root, rest string) string {
	if rest == "" {
		return root
	}
	return root + "/" + rest
}

// Split 把逻辑路径拆成目录与文件名。没有分隔符的路径属于命名空间根目录，目录返回空串。
func Split(logical string) (dir, name string) {
	p := strings.TrimSpace(logical)
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "", p
	}
	if idx == 0 {
		return "/", p[1:]
	}
	return p[:idx], p[idx+1:]
}

// Join 拼接物理目录与文件名，并做词法清理。
func Join(dir, name string) string {
	return path.Join(dir, name)
}

// Resolve 是 Split + Translate + Join 的组合：返回 logical 在 root 下的物理文件路径。
func Resolve(logical, ns, root string) string {
	dir, name := Split(logical)
	return Join(Translate(dir, ns, root), name)
}
