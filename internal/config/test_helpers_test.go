package config

import (
	"os"
	"path/filepath"
	"testing"
)

// standardBackends 是 S2/S3/S4 三个存储节点的最小配置，拼在 hub 配置之后即可通过校验。
const standardBackends = `
[[Backend]]
Name = "S2"
Category = "pdf"
Address = "127.0.0.1:4302"

[[Backend]]
Name = "S3"
Category = "txt"
Address = "127.0.0.1:4303"

[[Backend]]
Name = "S4"
Category = "zip"
Address = "127.0.0.1:4304"
`

// fixturePath 返回 testdata 下的集群配置样例。
func fixturePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

// writeClusterConfig 在 head（全局项与 [Hub]）之后追加 standardBackends。
func writeClusterConfig(t *testing.T, head string) string {
	t.Helper()
	return writeTempConfig(t, head+standardBackends)
}
