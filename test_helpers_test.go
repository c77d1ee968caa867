package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// configFixture 返回 internal/config/testdata 下的集群配置样例。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("无法定位测试文件")
	}
	return filepath.Join(filepath.Dir(file), "internal", "config", "testdata", name)
}

// useBufferWriters 在测试期间把 stdOut/stdErr 换成内存缓冲区。
func useBufferWriters(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = out, errOut
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
	return out, errOut
}

// clusterConfig 生成 hub 加 S2/S3/S4 的最小配置。global 放在顶部，hub 追加到 [Hub] 段内。
func clusterConfig(global, hub string) string {
	return strings.TrimSpace(global) + `

[Hub]
Name = "S1"
` + hub + `

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
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return file
}
