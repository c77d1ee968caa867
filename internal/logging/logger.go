package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/any-hub/any-fs/internal/config"
)

// InitLogger 根据全局配置初始化 JSON 结构化日志。node 非空时每条日志带上 node 字段，
// 日志文件名追加节点后缀（any-fs.log -> any-fs-S2.log），同一份配置启动的多个节点互不争用文件。
func InitLogger(cfg config.GlobalConfig, node string) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	cfg.LogFilePath = NodeLogPath(cfg.LogFilePath, node)
	output, outErr := buildOutput(cfg)
	if outErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	if node != "" {
		logger.AddHook(nodeHook{node: node})
	}

	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())

	if outErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(outErr.Error())
	}

	return logger, nil
}

// buildOutput 根据配置创建日志输出 Writer；失败时降级到 stdout 并返回错误。
func buildOutput(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stdout, nil
	}

	dir := filepath.Dir(cfg.LogFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stdout, fmt.Errorf("创建日志目录失败: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}
	return rotator, nil
}

// NodeLogPath 返回节点专属的日志文件路径，path 为空时保持为空（输出到 stdout）。
func NodeLogPath(path, node string) string {
	if path == "" || node == "" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + node + ext
}

// nodeHook 为未显式设置 node 字段的日志补上当前节点名。
type nodeHook struct {
	node string
}

func (h nodeHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h nodeHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["node"]; !ok {
		entry.Data["node"] = h.node
	}
	return nil
}
