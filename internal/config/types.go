package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Duration 兼容 Go Duration 字符串（"30s"、"5m"）与按秒计的纯数字。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别 "30s" 或 "30" 两种写法。
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %q", raw)
	}
	return seconds(secs), nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// GlobalConfig 描述所有节点共享的运行时参数。
type GlobalConfig struct {
	LogLevel       string   `mapstructure:"LogLevel"`
	LogFilePath    string   `mapstructure:"LogFilePath"`
	LogMaxSize     int      `mapstructure:"LogMaxSize"`
	LogMaxBackups  int      `mapstructure:"LogMaxBackups"`
	LogCompress    bool     `mapstructure:"LogCompress"`
	StoragePath    string   `mapstructure:"StoragePath"`
	DialTimeout    Duration `mapstructure:"DialTimeout"`
	BackendTimeout Duration `mapstructure:"BackendTimeout"`
	HeaderWait     Duration `mapstructure:"HeaderWait"`
	HeaderBackoff  Duration `mapstructure:"HeaderBackoff"`
	ArchiveMode    string   `mapstructure:"ArchiveMode"`
}

// HubConfig 描述客户端直连的路由节点。
type HubConfig struct {
	Name            string `mapstructure:"Name"`
	Namespace       string `mapstructure:"Namespace"`
	ListenAddr      string `mapstructure:"ListenAddr"`
	Root            string `mapstructure:"Root"`
	StagingDir      string `mapstructure:"StagingDir"`
	Greeting        string `mapstructure:"Greeting"`
	ParallelFanout  bool   `mapstructure:"ParallelFanout"`
	DiagnosticsPort int    `mapstructure:"DiagnosticsPort"`
}

// BackendConfig 描述一个专用存储节点。Address 由 hub 拨号，ListenAddr 由节点自身监听。
type BackendConfig struct {
	Name       string `mapstructure:"Name"`
	Category   string `mapstructure:"Category"`
	Address    string `mapstructure:"Address"`
	ListenAddr string `mapstructure:"ListenAddr"`
	Root       string `mapstructure:"Root"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig    `mapstructure:",squash"`
	Hub      HubConfig       `mapstructure:"Hub"`
	Backends []BackendConfig `mapstructure:"Backend"`
}

// StagingPath 返回 hub 暂存区的绝对路径：<StoragePath>/<Hub.Root>/<Hub.StagingDir>。
func (c *Config) StagingPath() string {
	return filepath.Join(c.Global.StoragePath, c.Hub.Root, c.Hub.StagingDir)
}

// Backend 按名称查找存储节点配置（大小写不敏感）。
func (c *Config) Backend(name string) (BackendConfig, bool) {
	for _, b := range c.Backends {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return BackendConfig{}, false
}

// BackendFor 返回负责某个类别的存储节点。
func (c *Config) BackendFor(categoryKey string) (BackendConfig, bool) {
	for _, b := range c.Backends {
		if b.Category == categoryKey {
			return b, true
		}
	}
	return BackendConfig{}, false
}

// BackendSummary 返回形如 S2:pdf@127.0.0.1:4302 的摘要，供启动日志使用。
func BackendSummary(backends []BackendConfig) []string {
	if len(backends) == 0 {
		return nil
	}
	result := make([]string, len(backends))
	for i, b := range backends {
		result[i] = fmt.Sprintf("%s:%s@%s", b.Name, b.Category, b.Address)
	}
	return result
}
