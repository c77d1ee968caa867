package config

import (
	"fmt"
	"net"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/any-hub/any-fs/internal/category"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyHubDefaults(&cfg.Hub)
	for i := range cfg.Backends {
		applyBackendDefaults(&cfg.Backends[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析存储目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("DialTimeout", "5s")
	v.SetDefault("BackendTimeout", "60s")
	v.SetDefault("HeaderWait", "5s")
	v.SetDefault("HeaderBackoff", "100ms")
	v.SetDefault("ArchiveMode", "native")

	v.SetDefault("Hub.Name", "S1")
	v.SetDefault("Hub.ListenAddr", ":4301")
	v.SetDefault("Hub.StagingDir", "temp")
	v.SetDefault("Hub.ParallelFanout", true)
	v.SetDefault("Hub.DiagnosticsPort", 0)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.DialTimeout.DurationValue() == 0 {
		g.DialTimeout = Duration(5 * time.Second)
	}
	if g.BackendTimeout.DurationValue() == 0 {
		g.BackendTimeout = Duration(60 * time.Second)
	}
	if g.HeaderWait.DurationValue() == 0 {
		g.HeaderWait = Duration(5 * time.Second)
	}
	if g.HeaderBackoff.DurationValue() == 0 {
		g.HeaderBackoff = Duration(100 * time.Millisecond)
	}
	g.ArchiveMode = strings.ToLower(strings.TrimSpace(g.ArchiveMode))
	if g.ArchiveMode == "" {
		g.ArchiveMode = "native"
	}
}

func applyHubDefaults(h *HubConfig) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Root == "" {
		h.Root = category.DefaultRootFor(category.LocalKey(), h.Name)
	}
	if h.Namespace == "" {
		h.Namespace = h.Name
	}
	if h.Greeting == "" && h.Name != "" {
		h.Greeting = fmt.Sprintf("Welcome to %s server.", h.Name)
	}
}

func applyBackendDefaults(b *BackendConfig) {
	b.Name = strings.TrimSpace(b.Name)
	key := strings.ToLower(strings.TrimSpace(b.Category))
	if c, ok := category.ForSuffix(key); ok {
		key = c.Key
	}
	b.Category = key
	if b.Root == "" {
		b.Root = category.DefaultRootFor(key, b.Name)
	}
	if b.ListenAddr == "" && b.Address != "" {
		if _, port, err := net.SplitHostPort(b.Address); err == nil {
			b.ListenAddr = ":" + port
		}
	}
}

// durationDecodeHook 把 TOML 中的字符串或数字转换为 Duration，数字按秒解释。
func durationDecodeHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(Duration(0))
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			d, err := parseDuration(v)
			return Duration(d), err
		case int:
			return Duration(seconds(float64(v))), nil
		case int64:
			return Duration(seconds(float64(v))), nil
		case float64:
			return Duration(seconds(v)), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		}
		return nil, fmt.Errorf("不支持的 Duration 类型: %T", data)
	}
}
