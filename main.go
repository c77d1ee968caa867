package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/any-hub/any-fs/internal/config"
	"github.com/any-hub/any-fs/internal/logging"
	"github.com/any-hub/any-fs/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	role        string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	role, err := cfg.ResolveRole(opts.role)
	if err != nil {
		fmt.Fprintf(stdErr, "解析节点角色失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global, role.Name)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["hub"] = cfg.Hub.Name
		fields["backends"] = config.BackendSummary(cfg.Backends)
		fields["role"] = role.Name
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["role"] = role.Name
	fields["storage"] = cfg.Global.StoragePath
	fields["backends"] = config.BackendSummary(cfg.Backends)
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	// SIGINT/SIGTERM 取消 ctx：监听器关闭，活动会话被中断后进程退出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if role.Hub {
		err = runHub(ctx, cfg, logger)
	} else {
		err = runBackend(ctx, cfg, role.Backend, logger)
	}
	if err != nil {
		fmt.Fprintf(stdErr, "%s 节点运行失败: %v\n", role.Name, err)
		return 1
	}
	logger.WithField("role", role.Name).Info("节点已停止")
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径与节点角色。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("any-fs", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		roleFlag   string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 ANY_FS_CONFIG 覆盖）")
	fs.StringVar(&roleFlag, "role", "", "运行的节点：hub 或存储节点名（可被 ANY_FS_ROLE 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("ANY_FS_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	role := os.Getenv("ANY_FS_ROLE")
	if roleFlag != "" {
		role = roleFlag
	}
	if role == "" {
		role = config.RoleHub
	}

	return cliOptions{
		configPath:  path,
		role:        role,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}
