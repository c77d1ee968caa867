// anyfs 是 any-fs hub 的命令行客户端：每次调用执行一条命令并打印 hub 的回复。
//
//	anyfs -addr 127.0.0.1:4301 uploadf a.txt b.pdf ~/S1/docs
//	anyfs downlf ~/S1/docs/a.txt
//	anyfs dispfnames ~/S1/docs
//	anyfs downltar .pdf
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/disiqueira/gotree/v3"

	"github.com/any-hub/any-fs/internal/category"
	"github.com/any-hub/any-fs/internal/client"
	"github.com/any-hub/any-fs/internal/version"
)

type cliOptions struct {
	addr    string
	outDir  string
	timeout time.Duration
	raw     bool
	args    []string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

var errUsage = errors.New("用法: anyfs [-addr host:port] [-out dir] <uploadf|downlf|removef|dispfnames|downltar|TEST> [args...]")

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(context.Background(), opts))
}

func parseFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("anyfs", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := cliOptions{}
	fs.StringVar(&opts.addr, "addr", "", "hub 地址（默认 127.0.0.1:4301，可被 ANY_FS_ADDR 覆盖）")
	fs.StringVar(&opts.outDir, "out", ".", "下载文件的保存目录")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Second, "连接超时")
	fs.BoolVar(&opts.raw, "raw", false, "dispfnames 输出原始列表而非树形")
	showVer := fs.Bool("version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if *showVer {
		return cliOptions{args: []string{"version"}}, nil
	}
	if fs.NArg() == 0 {
		return cliOptions{}, errUsage
	}
	opts.args = fs.Args()

	if opts.addr == "" {
		opts.addr = os.Getenv("ANY_FS_ADDR")
	}
	if opts.addr == "" {
		opts.addr = "127.0.0.1:4301"
	}
	return opts, nil
}

func run(ctx context.Context, opts cliOptions) int {
	if opts.args[0] == "version" {
		fmt.Fprintln(stdOut, version.Full())
		return 0
	}

	c, err := client.Dial(ctx, opts.addr, opts.timeout)
	if err != nil {
		fmt.Fprintf(stdErr, "连接 hub 失败: %v\n", err)
		return 1
	}
	defer c.Close()

	reply, err := execute(ctx, c, opts)
	if err != nil {
		fmt.Fprintf(stdErr, "命令执行失败: %v\n", err)
		return 1
	}
	fmt.Fprint(stdOut, reply)
	if !strings.HasSuffix(reply, "\n") {
		fmt.Fprintln(stdOut)
	}
	if failed(reply) {
		return 1
	}
	return 0
}

func execute(ctx context.Context, c *client.Client, opts cliOptions) (string, error) {
	cmd, args := opts.args[0], opts.args[1:]
	switch cmd {
	case "uploadf":
		if len(args) < 2 {
			return c.Raw(ctx, strings.Join(opts.args, " "))
		}
		return c.Upload(ctx, args[len(args)-1], args[:len(args)-1]...)
	case "downlf":
		result, err := c.Download(ctx, opts.outDir, args...)
		return describe(result), err
	case "removef":
		return c.Remove(ctx, args...)
	case "dispfnames":
		reply, err := c.List(ctx, strings.Join(args, " "))
		if err != nil || opts.raw || len(args) != 1 {
			return reply, err
		}
		return renderListing(args[0], reply), nil
	case "downltar":
		filetype := strings.Join(args, " ")
		result, err := c.Archive(ctx, filetype, opts.outDir)
		return describe(result), err
	case "TEST":
		return c.Test(ctx)
	default:
		return c.Raw(ctx, strings.Join(opts.args, " "))
	}
}

// describe 把下载结果整理为可读文本。
func describe(result *client.Transfer) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(result.Reply)
	for _, saved := range result.Saved {
		b.WriteString("\n  saved ")
		b.WriteString(saved)
	}
	return b.String()
}

// renderListing 按类别把 dispfnames 的结果渲染为树。
func renderListing(dir, reply string) string {
	names := client.ParseListing(reply)
	if len(names) == 0 {
		return reply
	}

	tree := gotree.New(dir)
	groups := make(map[string]gotree.Tree)
	for _, name := range names {
		label := "other"
		if cat, ok := category.ForFile(name); ok {
			label = cat.Suffix
		}
		group, ok := groups[label]
		if !ok {
			group = tree.Add(label)
			groups[label] = group
		}
		group.Add(name)
	}
	return tree.Print()
}

func failed(reply string) bool {
	for _, prefix := range []string{"ERROR", "FORMAT_ERROR", "INVALID_TYPE", "TAR_ERROR"} {
		if strings.HasPrefix(reply, prefix) {
			return true
		}
	}
	return strings.Contains(reply, "not supported") || strings.Contains(reply, " ERROR - ")
}
