package integration

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fs/internal/archive"
	"github.com/any-hub/any-fs/internal/backend"
	"github.com/any-hub/any-fs/internal/category"
	"github.com/any-hub/any-fs/internal/client"
	"github.com/any-hub/any-fs/internal/config"
	"github.com/any-hub/any-fs/internal/hub"
	"github.com/any-hub/any-fs/internal/server"
	"github.com/any-hub/any-fs/internal/staging"
	"github.com/any-hub/any-fs/internal/storage"
	"github.com/any-hub/any-fs/internal/wire"
)

// cluster 是在同一进程内运行的 hub + 三个存储节点。
type cluster struct {
	base       string
	hubAddr    string
	cfg        *config.Config
	registry   *server.EndpointRegistry
	dispatcher *hub.Dispatcher
	hubServer  *server.Server
	stops      map[string]func()
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// serve 在 ln 上运行 handler，返回幂等的停止函数。
func serve(t *testing.T, srv *server.Server, ln net.Listener) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx, ln); err != nil {
			t.Errorf("serve error: %v", err)
		}
	}()
	stop := func() {
		cancel()
		<-done
	}
	t.Cleanup(stop)
	return stop
}

func startCluster(t *testing.T) *cluster {
	t.Helper()
	base := t.TempDir()
	logger := newLogger()

	cfg := &config.Config{
		Global: config.GlobalConfig{
			StoragePath:    base,
			DialTimeout:    config.Duration(time.Second),
			BackendTimeout: config.Duration(5 * time.Second),
			HeaderWait:     config.Duration(2 * time.Second),
			HeaderBackoff:  config.Duration(20 * time.Millisecond),
			ArchiveMode:    "native",
		},
		Hub: config.HubConfig{
			Name:           "S1",
			Namespace:      "S1",
			Root:           "S1",
			StagingDir:     "temp",
			Greeting:       "Welcome to S1 server.",
			ParallelFanout: true,
		},
	}

	c := &cluster{base: base, cfg: cfg, stops: make(map[string]func())}
	for _, b := range []struct{ name, key string }{{"S2", "pdf"}, {"S3", "txt"}, {"S4", "zip"}} {
		cat, ok := category.Resolve(b.key)
		if !ok {
			t.Fatalf("category %s not registered", b.key)
		}
		root, err := storage.NewRoot(base, b.name)
		if err != nil {
			t.Fatalf("root error: %v", err)
		}
		handler, err := backend.NewHandler(backend.Options{
			Node:     b.name,
			Category: cat,
			Root:     root,
			Archiver: archive.NewNative(),
			Wire:     wire.Options{ReadTimeout: 5 * time.Second, HeaderBackoff: 20 * time.Millisecond},
			Logger:   logger,
		})
		if err != nil {
			t.Fatalf("handler error: %v", err)
		}
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen error: %v", err)
		}
		c.stops[b.name] = serve(t, server.NewServer(b.name, handler, logger), ln)
		cfg.Backends = append(cfg.Backends, config.BackendConfig{
			Name:     b.name,
			Category: b.key,
			Address:  ln.Addr().String(),
			Root:     b.name,
		})
	}

	registry, err := server.NewEndpointRegistry(cfg)
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}
	store, err := staging.NewStore(cfg.StagingPath())
	if err != nil {
		t.Fatalf("staging error: %v", err)
	}
	dispatcher, err := hub.New(hub.Options{
		Config:   cfg,
		Registry: registry,
		Staging:  store,
		Archiver: archive.NewNative(archive.WithExclude(store.Root())),
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("dispatcher error: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	c.hubServer = server.NewServer("S1", dispatcher, logger)
	c.stops["S1"] = serve(t, c.hubServer, ln)
	c.hubAddr = ln.Addr().String()
	c.registry = registry
	c.dispatcher = dispatcher
	return c
}

func (c *cluster) dial(t *testing.T) *client.Client {
	t.Helper()
	cl, err := client.Dial(context.Background(), c.hubAddr, time.Second)
	if err != nil {
		t.Fatalf("dial hub error: %v", err)
	}
	t.Cleanup(func() { cl.Close() })
	return cl
}

// localFile 在客户端工作目录写入一个待上传文件。
func localFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("write local file error: %v", err)
	}
	return p
}

func (c *cluster) path(rel string) string {
	return filepath.Join(c.base, filepath.FromSlash(rel))
}

// stagingEmpty 断言暂存区内没有残留文件。
func (c *cluster) stagingEmpty(t *testing.T) {
	t.Helper()
	err := filepath.WalkDir(c.cfg.StagingPath(), func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			t.Errorf("staging leftover: %s", p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk staging error: %v", err)
	}
}
