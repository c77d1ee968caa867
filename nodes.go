package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fs/internal/archive"
	"github.com/any-hub/any-fs/internal/backend"
	"github.com/any-hub/any-fs/internal/category"
	"github.com/any-hub/any-fs/internal/config"
	"github.com/any-hub/any-fs/internal/hub"
	"github.com/any-hub/any-fs/internal/server"
	"github.com/any-hub/any-fs/internal/staging"
	"github.com/any-hub/any-fs/internal/storage"
	"github.com/any-hub/any-fs/internal/version"
	"github.com/any-hub/any-fs/internal/wire"
)

// runHub 启动顺序：配置 → 类别路由表 → 暂存区 → Dispatcher → TCP 监听（可选诊断 HTTP）。
func runHub(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	registry, err := server.NewEndpointRegistry(cfg)
	if err != nil {
		return fmt.Errorf("构建路由表失败: %w", err)
	}

	store, err := staging.NewStore(cfg.StagingPath())
	if err != nil {
		return fmt.Errorf("初始化暂存目录失败: %w", err)
	}

	archiver, err := archive.New(cfg.Global.ArchiveMode, archive.WithExclude(store.Root()))
	if err != nil {
		return err
	}

	dispatcher, err := hub.New(hub.Options{
		Config:   cfg,
		Registry: registry,
		Staging:  store,
		Archiver: archiver,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg.Hub.Name, dispatcher, logger)
	if cfg.Hub.DiagnosticsPort > 0 {
		if err := startDiagnostics(ctx, cfg, registry, dispatcher, srv, logger); err != nil {
			return err
		}
	}
	return srv.ListenAndServe(ctx, cfg.Hub.ListenAddr)
}

// startDiagnostics 在后台运行 Fiber 诊断服务，ctx 结束时关闭。
func startDiagnostics(ctx context.Context, cfg *config.Config, registry *server.EndpointRegistry, prober server.Prober, srv *server.Server, logger *logrus.Logger) error {
	app, err := server.NewApp(server.AppOptions{
		Logger:       logger,
		Registry:     registry,
		Prober:       prober,
		Sessions:     srv.ActiveSessions,
		NodeName:     cfg.Hub.Name,
		Version:      version.Short(),
		ProbeTimeout: cfg.Global.DialTimeout.DurationValue() + cfg.Global.BackendTimeout.DurationValue(),
	})
	if err != nil {
		return err
	}

	port := cfg.Hub.DiagnosticsPort
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("诊断服务启动")

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			logger.WithError(err).Error("诊断服务退出")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()
	return nil
}

// runBackend 运行一个专用存储节点，直到 ctx 结束。
func runBackend(ctx context.Context, cfg *config.Config, b config.BackendConfig, logger *logrus.Logger) error {
	cat, ok := category.Resolve(b.Category)
	if !ok {
		return fmt.Errorf("未知类别 %q", b.Category)
	}

	root, err := storage.NewRoot(cfg.Global.StoragePath, b.Root)
	if err != nil {
		return err
	}

	archiver, err := archive.New(cfg.Global.ArchiveMode)
	if err != nil {
		return err
	}

	handler, err := backend.NewHandler(backend.Options{
		Node:     b.Name,
		Category: cat,
		Root:     root,
		Archiver: archiver,
		Wire: wire.Options{
			ReadTimeout:   cfg.Global.BackendTimeout.DurationValue(),
			HeaderWait:    cfg.Global.HeaderWait.DurationValue(),
			HeaderBackoff: cfg.Global.HeaderBackoff.DurationValue(),
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer handler.Close()

	return server.NewServer(b.Name, handler, logger).ListenAndServe(ctx, b.ListenAddr)
}
