package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fs/internal/category"
)

// ProbeResult 描述一次存储节点存活检查的结果。
type ProbeResult struct {
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Address  string        `json:"address"`
	Up       bool          `json:"up"`
	Error    string        `json:"error,omitempty"`
	Latency  time.Duration `json:"latency_ns"`
}

// Prober 对所有远端存储节点执行存活检查，hub dispatcher 实现该接口。
type Prober interface {
	ProbeAll(ctx context.Context) []ProbeResult
}

// AppOptions controls the diagnostics application exposed by the hub.
type AppOptions struct {
	Logger       *logrus.Logger
	Registry     *EndpointRegistry
	Prober       Prober
	Sessions     func() int
	NodeName     string
	Version      string
	ProbeTimeout time.Duration
}

const contextKeyRequestID = "_anyfs_request_id"

// NewApp builds the Fiber diagnostics application. Every route lives under /-/.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("endpoint registry is required")
	}
	if opts.Prober == nil {
		return nil, errors.New("prober is required")
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		payload := fiber.Map{
			"node":    opts.NodeName,
			"version": opts.Version,
			"status":  "ok",
		}
		if opts.Sessions != nil {
			payload["sessions"] = opts.Sessions()
		}
		return c.JSON(payload)
	})

	app.Get("/-/endpoints", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"endpoints": encodeEndpoints(opts.Registry.List())})
	})

	app.Get("/-/categories", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"categories": encodeCategories(category.List())})
	})

	app.Get("/-/probe", func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), opts.ProbeTimeout)
		defer cancel()

		results := opts.Prober.ProbeAll(ctx)
		allUp := true
		for _, r := range results {
			if !r.Up {
				allUp = false
			}
		}
		status := fiber.StatusOK
		if !allUp {
			status = fiber.StatusServiceUnavailable
			opts.Logger.WithFields(logrus.Fields{
				"action":     "probe",
				"request_id": RequestID(c),
			}).Warn("部分存储节点不可用")
		}
		return c.Status(status).JSON(fiber.Map{
			"all_up":   allUp,
			"backends": results,
		})
	})

	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	})

	return app, nil
}

// requestIDMiddleware 为每个诊断请求生成请求 ID。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

type endpointPayload struct {
	Category string `json:"category"`
	Suffix   string `json:"suffix"`
	Node     string `json:"node"`
	Address  string `json:"address,omitempty"`
	Root     string `json:"root"`
	Local    bool   `json:"local"`
}

type categoryPayload struct {
	Key         string `json:"key"`
	Suffix      string `json:"suffix"`
	Description string `json:"description"`
	Archivable  bool   `json:"archivable"`
	ArchiveName string `json:"archive_name,omitempty"`
}

func encodeEndpoints(endpoints []Endpoint) []endpointPayload {
	if len(endpoints) == 0 {
		return nil
	}
	result := make([]endpointPayload, 0, len(endpoints))
	for _, ep := range endpoints {
		result = append(result, endpointPayload{
			Category: ep.Category.Key,
			Suffix:   ep.Category.Suffix,
			Node:     ep.Name,
			Address:  ep.Address,
			Root:     ep.Root,
			Local:    ep.Local,
		})
	}
	return result
}

func encodeCategories(cats []category.Category) []categoryPayload {
	result := make([]categoryPayload, 0, len(cats))
	for _, c := range cats {
		item := categoryPayload{
			Key:         c.Key,
			Suffix:      c.Suffix,
			Description: c.Description,
			Archivable:  c.Archivable,
		}
		if c.Archivable {
			item.ArchiveName = c.ArchiveName
		}
		result = append(result, item)
	}
	return result
}
