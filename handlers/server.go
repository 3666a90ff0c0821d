//go:build !js

// Package handlers wires the edge server: the news meta rewriter in front
// of the SPA shell, static assets and the backend API proxy.
package handlers

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ascww/newsportal/pkg/config"
	"github.com/ascww/newsportal/pkg/newsmeta"
)

// NewServer assembles the fiber app.
func NewServer(cfg *config.Config, rw *newsmeta.Rewriter, m *Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "newsportal-edge",
		Prefork: cfg.Prefork,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if os.Getenv("NOLOGS") != "true" {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
		}))
	}

	app.Get("/healthz", Health)
	app.Get("/metrics", m.Handler())
	app.All("/api/proxy/*", ProxyAPI(cfg.Backend.ProxyTarget))
	app.Static("/static", cfg.StaticDir)

	shell := Shell(cfg)
	app.Get("/news/:id", NewsMeta(rw), shell)
	app.Static("/", cfg.StaticDir)
	app.Get("/*", shell)

	return app
}

// Health reports liveness only; the backend is not checked.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
