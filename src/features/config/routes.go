package config

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the config feature.
func RegisterRoutes(app *fiber.App, configManager *Manager) {
	handler := NewHandler(configManager)

	cfg := app.Group("/config")
	cfg.Get("/", handler.GetConfig)
	cfg.Get("/stores", handler.ListStores)
	cfg.Get("/stores/:store", handler.GetStore)
	cfg.Get("/database/download", handler.DownloadDatabase)
}
