package config

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// GetConfig returns the redacted configuration as YAML, or JSON when ?format=json.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	slog.Debug("Handler.GetConfig: configuration requested", "format", c.Query("format"))
	if c.Query("format") == "json" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(h.configManager.GetJSON())
	}
	c.Set(fiber.HeaderContentType, "application/yaml")
	return c.SendString(h.configManager.GetYAML())
}

// DownloadDatabase sends the sqlite database file.
func (h *Handler) DownloadDatabase(c *fiber.Ctx) error {
	dbPath := h.configManager.Get().Database.Path
	slog.Info("Handler.DownloadDatabase: database download requested", "path", dbPath)
	return c.Download(dbPath)
}

// ListStores returns the stores declared in the config file.
func (h *Handler) ListStores(c *fiber.Ctx) error {
	return c.JSON(h.configManager.Get().Stores)
}

// GetStore returns one configured store.
func (h *Handler) GetStore(c *fiber.Ctx) error {
	store, ok := h.configManager.Store(c.Params("store"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "store not configured: "+c.Params("store"))
	}
	return c.JSON(store)
}
