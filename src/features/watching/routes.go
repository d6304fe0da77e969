package watching

import (
	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/jobs"
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the watching feature.
func RegisterRoutes(app *fiber.App, service *Service, jobService jobs.JobService, history exchange.FileLogHistory) {
	handler := NewHandler(service, jobService, history)

	watchers := app.Group("/watchers")
	watchers.Get("/", handler.ListWatchers)
	watchers.Post("/", handler.StartWatcher)
	watchers.Post("/stop-all", handler.StopAll)
	watchers.Get("/:store", handler.GetWatcher)
	watchers.Delete("/:store", handler.StopWatcher)
	watchers.Post("/:store/restart", handler.RestartWatcher)
	watchers.Put("/:store/config", handler.UpdateConfig)
	watchers.Put("/:store/context", handler.SetContext)
	watchers.Get("/:store/history", handler.History)

	imports := app.Group("/imports")
	imports.Post("/manual", handler.ManualImport)
	imports.Post("/content/:store", handler.ImportContent)
}
