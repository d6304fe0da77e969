package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes serves the metrics gathered by g under path.
func RegisterRoutes(app *fiber.App, path string, g prometheus.Gatherer) {
	if path == "" {
		path = "/metrics"
	}
	app.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
