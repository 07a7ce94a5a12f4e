package routes

import (
	"chat-analytics-service/internal/controller"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controllers groups the handlers mounted by Register.
type Controllers struct {
	Events    controller.EventController
	Analytics controller.AnalyticsController
	Stream    controller.StreamController
}

// Register attaches all HTTP routes to the Fiber app.
func Register(app *fiber.App, ctrls Controllers, gatherer prometheus.Gatherer) {
	app.Post("/events", ctrls.Events.CreateEvent)

	analytics := app.Group("/analytics")
	analytics.Get("/chat", ctrls.Analytics.GetChat)
	analytics.Get("/documents", ctrls.Analytics.GetDocuments)
	analytics.Get("/links", ctrls.Analytics.GetLinks)
	analytics.Get("/usage", ctrls.Analytics.GetUsage)
	analytics.Get("/enhanced", ctrls.Analytics.GetEnhanced)

	app.Get("/analytics", ctrls.Stream.Upgrade, websocket.New(ctrls.Stream.Stream))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
