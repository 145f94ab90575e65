package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Emissions EmissionService
	DANFE     DANFEService
	JWTSecret string
	AppName   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Públicas
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	h := NewNFeHandler(deps.Emissions, deps.DANFE)

	nfeGroup := api.Group("/nfe")
	nfeGroup.Get("/status", RequireRole(RoleAdmin), h.Status)

	readers := RequireRole(RoleAdmin, RoleEmisor, RoleAuditor)
	writers := RequireRole(RoleAdmin, RoleEmisor)

	emissions := nfeGroup.Group("/emissions")
	emissions.Post("/", writers, h.Emit)
	emissions.Get("/:id", readers, h.GetByID)
	emissions.Post("/:id/resume", writers, h.Resume)
	emissions.Get("/:id/xml", readers, h.DownloadXML)
	emissions.Get("/:id/danfe", readers, h.DownloadDANFE)

	nfeGroup.Get("/orders/:orderId/emissions", readers, h.ListByOrder)
}
