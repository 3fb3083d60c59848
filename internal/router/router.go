package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/routeledger/backend/api/handler"
)

type Handlers struct {
	Route  *apiHandler.RouteHandler
	Image  *apiHandler.ImageHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	r.GET("/images/{name}", handlers.Image.Serve)

	// Ledger reads
	r.GET("/api/v1/routes", authMiddleware(handlers.Route.ListRoutes))
	r.GET("/api/v1/routes/{id}", authMiddleware(handlers.Route.GetRoute))

	// Saga commands
	r.POST("/api/v1/routes/transfer", authMiddleware(handlers.Route.Transfer))
	r.POST("/api/v1/routes/remove", authMiddleware(handlers.Route.Remove))
	r.POST("/api/v1/routes/batch-delete", authMiddleware(handlers.Route.BatchDelete))
	r.PUT("/api/v1/routes/{id}", authMiddleware(handlers.Route.UpdateRoute))
	r.PUT("/api/v1/routes/{id}/complete", authMiddleware(handlers.Route.CompleteRoute))
	r.DELETE("/api/v1/routes/{id}", authMiddleware(handlers.Route.DeleteRoute))
	r.DELETE("/api/v1/routes/{id}/rollback", authMiddleware(handlers.Route.RollbackRoute))

	return r
}
