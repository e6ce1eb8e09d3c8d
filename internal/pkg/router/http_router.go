package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/queryhub/QueryHub/app/controllers"
	"github.com/queryhub/QueryHub/internal/pkg/middleware"
	"github.com/queryhub/QueryHub/internal/pkg/oauth"
	"github.com/queryhub/QueryHub/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Permissive CORS so browser clients anywhere can talk to the API.
	// Preflight OPTIONS requests are answered by the middleware itself.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
	}))

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// OAuth begin/callback. Goth derives the provider from the path.
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Account activation from the mailed link
	app.Get("/activate", controllers.HandleActivate)
	app.Get("/activate/:token", controllers.HandleActivate)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
