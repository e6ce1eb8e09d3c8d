package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/queryhub/QueryHub/app/controllers"
	"github.com/queryhub/QueryHub/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "QueryHub API",
		})
	})

	v1 := api.Group("/v1")

	// Public auth endpoints
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/mfa/verify", controllers.HandleMFAVerify)
	v1.Post("/auth/logout", controllers.HandleLogout)

	// Provider webhooks authenticate via signature, not session
	v1.Post("/billing/webhook", controllers.HandleBillingWebhook)

	// Everything below accepts session, JWT or API key credentials
	authed := v1.Group("", middleware.BearerAuthMiddleware(), middleware.RequireAuth)

	authed.Get("/account", controllers.HandleGetUserAccount)
	authed.Post("/account/api-key", controllers.HandleIssueAPIKey)
	authed.Delete("/account/api-key", controllers.HandleRevokeAPIKey)

	authed.Get("/teams", controllers.HandleListTeams)
	authed.Post("/teams", controllers.HandleCreateTeam)
	authed.Get("/teams/:id", controllers.HandleGetTeam)
	authed.Delete("/teams/:id", controllers.HandleDeleteTeam)
	authed.Post("/teams/:id/members", controllers.HandleAddTeamMember)
	authed.Put("/teams/:id/members/:userId", controllers.HandleUpdateTeamMember)
	authed.Delete("/teams/:id/members/:userId", controllers.HandleRemoveTeamMember)

	knowledge := authed.Group("/knowledge")
	knowledge.Get("/documents", controllers.HandleListDocuments)
	knowledge.Post("/documents", controllers.HandleAddDocument)
	knowledge.Delete("/documents/:uuid", controllers.HandleDeleteDocument)
	knowledge.Post("/search", controllers.HandleSearchDocuments)
	knowledge.Post("/query", controllers.HandleQueryKnowledgeBase)
	knowledge.Post("/ingest", controllers.HandleIngestFile)

	authed.Get("/connections", controllers.HandleListConnections)
	authed.Delete("/connections/:id", controllers.HandleDeleteConnection)
	authed.Get("/connections/:provider/files", controllers.HandleListDriveFiles)

	authed.Post("/decks", controllers.HandleCreateDeckJob)
	authed.Get("/decks", controllers.HandleListDeckJobs)
	authed.Get("/decks/progress", controllers.HandleDeckProgress)
	authed.Get("/decks/:uuid", controllers.HandleGetDeckJob)
	authed.Post("/decks/:uuid/cancel", controllers.HandleCancelDeckJob)

	authed.Post("/audit/events", controllers.HandleAppendAuditEvent)
	authed.Get("/audit/events", controllers.HandleListAuditEvents)

	authed.Post("/billing/checkout", controllers.HandleCreateCheckout)
	authed.Get("/billing/portal", controllers.HandleBillingPortal)
	authed.Get("/billing/subscriptions", controllers.HandleListSubscriptions)

	authed.Get("/flags", controllers.HandleEvaluateFlags)

	// Admin-only operations
	admin := authed.Group("/admin", middleware.RequireAdmin)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Post("/billing/process", controllers.HandleProcessWebhookEvents)
	admin.Post("/security/scan", controllers.HandleSecurityScan)
	admin.Get("/security/incidents", controllers.HandleListIncidents)
	admin.Post("/security/incidents/:id/resolve", controllers.HandleResolveIncident)
	admin.Get("/flags", controllers.HandleListFlags)
	admin.Post("/flags", controllers.HandleCreateFlag)
	admin.Put("/flags/:key", controllers.HandleUpdateFlag)
	admin.Delete("/flags/:key", controllers.HandleDeleteFlag)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
