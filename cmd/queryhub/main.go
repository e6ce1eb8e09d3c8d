package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/billing"
	"github.com/queryhub/QueryHub/internal/pkg/cache"
	"github.com/queryhub/QueryHub/internal/pkg/database"
	"github.com/queryhub/QueryHub/internal/pkg/env"
	"github.com/queryhub/QueryHub/internal/pkg/jobqueue"
	"github.com/queryhub/QueryHub/internal/pkg/llm"
	"github.com/queryhub/QueryHub/internal/pkg/objstore"
	"github.com/queryhub/QueryHub/internal/pkg/router"
	"github.com/queryhub/QueryHub/internal/pkg/securitymon"
)

func main() {
	app := NewApplication()

	manager := jobqueue.GetManager()
	manager.Start()

	// graceful shutdown on SIGINT/SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("shutting down")
		manager.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())
	billing.SetupStripe()

	wireWorkers()

	app := fiber.New(fiber.Config{
		AppName:   "QueryHub",
		BodyLimit: 10 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// wireWorkers connects the background manager to its processors: deck
// generation, document ingestion, billing webhook draining and incident
// detection.
func wireWorkers() {
	repos := repository.GetGlobalRepositories()

	client := llm.NewFallbackClient(llm.NewAnthropicClient(), llm.NewLocalClient())

	var blobClient *objstore.Client
	blobConfig, err := objstore.LoadConfig()
	if err != nil {
		log.Fatalf("object storage configuration: %v", err)
	}
	if blobConfig.Enabled {
		blobClient, err = objstore.NewClient(blobConfig)
		if err != nil {
			log.Fatalf("object storage setup: %v", err)
		}
	}

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	queue.SetDeckProcessor(jobqueue.NewDeckProcessor(repos.Job, client))
	queue.SetIngestProcessor(jobqueue.NewIngestProcessor(repos.Connection, repos.Document, repos.User, blobClient, blobConfig))

	billingService := billing.NewService(repos.Billing, repos.User)
	manager.SetWebhookProcessor(billing.NewProcessor(repos.Billing, billingService))
	manager.SetDetector(securitymon.NewDetector(repos.Audit, repos.Incident))
}
