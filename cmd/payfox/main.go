package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/lock"
	"github.com/ManuelReschke/PayFox/internal/pkg/metrics"
	"github.com/ManuelReschke/PayFox/internal/pkg/razorpay"
	"github.com/ManuelReschke/PayFox/internal/pkg/router"
	"github.com/ManuelReschke/PayFox/internal/pkg/s3archive"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/payfox to project root
		"../../../", // Fallback
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		AppName:   "PayFox",
		BodyLimit: 1 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metricsAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	})
	// fiber metrics
	app.Get("/metrics", metricsAuth, monitor.New())
	app.Get("/metrics/prometheus", metricsAuth, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
		Title:    "PayFox API",
	}
	app.Use(swagger.New(openAPICfg))

	controllers.InitializeBillingController(newBillingService(reg))

	// ROUTER
	router.InstallRouter(app)

	return app
}

// newBillingService wires the billing engine to MySQL, Razorpay and the optional
// Redis lock and S3 archive.
func newBillingService(reg prometheus.Registerer) *billing.Service {
	cfg := billing.LoadConfig()
	if cfg.KeySecret == "" || cfg.WebhookSecret == "" {
		log.Printf("Warning: RAZORPAY_KEY_SECRET or RAZORPAY_WEBHOOK_SECRET is empty, every signature will be rejected")
	}

	gateway, err := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	if err != nil {
		log.Fatalf("Razorpay client: %v", err)
	}

	deps := billing.Deps{
		Gateway:  gateway,
		Identity: billing.NewUserDirectory(repository.GetGlobalFactory().GetUserRepository()),
		Metrics:  metrics.NewBilling(reg),
	}

	if cfg.LockEnabled {
		deps.Locker = lock.NewRedisLocker(cache.GetClient(), cfg.LockTTL)
		log.Printf("Billing identity lock enabled (ttl %s)", cfg.LockTTL)
	}

	archiveCfg, err := s3archive.LoadConfig()
	if err != nil {
		log.Fatalf("Webhook archive config: %v", err)
	}
	if archiveCfg.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		archiver, err := s3archive.NewClient(ctx, archiveCfg)
		if err != nil {
			log.Printf("Warning: webhook archive disabled: %v", err)
		} else {
			deps.Archiver = archiver
		}
	}

	return billing.NewServiceFromDB(database.GetDB(), deps, cfg)
}
