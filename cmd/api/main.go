package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/boostlyhq/boostly-golang/internal/ai"
	"github.com/boostlyhq/boostly-golang/internal/analytics"
	"github.com/boostlyhq/boostly-golang/internal/auth"
	"github.com/boostlyhq/boostly-golang/internal/config"
	"github.com/boostlyhq/boostly-golang/internal/database"
	"github.com/boostlyhq/boostly-golang/internal/handlers"
	"github.com/boostlyhq/boostly-golang/internal/imagegen"
	"github.com/boostlyhq/boostly-golang/internal/instagram"
	"github.com/boostlyhq/boostly-golang/internal/license"
	"github.com/boostlyhq/boostly-golang/internal/logger"
	"github.com/boostlyhq/boostly-golang/internal/notify"
	"github.com/boostlyhq/boostly-golang/internal/routes"
	"github.com/boostlyhq/boostly-golang/internal/shortlink"
	"github.com/boostlyhq/boostly-golang/internal/storage"
)

func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"))

	// 1. --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. --- Database + Migrations ---
	db, err := database.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// 3. --- License Engine + Notifications ---
	store := license.NewSQLStore(db)
	engine := license.NewEngine(store, cfg.AppSumoPlanID, log)

	// Sale announcements go to the dedicated sales channel when one is
	// configured.
	discordURL := cfg.DiscordSalesWebhookURL
	if discordURL == "" {
		discordURL = cfg.DiscordWebhookURL
	}
	dispatcher := notify.NewDispatcher(
		notify.NewDiscordClient(discordURL),
		notify.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom),
		log,
	)

	// 4. --- AI / Image Generation (optional) ---
	var aiService *ai.AIService
	if cfg.GeminiAPIKey != "" {
		aiService, err = ai.NewAIService(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Error("failed to initialize AI service", "error", err)
			os.Exit(1)
		}
		defer aiService.Client.Close()
	} else {
		log.Warn("GEMINI_API_KEY not set, AI tools disabled")
	}

	imageGen := imagegen.NewClient(cfg.ImageGenAPIURL, cfg.ImageGenAPIKey)

	var uploader *storage.Uploader
	if cfg.S3Bucket != "" {
		uploader, err = storage.NewUploader(ctx, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			log.Error("failed to initialize S3 uploader", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("S3_BUCKET not set, logo uploads disabled")
	}

	// 5. --- Instagram Automation ---
	tokenCipher, err := instagram.NewTokenCipher(cfg.JWTSecret)
	if err != nil {
		log.Error("failed to initialize token cipher", "error", err)
		os.Exit(1)
	}
	igProcessor := instagram.NewProcessor(
		instagram.NewSQLAutomationStore(db),
		instagram.NewGraphClient(),
		tokenCipher,
		log,
	)

	// --- Application Setup ---
	app := &handlers.Handlers{
		DB:         db,
		Cfg:        cfg,
		Log:        log,
		Tokens:     auth.NewTokenManager(cfg.JWTSecret),
		Engine:     engine,
		Dispatcher: dispatcher,
		Analytics:  analytics.NewService(db),
		AIService:  aiService,
		ImageGen:   imageGen,
		Uploader:   uploader,
		Instagram:  igProcessor,
		ShortLinks: shortlink.NewService(db),
	}

	// 6. --- Background Worker ---
	// Sweeps for subscriptions whose end date passed, once per interval.
	go func() {
		ticker := time.NewTicker(cfg.SubscriptionSweepInterval)
		defer ticker.Stop()

		log.Info("subscription expiry worker started", "interval", cfg.SubscriptionSweepInterval)
		for range ticker.C {
			app.ExpireOverdueSubscriptions(ctx)
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	log.Info("starting Boostly API server", slog.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
