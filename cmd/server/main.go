package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"donorcast-service/internal/domain/repository"
	"donorcast-service/internal/infrastructure/config"
	"donorcast-service/internal/infrastructure/oauth"
	"donorcast-service/internal/infrastructure/persistence"
	"donorcast-service/internal/infrastructure/router"
	"donorcast-service/internal/interface/gmail"
	"donorcast-service/internal/interface/httpapi"
	"donorcast-service/internal/interface/imapsource"
	storeRepo "donorcast-service/internal/interface/repository"
	"donorcast-service/internal/interface/smtp"
	"donorcast-service/internal/usecase"
	"donorcast-service/pkg/logger"
	"donorcast-service/pkg/metrics"
	"donorcast-service/templates"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Donorcast Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics("donorcast")

	// Set up repositories
	var (
		campaignRepo  repository.CampaignRepository
		sentEmailRepo repository.SentEmailRepository
		replyRepo     repository.ReplyRepository
		responseRepo  repository.ResponseRepository
		followUpRepo  repository.FollowUpEventRepository
	)

	var disconnectMongo func()
	if cfg.StorageBackend == "mongo" {
		log.Info("Connecting to MongoDB")
		mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		disconnectMongo = func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Error("MongoDB disconnect error", "error", err)
			}
		}

		campaignRepo = storeRepo.NewMongoCampaignRepository(db)
		sentEmailRepo = storeRepo.NewMongoSentEmailRepository(db)
		replyRepo = storeRepo.NewMongoReplyRepository(db)
		responseRepo = storeRepo.NewMongoResponseRepository(db)
		followUpRepo = storeRepo.NewMongoFollowUpEventRepository(db)
	} else {
		log.Info("Using in-memory storage")
		campaignRepo = storeRepo.NewMemoryCampaignRepository()
		sentEmailRepo = storeRepo.NewMemorySentEmailRepository()
		replyRepo = storeRepo.NewMemoryReplyRepository()
		responseRepo = storeRepo.NewMemoryResponseRepository()
		followUpRepo = storeRepo.NewMemoryFollowUpEventRepository()
	}

	// Follow-up rules and the holiday calendar are operator configuration;
	// they can live in Postgres
	var ruleRepo repository.RuleRepository
	extraHolidays := []string{}
	if cfg.RuleBackend == "postgres" {
		gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		ruleRepo, err = storeRepo.NewGormRuleRepository(gormDB)
		if err != nil {
			log.Fatal("Failed to migrate rule table", "error", err)
		}
		calendarRepo, err := storeRepo.NewGormCalendarRepository(gormDB)
		if err != nil {
			log.Fatal("Failed to migrate holiday table", "error", err)
		}
		extraHolidays, err = calendarRepo.Holidays(ctx)
		if err != nil {
			log.Error("Failed to load holiday calendar", "error", err)
		}
	} else {
		ruleRepo = storeRepo.NewMemoryRuleRepository()
	}
	seedDefaultRules(ctx, ruleRepo, log)

	// Set up outbound transport
	transport := smtp.NewTransport(smtp.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
	}, log)
	if !transport.ValidateCredentials(ctx) {
		log.Warn("SMTP credentials could not be validated, sends may fail")
	}

	// Set up inbound reply source
	var replySource usecase.ReplySource
	if cfg.ReplySource == "gmail" {
		gmailOAuth := oauth.NewGmailOAuth(
			cfg.GmailClientID,
			cfg.GmailClientSecret,
			cfg.GmailRefreshToken,
			log,
		)
		replySource, err = gmail.NewReplySource(ctx, gmailOAuth.GetTokenSource(ctx), log)
		if err != nil {
			log.Fatal("Failed to create Gmail reply source", "error", err)
		}
	} else {
		imapSource := imapsource.NewReplySource(imapsource.Config{
			Server:   cfg.IMAPServer,
			Username: cfg.IMAPUsername,
			Password: cfg.IMAPPassword,
		}, log)
		defer imapSource.Close()
		replySource = imapSource
	}

	// Set up core components
	renderer := usecase.NewTemplateRenderer()

	hoursConfig := businessHoursConfig(cfg)
	hoursConfig.Holidays = append(hoursConfig.Holidays, extraHolidays...)
	hours := usecase.NewBusinessHours(hoursConfig)

	scheduler := usecase.NewFollowUpScheduler(
		followUpRepo, sentEmailRepo, replyRepo, ruleRepo,
		hours, cfg.FollowUpTickInterval, log, m,
	)

	monitor := usecase.NewReplyMonitor(
		replySource, sentEmailRepo, replyRepo, scheduler,
		cfg.ReplyPollInterval, log, m,
	)

	sender := usecase.NewEmailSender(transport, renderer, sentEmailRepo, usecase.SenderConfig{
		SendDelay:  cfg.SendDelay,
		BatchSize:  cfg.BatchSize,
		BatchDelay: cfg.BatchDelay,
	}, log, m)

	classifier := usecase.NewSentimentClassifier(buildSentimentBackend(cfg, log, m), log, m)

	triggerRouter := router.NewTriggerRouter(log)
	for _, template := range templates.DefaultResponseTemplates() {
		triggerRouter.Register(template)
	}
	responder := buildResponseBackend(cfg, triggerRouter, renderer, log, m)

	engine := usecase.NewAutomationEngine(
		campaignRepo, sentEmailRepo, replyRepo, responseRepo, ruleRepo,
		sender, monitor, scheduler, classifier, responder, renderer, transport,
		cfg.EngineLoopInterval, log, m,
	)
	for _, template := range templates.DefaultFollowUpTemplates() {
		engine.RegisterTemplate(template)
	}

	ingestor := usecase.NewContactIngestor(log)

	// Start reply polling in a goroutine
	go monitor.StartPolling(ctx)

	// Start the follow-up loop in a goroutine
	go engine.Run(ctx)

	// Set up HTTP server
	handler := httpapi.NewHandler(engine, ingestor, ruleRepo, log)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Mux(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	if disconnectMongo != nil {
		disconnectMongo()
	}

	log.Info("Donorcast Service stopped")
}

func businessHoursConfig(cfg *config.Config) usecase.BusinessHoursConfig {
	workDays := make([]time.Weekday, 0, len(cfg.BusinessWorkDays))
	for _, day := range cfg.BusinessWorkDays {
		workDays = append(workDays, time.Weekday(day))
	}
	return usecase.BusinessHoursConfig{
		StartHour: cfg.BusinessStartHour,
		EndHour:   cfg.BusinessEndHour,
		Timezone:  cfg.BusinessTimezone,
		WorkDays:  workDays,
		Holidays:  cfg.BusinessHolidays,
	}
}

func buildSentimentBackend(cfg *config.Config, log logger.Logger, m *metrics.Metrics) usecase.SentimentBackend {
	if cfg.SentimentBackend == "model" {
		backend, err := usecase.NewModelClassifier(cfg.ModelEndpoint, cfg.ModelAPIKey, cfg.ModelName, log, m)
		if err != nil {
			log.Fatal("Failed to create model classifier", "error", err)
		}
		return backend
	}
	return usecase.NewRuleBasedClassifier()
}

func buildResponseBackend(cfg *config.Config, triggerRouter *router.TriggerRouter, renderer *usecase.TemplateRenderer, log logger.Logger, m *metrics.Metrics) usecase.ResponseBackend {
	templateResponder := usecase.NewTemplateResponder(triggerRouter, renderer, log, m)
	if cfg.ResponseBackend == "model" {
		backend, err := usecase.NewModelResponder(cfg.ModelEndpoint, cfg.ModelAPIKey, cfg.ModelName, templateResponder, log, m)
		if err != nil {
			log.Fatal("Failed to create model responder", "error", err)
		}
		return backend
	}
	return templateResponder
}

// seedDefaultRules installs the stock follow-up rules when the store has
// none yet, so a fresh deployment follows up out of the box
func seedDefaultRules(ctx context.Context, ruleRepo repository.RuleRepository, log logger.Logger) {
	existing, err := ruleRepo.FindEnabled(ctx)
	if err != nil {
		log.Error("Failed to check existing rules", "error", err)
		return
	}
	if len(existing) > 0 {
		return
	}
	for _, rule := range templates.DefaultFollowUpRules() {
		if err := ruleRepo.Save(ctx, rule); err != nil {
			log.Error("Failed to seed rule", "ruleId", rule.ID, "error", err)
		}
	}
	log.Info("Seeded default follow-up rules")
}
