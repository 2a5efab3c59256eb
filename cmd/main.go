package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"whatsbot/internal/config"
	"whatsbot/internal/entities"
	"whatsbot/internal/infrastructure"
	"whatsbot/internal/interfaces"
	httpapi "whatsbot/internal/interfaces/http"
	"whatsbot/internal/logger"
	"whatsbot/internal/repository"
	"whatsbot/internal/repository/memstore"
	"whatsbot/internal/usecases"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	var store *interfaces.Store
	if cfg.DatabaseURL != "" {
		pg, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pg.Close()
		store = repository.NewPostgresStore(pg)
	} else {
		log.Warn("DATABASE_URL not set, using the in-memory store")
		store = memstore.New()
	}

	// Outbound channels
	cloud := infrastructure.NewCloudClient(infrastructure.CloudConfig{
		AccessToken:   cfg.WhatsAppToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		BaseURL:       cfg.WhatsAppAPIBase,
		APIVersion:    cfg.WhatsAppAPIVersion,
	}, log)
	if !cloud.Configured() {
		log.Warn("WhatsApp Cloud API credentials missing, replies will fail until configured")
	}

	var err error

	// Device sessions are optional; when enabled, a client's logged-in device
	// takes precedence over the Cloud API for its outbound traffic.
	var devices *infrastructure.DeviceManager
	router := infrastructure.NewMessengerRouter(cloud, nil)
	if cfg.WhatsAppDevicesEnabled {
		devices, err = infrastructure.NewDeviceManager(cfg.WhatsAppDeviceDir, log)
		if err != nil {
			return err
		}
		defer devices.DisconnectAll()
		router = infrastructure.NewMessengerRouter(cloud, devices)
	}

	ai, err := newAIClient(ctx, cfg, log)
	if err != nil {
		return err
	}

	var notifier interfaces.Notifier
	var telegram *infrastructure.TelegramNotifier
	if cfg.TelegramEnabled() {
		telegram, err = infrastructure.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramAlertChatID, log)
		if err != nil {
			// Alerts are optional; the bot keeps serving without them.
			log.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			notifier = telegram
		}
	}

	// Usecases
	clients := usecases.NewClientUsecase(store, log)
	responder := usecases.NewResponder(store, ai, cfg.AITimeout, log)
	messages := usecases.NewMessageService(store, clients, responder, cloud, notifier, infrastructure.NewKeyedMutex(), log)
	conversations := usecases.NewConversationUsecase(store, router, log)
	auth := usecases.NewAuthUsecase(store.Users, cfg.JWTSecret, log)
	setup := usecases.NewSetupUsecase(store, clients, log)

	res, err := setup.Run(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.Info("bootstrap finished", zap.Bool("client_created", res.ClientCreated))
	if err := auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	deps := httpapi.Deps{
		Messages:      messages,
		Clients:       clients,
		Members:       usecases.NewMemberUsecase(store, clients, log),
		Conversations: conversations,
		Templates:     usecases.NewTemplateUsecase(store, log),
		Flows:         usecases.NewFlowUsecase(store),
		Dashboard:     usecases.NewDashboardUsecase(store, clients, log),
		Broadcast:     usecases.NewBroadcastUsecase(store, router, infrastructure.NewSendPacer(cfg.BroadcastDelay), log),
		Setup:         setup,
		Chat:          usecases.NewChatUsecase(store, clients, responder),
		Auth:          auth,
		Analytics:     usecases.NewAnalyticsUsecase(store, log),
		Reports:       usecases.NewReportUsecase(store),
		Integrations: httpapi.Integrations{
			CloudConfigured: cloud.Configured(),
			AIProvider:      cfg.AIProvider,
			AIModel:         cfg.AIModel,
		},
		VerifyToken: cfg.WhatsAppVerifyToken,
		AppSecret:   cfg.WhatsAppAppSecret,
		RateLimit:   rate.Limit(cfg.RateLimitRPS),
		RateBurst:   cfg.RateLimitBurst,
		Log:         log,
	}
	if telegram != nil {
		deps.Integrations.TelegramBot = telegram.BotName()
	}

	// Device sessions feed the same pipeline and reply on the device itself.
	if devices != nil {
		devices.OnMessage = messages.HandleIncomingVia
		devices.Restore(ctx)
		deps.Devices = devices
	}

	// Scheduler
	scheduler, err := infrastructure.NewScheduler(log)
	if err != nil {
		return err
	}
	err = scheduler.Every("resolve-idle-conversations", cfg.IdleSweepInterval, func(ctx context.Context) error {
		_, err := conversations.ResolveIdle(ctx, cfg.ConversationIdleTimeout)
		return err
	})
	if err != nil {
		return err
	}

	// Every long-running component joins the group, so the store is only
	// closed once nothing can still query it.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(gctx) })

	if telegram != nil {
		g.Go(func() error {
			telegram.Listen(gctx, map[string]infrastructure.CommandHandler{
				"start": func(context.Context, string) (string, error) {
					return "Alertas de atendimento ativos. Use /pendentes para listar conversas aguardando.", nil
				},
				"pendentes": func(ctx context.Context, _ string) (string, error) {
					convs, err := conversations.List(ctx, entities.ConversationFilter{Status: entities.ConversationPendingHuman})
					if err != nil {
						return "", err
					}
					return infrastructure.FormatPending(convs), nil
				},
			})
			return nil
		})
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	engine.Use(logger.Recovery(log), logger.Gin(log))
	httpapi.SetupRoutes(engine, deps, httpapi.NewMiddleware(cfg.JWTSecret))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func newAIClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (interfaces.AIClient, error) {
	switch cfg.AIProvider {
	case "openai":
		c, err := infrastructure.NewOpenAIClient(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, log)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		return c, nil
	case "gemini":
		c, err := infrastructure.NewGeminiClient(ctx, cfg.AIAPIKey, cfg.AIModel, log)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return c, nil
	}
	log.Info("no LLM provider configured, replies use niche fallbacks")
	return nil, nil
}
