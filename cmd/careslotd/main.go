package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/careslot/careslot/internal/availability"
	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/db"
	"github.com/careslot/careslot/internal/handlers"
	"github.com/careslot/careslot/internal/httpx"
	"github.com/careslot/careslot/internal/kafkax"
	"github.com/careslot/careslot/internal/notify"
	"github.com/careslot/careslot/internal/otelx"
	"github.com/careslot/careslot/internal/outbox"
	"github.com/careslot/careslot/internal/reminder"
	"github.com/careslot/careslot/internal/runtime"
	"github.com/careslot/careslot/internal/store"
)

func smsSenderFromEnv() notify.SMSSender {
	if url := config.String("SMS_WEBHOOK_URL", ""); url != "" {
		return notify.NewWebhookSMSSender(url, config.String("SMS_WEBHOOK_TOKEN", ""))
	}
	return notify.NewNoopSMSSender()
}

func main() {
	service := config.String("SERVICE_NAME", "careslotd")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	gw := store.NewGateway(pool)
	if config.Bool("DB_MIGRATE", true) {
		if err := gw.Migrate(ctx); err != nil {
			logger.Error("migration failed", "err", err)
			panic(err)
		}
	}

	resolver := availability.NewResolver(gw)
	guard := booking.NewGuard(gw.Appointments)

	emailSender := notify.NewSMTPSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@careslot.local"),
	)
	dispatcher := notify.NewDispatcher(emailSender, smsSenderFromEnv(), gw.Settings, gw.Notifications, logger, config.Int("NOTIFY_QUEUE_SIZE", 256))
	go dispatcher.Run(ctx)

	scheduler := reminder.NewScheduler(gw.Appointments, gw.Settings, dispatcher, gw.Outbox, logger, reminder.Config{
		SweepEvery:      config.Seconds("REMINDER_SWEEP_SECONDS", time.Minute),
		ReconcileWindow: config.Seconds("REMINDER_RECONCILE_SECONDS", 30*24*time.Hour),
		ReminderLead:    config.Seconds("REMINDER_LEAD_SECONDS", 24*time.Hour),
	})
	go scheduler.Run(ctx)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	if kafkaBrokers != "" {
		publisher := outbox.NewPublisher(gw.Outbox, logger, outbox.Config{
			Brokers:   kafkaBrokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
	}

	h := handlers.New(gw, resolver, guard, dispatcher, scheduler, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	mux.HandleFunc("GET /api/slots", h.Slots)
	mux.HandleFunc("POST /api/appointments", h.CreateAppointment)
	mux.HandleFunc("GET /api/appointments", h.ListAppointments)
	mux.HandleFunc("GET /api/appointments/{id}", h.GetAppointment)

	mux.HandleFunc("PATCH /api/admin/appointments/{id}/reschedule", h.Reschedule)
	mux.HandleFunc("PATCH /api/admin/appointments/{id}/status", h.UpdateStatus)
	mux.HandleFunc("POST /api/admin/appointments/{id}/cancel", h.Cancel)
	mux.HandleFunc("DELETE /api/admin/appointments/{id}", h.DeleteAppointment)

	mux.HandleFunc("POST /api/admin/providers", h.CreateProvider)
	mux.HandleFunc("GET /api/admin/providers", h.ListProviders)
	mux.HandleFunc("GET /api/admin/providers/{id}", h.GetProvider)
	mux.HandleFunc("DELETE /api/admin/providers/{id}", h.DeleteProvider)
	mux.HandleFunc("GET /api/admin/providers/{id}/availability", h.GetProviderAvailability)
	mux.HandleFunc("PUT /api/admin/providers/{id}/hours", h.PutBusinessHours)
	mux.HandleFunc("POST /api/admin/providers/{id}/blocked-dates", h.AddBlockedDate)
	mux.HandleFunc("DELETE /api/admin/providers/{id}/blocked-dates/{date}", h.RemoveBlockedDate)

	mux.HandleFunc("POST /api/admin/services", h.CreateService)
	mux.HandleFunc("GET /api/admin/services", h.ListServices)
	mux.HandleFunc("GET /api/admin/services/{id}", h.GetService)
	mux.HandleFunc("PATCH /api/admin/services/{id}", h.UpdateService)
	mux.HandleFunc("DELETE /api/admin/services/{id}", h.DeleteService)

	mux.HandleFunc("GET /api/admin/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/admin/settings", h.PutSettings)
	mux.HandleFunc("GET /api/admin/notifications", h.ListNotificationLog)
	mux.HandleFunc("GET /api/admin/audit", h.ListAuditLog)

	rateLimit := config.Int("RATE_LIMIT", 120)
	rateWindow := config.Seconds("RATE_LIMIT_WINDOW_SECONDS", time.Minute)
	var limiter httpx.Middleware
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, rateLimit, rateWindow, service).Middleware(logger, true)
	} else {
		limiter = httpx.NewRateLimiter(rateLimit, rateWindow).Middleware()
	}

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		limiter,
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			MaxAge:         10 * time.Minute,
		}))
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "careslot")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
