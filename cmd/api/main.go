package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"portfolio-backend/internal/admin"
	"portfolio-backend/internal/auth"
	"portfolio-backend/internal/booking"
	"portfolio-backend/internal/cache"
	"portfolio-backend/internal/config"
	"portfolio-backend/internal/contact"
	"portfolio-backend/internal/db"
	"portfolio-backend/internal/middleware"
	"portfolio-backend/internal/notifications"
	"portfolio-backend/internal/projects"
	"portfolio-backend/internal/settings"
	"portfolio-backend/internal/snippets"
	"portfolio-backend/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected", slog.String("db", cfg.MongoDB))
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	settingsRepo := settings.NewRepository(cols.AvailabilitySettings)
	if err := settingsRepo.Init(ctx, settings.Default(cfg.Timezone.String())); err != nil {
		logger.Error("settings init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     "portfolio-backend",
		}
	}

	val := validation.New()

	var notifier booking.Notifier
	brevo := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	if brevo != nil && cfg.OperatorEmail != "" {
		notifier = notifications.NewBookingMailer(brevo, cfg.OperatorEmail, cfg.OperatorName)
		logger.Info("booking mailer enabled", slog.String("operator", cfg.OperatorEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	} else {
		logger.Info("booking mailer disabled")
	}

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second

	bookingRepo := booking.NewRepository(cols.Appointments)
	bookingService := booking.NewService(bookingRepo, settingsRepo, notifier, logger, nil)
	bookingHandler := booking.NewHandler(bookingService, val, cacheStore, cacheTTL, logger)

	settingsHandler := settings.NewHandler(settingsRepo, cacheStore, logger)

	contactRepo := contact.NewRepository(cols.ContactMessages)
	contactHandler := contact.NewHandler(contactRepo, val, cfg.Timezone, logger)

	projectsRepo := projects.NewRepository(cols.Projects)
	projectsHandler := projects.NewHandler(projectsRepo, val, cfg.Timezone, logger)

	snippetsRepo := snippets.NewRepository(cols.Snippets)
	snippetsHandler := snippets.NewHandler(snippetsRepo, val, cfg.Timezone, logger)

	adminHandler := admin.NewHandler(cols.Users, jwtManager, val, cfg.Timezone, cfg.CookieSecure, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	appointmentsLimiter := middleware.NewRateLimiter(cfg.RateLimitAppointments, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	contactLimiter := middleware.NewRateLimiter(cfg.RateLimitContact, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	adminAuth := middleware.AdminAuth(cfg.AdminAPIKey, jwtManager)

	registerRoutes := func(api chi.Router) {
		api.Get("/availability/settings", settingsHandler.Get)
		api.Get("/availability/slots", bookingHandler.GetAvailabilitySlots)
		api.With(appointmentsLimiter.Middleware).Post("/appointments", bookingHandler.CreateAppointment)
		api.With(contactLimiter.Middleware).Post("/contact", contactHandler.Create)

		api.Get("/projects", projectsHandler.PublicList)
		api.Get("/projects/{slug}", projectsHandler.PublicGetBySlug)
		api.Get("/snippets", snippetsHandler.PublicList)
		api.Get("/snippets/{id}", snippetsHandler.PublicGet)

		api.Route("/admin", func(ar chi.Router) {
			ar.Post("/auth/login", adminHandler.Login)
			ar.Post("/auth/refresh", adminHandler.Refresh)
			ar.Post("/auth/logout", adminHandler.Logout)

			// Important (chi): middlewares must be attached before defining
			// routes, so the protected surface lives on a sub-router.
			ar.Group(func(protected chi.Router) {
				protected.Use(adminAuth)
				protected.Put("/availability/settings", settingsHandler.Update)
				protected.Get("/appointments", bookingHandler.AdminList)
				protected.Patch("/appointments/{id}", bookingHandler.UpdateAppointment)
				protected.Delete("/appointments/{id}", bookingHandler.DeleteAppointment)
				protected.Get("/contacts", contactHandler.AdminList)

				protected.Post("/projects", projectsHandler.AdminCreate)
				protected.Put("/projects/{id}", projectsHandler.AdminUpdate)
				protected.Delete("/projects/{id}", projectsHandler.AdminDelete)
				protected.Post("/snippets", snippetsHandler.AdminCreate)
				protected.Put("/snippets/{id}", snippetsHandler.AdminUpdate)
				protected.Delete("/snippets/{id}", snippetsHandler.AdminDelete)

				protected.Post("/users", adminHandler.CreateUser)
				protected.Patch("/users/{id}/password", adminHandler.UpdateUserPassword)
			})
		})
	}

	r.Route("/api", registerRoutes)
	r.Route("/api/v1", registerRoutes)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
