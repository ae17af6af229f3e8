package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mestore/mestore-api/internal/config"
	"github.com/mestore/mestore-api/internal/domain/admin"
	"github.com/mestore/mestore-api/internal/domain/audit"
	"github.com/mestore/mestore-api/internal/domain/dashboard"
	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/domain/user"
	"github.com/mestore/mestore-api/internal/domain/verification"
	"github.com/mestore/mestore-api/internal/middleware"
	"github.com/mestore/mestore-api/internal/pkg/database"
	"github.com/mestore/mestore-api/internal/pkg/jwt"
	"github.com/mestore/mestore-api/internal/pkg/logger"
	"github.com/mestore/mestore-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting MeStore API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	permissionRepo := permission.NewRepository(db)
	auditRepo := audit.NewRepository(db)
	verificationRepo := verification.NewRepository(db)
	dashboardRepo := dashboard.NewRepository(db)

	// ---------- Audit writer ----------
	auditWriter := audit.NewWriter(auditRepo, cfg.AuditQueueSize)
	defer auditWriter.Close()

	// ---------- Services ----------
	decisionCache := permission.NewDecisionCache(redisClient, cfg.PermissionCacheTTL)
	permissionService := permission.NewService(permissionRepo, userRepo, decisionCache, auditWriter)
	adminService := admin.NewService(userRepo, permissionService, auditRepo, auditWriter)
	verificationService := verification.NewService(verificationRepo, permissionService)

	// ---------- Handlers ----------
	dashboardHandler := dashboard.NewHandler(dashboardRepo, permissionService)
	adminHandler := admin.NewHandler(adminService, permissionService, jwtService)
	verificationHandler := verification.NewHandler(verificationService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/admins", adminHandler.Routes(authMiddleware, dashboardHandler))
		r.Mount("/verifications", verificationHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
