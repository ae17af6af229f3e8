package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mestore/mestore-api/internal/config"
	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/domain/user"
	"github.com/mestore/mestore-api/internal/pkg/database"
	"github.com/mestore/mestore-api/internal/pkg/logger"
	"github.com/mestore/mestore-api/internal/pkg/password"
)

// Seeds the permission catalog and, when SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD are set, a bootstrap superuser account.
func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	permissionRepo := permission.NewRepository(db)
	seeded, err := permission.SeedCatalog(ctx, permissionRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed permission catalog")
	}
	log.Info().Int("permissions", seeded).Msg("Permission catalog seeded")

	email := os.Getenv("SEED_ADMIN_EMAIL")
	pwd := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || pwd == "" {
		log.Info().Msg("SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD not set, skipping bootstrap superuser")
		return
	}

	userRepo := user.NewRepository(db)
	existing, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up bootstrap superuser")
	}
	if existing != nil {
		log.Info().Str("email", email).Msg("Bootstrap superuser already exists")
		return
	}

	hash, err := password.Hash(pwd)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash bootstrap password")
	}

	now := time.Now()
	u := &user.User{
		ID:                     uuid.New(),
		Email:                  email,
		PasswordHash:           hash,
		FullName:               "Bootstrap Superuser",
		UserType:               user.TypeSuperuser,
		SecurityClearanceLevel: user.MaxClearanceLevel,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := userRepo.Create(ctx, u); err != nil {
		log.Fatal().Err(err).Msg("Failed to create bootstrap superuser")
	}

	log.Info().Str("email", email).Msg("Bootstrap superuser created")
}
