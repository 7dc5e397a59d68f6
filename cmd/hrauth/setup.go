package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tendant/hrconnect-auth/pkg/account"
	"github.com/tendant/hrconnect-auth/pkg/config"
	"github.com/tendant/hrconnect-auth/pkg/login"
	"github.com/tendant/hrconnect-auth/pkg/notification"
)

func loadEnvFile() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "path", envFile, "err", err)
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// validateConfig checks the groups the selected backends depend on.
func validateConfig(cfg Config) error {
	validators := []config.Validator{
		cfg.JWTConfig.Validate,
		cfg.LoginConfig.Validate,
		cfg.ResetConfig.Validate,
		cfg.EmailConfig.Validate,
		cfg.OrgConfig.Validate,
		cfg.CORSConfig.Validate,
		cfg.RateLimitConfig.Validate,
	}
	if cfg.ResetConfig.Persistence != "memory" {
		validators = append(validators, cfg.DatabaseConfig.Validate)
	}
	if cfg.LoginConfig.Tracker == config.TrackerRedis {
		validators = append(validators, cfg.RedisConfig.Validate)
	}
	return config.Validate(validators...)
}

func newNotifier(cfg config.EmailConfig) (notification.Notifier, error) {
	if cfg.Mock {
		slog.Warn("EMAIL_MOCK is set, reset PINs are not delivered")
		return &notification.MockNotifier{}, nil
	}
	return notification.NewEmailNotifier(cfg.ToSMTPConfig())
}

// seedAdmin creates the configured SuperUser unless an account with that email exists.
func seedAdmin(ctx context.Context, accounts account.Repository, hasher login.PasswordHasher, org config.OrgConfig) error {
	if org.SeedAdminEmail == "" {
		return nil
	}
	email := account.NormalizeEmail(org.SeedAdminEmail)

	_, err := accounts.FindByEmail(ctx, email)
	if err == nil {
		slog.Debug("Seed admin already exists", "email", email)
		return nil
	}
	if !errors.Is(err, account.ErrAccountNotFound) {
		return err
	}

	hash, err := hasher.Hash(org.SeedAdminPassword)
	if err != nil {
		return err
	}
	if _, err := accounts.Create(ctx, email, hash, account.RoleSuperUser); err != nil {
		if errors.Is(err, account.ErrAccountExists) {
			return nil
		}
		return err
	}
	slog.Info("Seed admin account created", "email", email)
	return nil
}
