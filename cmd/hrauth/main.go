package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/hrconnect-auth/migrations"
	"github.com/tendant/hrconnect-auth/pkg/account"
	"github.com/tendant/hrconnect-auth/pkg/auth"
	"github.com/tendant/hrconnect-auth/pkg/auth/api"
	"github.com/tendant/hrconnect-auth/pkg/config"
	"github.com/tendant/hrconnect-auth/pkg/login"
	"github.com/tendant/hrconnect-auth/pkg/notification"
	"github.com/tendant/hrconnect-auth/pkg/passwordreset"
	"github.com/tendant/hrconnect-auth/pkg/ratelimit"
	"github.com/tendant/hrconnect-auth/pkg/tokengenerator"
)

type Config struct {
	AppConfig       app.AppConfig
	DatabaseConfig  config.DatabaseConfig
	JWTConfig       config.JWTConfig
	LoginConfig     config.LoginConfig
	ResetConfig     config.ResetConfig
	EmailConfig     config.EmailConfig
	RedisConfig     config.RedisConfig
	OrgConfig       config.OrgConfig
	CORSConfig      config.CORSConfig
	RateLimitConfig config.RateLimitConfig

	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	AuthPrefix string `env:"AUTH_PREFIX" env-default:"/auth"`
}

func main() {
	loadEnvFile()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	if err := validateConfig(cfg); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.ResetConfig.Persistence != "memory" {
		dbConfig := cfg.DatabaseConfig.ToDbConfig()
		var err error
		pool, err = dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User, "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.DatabaseConfig.Migrate {
			if err := migrations.RunWithPool(ctx, pool); err != nil {
				slog.Error("Failed to run migrations", "err", err)
				os.Exit(1)
			}
		}
	} else {
		slog.Warn("Using in-memory persistence, accounts and PINs are lost on restart")
	}

	accounts, err := account.NewRepository(cfg.ResetConfig.Persistence, pool)
	if err != nil {
		slog.Error("Failed to create account repository", "err", err)
		os.Exit(1)
	}
	resets, err := passwordreset.NewRepository(cfg.ResetConfig.Persistence, passwordreset.RepositoryConfig{Pool: pool, Accounts: accounts})
	if err != nil {
		slog.Error("Failed to create password reset repository", "err", err)
		os.Exit(1)
	}

	policy := login.LockoutPolicy{
		Threshold: cfg.LoginConfig.MaxFailedAttempts,
		Window:    cfg.LoginConfig.LockoutDuration,
	}
	tracker, closeTracker, err := newAttemptTracker(ctx, cfg.LoginConfig, cfg.RedisConfig, policy)
	if err != nil {
		slog.Error("Failed to create login attempt tracker", "err", err)
		os.Exit(1)
	}
	defer closeTracker()

	notifier, err := newNotifier(cfg.EmailConfig)
	if err != nil {
		slog.Error("Failed to create notifier", "err", err)
		os.Exit(1)
	}

	tokens, err := tokengenerator.NewJwtTokenGenerator(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.Issuer,
		cfg.JWTConfig.Audience,
		cfg.JWTConfig.Expiry(),
	)
	if err != nil {
		slog.Error("Failed to create token generator", "err", err)
		os.Exit(1)
	}

	hasher := login.NewBcryptHasher(0)
	opts := []auth.Option{
		auth.WithPasswordHasher(hasher),
		auth.WithAttemptTracker(tracker),
		auth.WithLockoutPolicy(policy),
		auth.WithPinTTL(cfg.ResetConfig.PinTTL),
		auth.WithEmailDomain(cfg.OrgConfig.EmailDomain),
	}
	if cfg.ResetConfig.VerifyLimit > 0 {
		pinLimiter := ratelimit.PerMinute(cfg.ResetConfig.VerifyLimit)
		go pinLimiter.Run(ctx)
		opts = append(opts, auth.WithPinLimiter(pinLimiter))
	}
	authService := auth.NewAuthService(accounts, resets, notification.NewNotificationManager(notifier), tokens, opts...)

	if err := seedAdmin(ctx, accounts, hasher, cfg.OrgConfig); err != nil {
		slog.Error("Failed to seed admin account", "err", err)
		os.Exit(1)
	}

	go authService.RunPinSweeper(ctx, cfg.ResetConfig.SweepInterval)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	handle := api.NewHandle(authService, api.WithExposePin(cfg.ResetConfig.ExposePin))
	tokenAuth := api.NewTokenAuth(tokens.Key(), cfg.JWTConfig.Issuer, cfg.JWTConfig.Audience)

	server.R.Route(cfg.AuthPrefix, func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSConfig.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		if n := cfg.RateLimitConfig.PerClientPerMinute; n > 0 {
			clientLimiter := ratelimit.PerMinute(n)
			go clientLimiter.Run(ctx)
			r.Use(ratelimit.PerClientMiddleware(clientLimiter,
				ratelimit.WithTrustedProxyHeaders(cfg.RateLimitConfig.TrustProxyHeaders)))
		}
		r.Mount("/", api.Handler(handle, tokenAuth))
	})

	slog.Info("HR auth service ready",
		"prefix", cfg.AuthPrefix,
		"persistence", cfg.ResetConfig.Persistence,
		"tracker", cfg.LoginConfig.Tracker,
		"pin_ttl", cfg.ResetConfig.PinTTL,
		"lockout", cfg.LoginConfig.LockoutDuration,
	)
	server.Run()
}

func newAttemptTracker(ctx context.Context, loginCfg config.LoginConfig, redisCfg config.RedisConfig, policy login.LockoutPolicy) (login.AttemptTracker, func(), error) {
	if loginCfg.Tracker != config.TrackerRedis {
		slog.Warn("Login attempts are tracked in memory; lockouts are per instance")
		return login.NewInMemoryAttemptTracker(policy), func() {}, nil
	}

	client := redis.NewClient(redisCfg.ToOptions())
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	slog.Info("Login attempts tracked in redis", "addr", redisCfg.Addr, "ttl", loginCfg.TrackerTTL)

	tracker := login.NewRedisAttemptTracker(client, policy, login.WithStateTTL(loginCfg.TrackerTTL))
	return tracker, func() { client.Close() }, nil
}
