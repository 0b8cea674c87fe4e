package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/internal/config"
	"github.com/diewo77/go-tutoring/internal/db"
	"github.com/diewo77/go-tutoring/internal/events"
	"github.com/diewo77/go-tutoring/internal/handlers"
	applog "github.com/diewo77/go-tutoring/internal/log"
	"github.com/diewo77/go-tutoring/internal/middleware"
	"github.com/diewo77/go-tutoring/internal/services"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/diewo77/go-tutoring/internal/store/gormstore"
	"github.com/diewo77/go-tutoring/internal/store/reststore"
	"github.com/diewo77/go-tutoring/internal/store/sqlstore"
	"github.com/diewo77/go-tutoring/view"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Seed the subject catalog and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := applog.New(cfg.App.Env)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.Auth.SecretKey == config.DefaultSecretKey {
		log.Warn().Msg("SECRET_KEY is the development default")
	}

	if *migrateOnlyFlag {
		cfg.App.Migrations = true
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("open store")
	}
	defer st.Close()

	if *migrateOnlyFlag {
		log.Info().Msg("migrations completed")
		return
	}

	if cfg.App.Seed || *seedOnlyFlag {
		n, err := db.Seed(ctx, st)
		if err != nil {
			log.Fatal().Err(err).Msg("seeding failed")
		}
		log.Info().Int("subjects", n).Msg("subject catalog seeded")
	}
	if *seedOnlyFlag {
		return
	}

	publisher := openPublisher(cfg.Broker, log)
	defer publisher.Close()

	limiter := credentialLimiter(ctx, cfg.Redis, log)

	accounts, err := services.NewAccounts(st, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("accounts")
	}
	sessions := auth.NewManager(auth.Options{
		Secret: cfg.Auth.SecretKey,
		Secure: cfg.Auth.SessionSecure,
	})

	app := NewApp(handlers.Deps{
		Store:             st,
		Accounts:          accounts,
		Catalog:           services.NewCatalog(st),
		Bookings:          services.NewBookings(st, publisher, log),
		Sessions:          sessions,
		View:              view.New(sessions, !cfg.App.IsProduction()),
		Log:               log,
		CredentialLimiter: limiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("store", cfg.Store.Backend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped gracefully")
}

// openStore builds the configured persistence backend and brings its schema
// up to date. The hosted backend manages its own schema.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "gorm":
		gdb, err := db.Connect(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		s := gormstore.New(gdb)
		if cfg.App.Migrations && cfg.Database.Driver == "postgres" {
			if err := db.RunSQLMigrations(db.DefaultMigrationsSource, db.PostgresDSN(cfg.Database)); err != nil {
				return nil, err
			}
			log.Info().Msg("sql migrations applied")
		} else if err := s.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		return s, nil

	case "sql":
		sqlDB, err := db.OpenSQL(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := db.RunSQLMigrations(db.DefaultMigrationsSource, db.PostgresDSN(cfg.Database)); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return sqlstore.New(sqlDB), nil

	case "rest":
		s, err := reststore.New(reststore.Config{
			URL:     cfg.Supabase.URL,
			APIKey:  cfg.Supabase.AnonKey,
			Timeout: cfg.Supabase.Timeout,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("url", cfg.Supabase.URL).Str("key_role", s.KeyRole()).Msg("using hosted REST backend")
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// openPublisher falls back to logging events when no broker is configured
// or reachable.
func openPublisher(cfg config.BrokerConfig, log zerolog.Logger) events.Publisher {
	if cfg.URL == "" {
		return events.NewLogPublisher(log)
	}
	p, err := events.DialAMQP(cfg.URL, cfg.Queue)
	if err != nil {
		log.Warn().Err(err).Msg("broker unavailable, logging session events instead")
		return events.NewLogPublisher(log)
	}
	log.Info().Str("queue", cfg.Queue).Msg("publishing session events to broker")
	return p
}

// credentialLimiter returns nil when redis is not configured or not
// reachable; the routes then run unthrottled.
func credentialLimiter(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) func(http.Handler) http.Handler {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, login throttling disabled")
		_ = client.Close()
		return nil
	}
	return middleware.LoginThrottle(client, cfg.LoginRateLimit, cfg.LoginWindow, log)
}
