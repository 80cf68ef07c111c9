package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/config"
	"github.com/mikepea/rlinks/pkg/rlinks/database"
	"github.com/mikepea/rlinks/pkg/rlinks/links"
	"github.com/mikepea/rlinks/pkg/rlinks/metrics"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
	"github.com/mikepea/rlinks/pkg/rlinks/preview"
	"github.com/mikepea/rlinks/pkg/rlinks/server"
	"github.com/mikepea/rlinks/pkg/rlinks/tracing"
	"gorm.io/gorm"
)

// @title rlinks API
// @version 1.0
// @description A link reducer service: shorten URLs, page through them and follow short keys.

// @contact.name rlinks
// @contact.url https://github.com/mikepea/rlinks

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	seedFile := flag.String("seed", "", "newline separated file of URLs to shorten as the public user")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	if err := run(*seedFile); err != nil {
		log.Fatalf("rlinks: %v", err)
	}
}

func run(seedFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(newLogger(cfg.App))
	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := migrate(db, cfg.App.Environment); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations completed", "driver", cfg.Database.Driver)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var m *metrics.Metrics
	svcCfg := links.ServiceConfig{
		Logger:      slog.Default(),
		KeyLength:   cfg.Links.ShortKeyLength,
		KeyAttempts: cfg.Links.KeyAttempts,
		PageSize:    cfg.Links.PageSize,
	}
	if cfg.Links.PreviewEnabled {
		svcCfg.Preview = preview.NewHTTPFetcher(cfg.Links.PreviewTimeout)
	}
	if cfg.Observability.MetricsEnabled {
		m = metrics.New()
		svcCfg.Observer = m
	}
	svc := links.NewService(links.NewGormStore(db), svcCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if seedFile != "" {
		f, err := os.Open(seedFile)
		if err != nil {
			return fmt.Errorf("open seed file: %w", err)
		}
		n, err := seedLinks(ctx, svc, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("seed links: %w", err)
		}
		slog.Info("seeded links", "count", n, "file", seedFile)
	}
	if cfg.App.Environment == config.EnvSeed {
		return nil
	}

	var handler http.Handler = server.NewRouter(server.Deps{
		Config:  cfg,
		DB:      db,
		Tokens:  tokens,
		Links:   svc,
		Metrics: m,
		Logger:  slog.Default(),
	})

	if cfg.Observability.TracingEnabled {
		shutdown, err := tracing.Init(ctx, cfg.Observability.OTelEndpoint, cfg.Observability.ServiceName)
		if err != nil {
			slog.Error("tracing init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					slog.Error("tracing shutdown failed", "err", err)
				}
			}()
			handler = tracing.Wrap(handler, "http")
		}
	} else {
		slog.Debug("tracing disabled by config", "OTEL_ENABLED", false)
	}

	srv := server.NewHTTPServer(cfg.Server, handler)
	slog.Info("starting rlinks server", "addr", srv.Addr, "env", cfg.App.Environment)
	if err := server.Run(ctx, srv, cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func newLogger(cfg config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// migrate brings the schema up to date and makes sure the public user
// exists. SEED starts from empty tables.
func migrate(db *gorm.DB, env config.Environment) error {
	if env == config.EnvSeed {
		if err := models.Reset(db); err != nil {
			return err
		}
	} else if err := models.AutoMigrate(db); err != nil {
		return err
	}
	_, err := models.EnsurePublicUser(db)
	return err
}
