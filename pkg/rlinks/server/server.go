// Package server assembles the rlinks HTTP surface.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/config"
	"github.com/mikepea/rlinks/pkg/rlinks/httpx"
	"github.com/mikepea/rlinks/pkg/rlinks/links"
	"github.com/mikepea/rlinks/pkg/rlinks/metrics"
	"github.com/mikepea/rlinks/pkg/rlinks/redirect"
	"github.com/mikepea/rlinks/pkg/rlinks/users"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/rlinks/api/swagger"
)

// LiveMessage is the body of GET /live.
const LiveMessage = "rlinks is live!"

// Deps is everything the router needs. Metrics may be nil.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Tokens  *auth.TokenService
	Links   *links.Service
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.AccessLog(logger))

	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", readiness(d.DB))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if d.Config.App.IsDevelopment() {
		r.GET("/live", func(c *gin.Context) {
			c.String(http.StatusOK, LiveMessage)
		})
		r.POST("/", func(c *gin.Context) {
			var body struct {
				URL string `json:"url"`
			}
			_ = c.ShouldBindJSON(&body)
			c.JSON(http.StatusOK, gin.H{"url": body.URL})
		})
	}

	registerFrontend(r, d.Config.App.StaticDir, logger)

	auth.NewHandler(d.DB, d.Tokens).RegisterRoutes(&r.RouterGroup)
	users.NewHandler(d.DB, d.Tokens, d.Config.Auth.BcryptCost).RegisterRoutes(&r.RouterGroup)
	links.NewHandler(d.Links, d.Tokens).RegisterRoutes(&r.RouterGroup)

	// Redirect routes (must be registered LAST to avoid conflicts)
	redirect.NewHandler(d.Links).RegisterRoutes(r)

	return r
}

func readiness(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			slog.ErrorContext(ctx, "readiness check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// registerFrontend serves the built frontend when dir exists, and a JSON
// banner at / otherwise.
func registerFrontend(r *gin.Engine, dir string, logger *slog.Logger) {
	indexHTML := filepath.Join(dir, "index.html")
	if dir == "" {
		indexHTML = ""
	} else if _, err := os.Stat(indexHTML); err != nil {
		indexHTML = ""
	}

	if indexHTML == "" {
		logger.Info("no frontend build found, API only mode", "static_dir", dir)
		r.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"service": "rlinks", "status": "ok"})
		})
		return
	}

	r.Static("/assets", filepath.Join(dir, "assets"))
	r.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))
	r.GET("/", func(c *gin.Context) {
		c.File(indexHTML)
	})
	logger.Info("serving frontend", "static_dir", dir)
}
