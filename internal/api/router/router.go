// Package router sets up the API routes for the application.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/internal/api/handler"
	"github.com/verustcode/codesync/internal/api/middleware"
	"github.com/verustcode/codesync/internal/config"
	"github.com/verustcode/codesync/internal/database"
	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/internal/report/exporter"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/internal/syncer"
)

// Deps are the components the routes are served by
type Deps struct {
	Config    *config.Config
	Store     store.Store
	Providers *provider.Registry
	Syncer    *syncer.Syncer
	Tokens    *handler.TokenService
	Exports   *exporter.ExportManager
	// Metrics is served on MetricsPath when set
	Metrics     http.Handler
	MetricsPath string
}

// Setup configures all API routes
func Setup(r *gin.Engine, d Deps) error {
	cfg := d.Config

	github, err := d.Providers.Get(consts.ProviderGitHub)
	if err != nil {
		return err
	}
	gitlab, err := d.Providers.Get(consts.ProviderGitLab)
	if err != nil {
		return err
	}
	parserGitHub, ok := github.(handler.WebhookParser)
	if !ok {
		return provider.ErrUnsupportedProvider
	}
	parserGitLab, ok := gitlab.(handler.WebhookParser)
	if !ok {
		return provider.ErrUnsupportedProvider
	}

	// Apply global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))
	r.Use(middleware.Metrics())
	r.Use(otelgin.Middleware(consts.ServiceName))

	// Health check endpoint (public)
	r.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		stats := d.Syncer.Queue().Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"version":       consts.Version,
			"queue_pending": stats.TotalPending,
			"queue_running": stats.TotalRunning,
			"uptime":        consts.GetUptime().Round(time.Second).String(),
		})
	})
	if d.Metrics != nil && d.MetricsPath != "" {
		r.GET(d.MetricsPath, gin.WrapH(d.Metrics))
	}

	auth := middleware.JWTAuth(d.Tokens)

	// ============== Public routes ==============

	helper := handler.NewGitHubHelperHandler(github)
	gh := r.Group("/github")
	{
		gh.GET("/auth", helper.Auth)
		gh.GET("/token", helper.Token)
		gh.GET("/code", helper.Code)
	}

	// Webhooks authenticate with their signature or token
	webhookHandler := handler.NewWebhookHandler(d.Syncer, handler.WebhookConfig{
		GitHub:       parserGitHub,
		GitLab:       parserGitLab,
		GitHubSecret: cfg.GitHub.WebhookSecret,
		GitLabSecret: cfg.GitLab.WebhookSecret,
	})
	api := r.Group("/api")
	api.POST("/webhooks/github", webhookHandler.HandleGitHub)
	api.POST("/webhooks/gitlab", webhookHandler.HandleGitLab)
	api.POST("/projects/webhooks/github", webhookHandler.HandleGitHub)

	userHandler := handler.NewUserHandler(d.Store, d.Tokens, cfg.Auth.BcryptCost)
	users := api.Group("/users")
	{
		users.POST("/register", userHandler.Register)
		users.POST("/login", userHandler.Login)
		users.GET("/me", auth, userHandler.Me)
	}

	// ============== Protected routes ==============

	oauthHandler := handler.NewOAuthHandler(d.Store, d.Providers)
	oauth := api.Group("/oauth/:provider")
	oauth.Use(auth)
	{
		oauth.GET("/authorize", oauthHandler.Authorize)
		oauth.GET("/callback", oauthHandler.Callback)
	}

	projectHandler := handler.NewProjectHandler(d.Store, d.Providers, d.Syncer)
	projects := api.Group("/projects")
	projects.Use(auth)
	{
		projects.POST("", projectHandler.Create)
		projects.GET("", projectHandler.List)
		projects.GET("/:id", projectHandler.Get)
		projects.POST("/:id/sync", projectHandler.Sync)
		projects.GET("/:id/reports", projectHandler.Reports)
	}

	reportHandler := handler.NewReportHandler(d.Store, d.Exports)
	reports := api.Group("/reports")
	reports.Use(auth)
	{
		reports.GET("", reportHandler.List)
		reports.GET("/:id", reportHandler.Get)
		reports.GET("/:id/download-html", reportHandler.Download(exporter.ExportFormatHTML))
		reports.GET("/:id/download-pdf", reportHandler.Download(exporter.ExportFormatPDF))
		reports.GET("/:id/download-excel", reportHandler.Download(exporter.ExportFormatExcel))
	}

	return nil
}
