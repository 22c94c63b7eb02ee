// Package main is the entry point for the CodeSync application.
// CodeSync keeps project code in step with linked GitHub and GitLab
// repositories and reports on every sync.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/internal/api/handler"
	"github.com/verustcode/codesync/internal/api/router"
	"github.com/verustcode/codesync/internal/check"
	"github.com/verustcode/codesync/internal/config"
	"github.com/verustcode/codesync/internal/database"
	"github.com/verustcode/codesync/internal/git/github"
	"github.com/verustcode/codesync/internal/git/gitlab"
	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/internal/report"
	"github.com/verustcode/codesync/internal/report/analyzer"
	"github.com/verustcode/codesync/internal/report/exporter"
	"github.com/verustcode/codesync/internal/server"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/internal/syncer"
	"github.com/verustcode/codesync/pkg/errors"
	"github.com/verustcode/codesync/pkg/idgen"
	"github.com/verustcode/codesync/pkg/logger"
	"github.com/verustcode/codesync/pkg/telemetry"
)

// Build information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// configPath holds the path to the configuration file
var configPath string

var rootCmd = &cobra.Command{
	Use:   consts.ServiceName,
	Short: "CodeSync - repository sync and reporting service",
	Long: `CodeSync links projects to GitHub and GitLab repositories, keeps their
code in step through webhooks and on-demand syncs, and produces a report for
every sync that can be downloaded as HTML, PDF or Excel.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CodeSync server",
	Long: `Start the HTTP server to handle API requests and webhook deliveries.

On first run, create and validate the configuration with:
  codesync check`,
	Run: runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the environment and configuration",
	Long: `Check that the configuration file exists and is valid.

When the file is missing you are offered to create it from the built-in
template. Use --ci to check without prompting.`,
	Run: runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", consts.ProjectName, Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Source:     %s\n", consts.ProjectURL)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "config file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")

	checkCmd.Flags().Bool("ci", false, "check without prompting and exit non-zero on failure")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotEnv loads .env from the working directory when present
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARNING] Failed to load .env: %v\n", err)
	}
}

func runCheck(cmd *cobra.Command, args []string) {
	loadDotEnv()
	checker := check.NewChecker(configPath)

	if ci, _ := cmd.Flags().GetBool("ci"); ci {
		result := checker.RunNonInteractive()
		check.PrintCheckResult(result)
		if !result.Success {
			os.Exit(1)
		}
		return
	}

	if err := checker.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Environment check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n✓ Environment check completed successfully")
}

// loadConfig loads and validates the configuration, exiting on failure
func loadConfig(cmd *cobra.Command) *config.Config {
	if !config.Exists(configPath) {
		fmt.Fprintf(os.Stderr, "Configuration not found: %s\nRun '%s check' to create it\n", configPath, consts.ServiceName)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}

	if validationErr := cfg.Validate(); validationErr != nil {
		fmt.Fprintf(os.Stderr, "\n[ERROR] Configuration validation failed\n")
		fmt.Fprintf(os.Stderr, "Error Code: %s\n", validationErr.Code)
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", validationErr)

		if validationErr.Code == errors.ErrCodeJWTSecretInvalid {
			fmt.Fprintf(os.Stderr, "Please configure a JWT secret in %s or CS_JWT_SECRET:\n", configPath)
			fmt.Fprintf(os.Stderr, "  auth:\n")
			if secret, err := idgen.NewSecureSecret(config.MinJWTSecretLength); err == nil {
				fmt.Fprintf(os.Stderr, "    jwt_secret: \"%s\"\n\n", secret)
			}
		}
		os.Exit(errors.ExitCodeConfigValidation)
	}
	return cfg
}

// newProviders builds the provider registry. Both providers are always
// registered so webhooks and URL resolution work without OAuth apps.
func newProviders(cfg *config.Config) (*provider.Registry, error) {
	hc := &http.Client{Timeout: cfg.Sync.Timeout()}

	gh, err := github.New(github.Options{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		AuthURL:      cfg.GitHub.AuthURL,
		TokenURL:     cfg.GitHub.TokenURL,
		APIURL:       cfg.GitHub.APIURL,
		HTTPClient:   hc,
	})
	if err != nil {
		return nil, err
	}
	gl, err := gitlab.New(gitlab.Options{
		ClientID:      cfg.GitLab.ClientID,
		ClientSecret:  cfg.GitLab.ClientSecret,
		AuthURL:       cfg.GitLab.AuthURL,
		TokenURL:      cfg.GitLab.TokenURL,
		APIURL:        cfg.GitLab.APIURL,
		DefaultBranch: cfg.Sync.DefaultBranch,
		HTTPClient:    hc,
	})
	if err != nil {
		return nil, err
	}
	return provider.NewRegistry(gh, gl), nil
}

// runServe starts the CodeSync server
func runServe(cmd *cobra.Command, args []string) {
	loadDotEnv()
	consts.SetStartedAt(time.Now())

	cfg := loadConfig(cmd)

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting "+consts.ProjectName,
		zap.String("version", Version),
		zap.String("config", configPath),
	)
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	if err := database.InitWithPath(cfg.Database.Path); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	dataStore := store.NewStore(database.Get())

	providers, err := newProviders(cfg)
	if err != nil {
		logger.Fatal("Failed to create providers", zap.Error(err))
	}
	logger.Info("Git providers registered", zap.Strings("providers", providers.Names()))

	an, err := analyzer.New(cfg.Report.Analyzer, cfg.Report.LanguageTag())
	if err != nil {
		logger.Fatal("Failed to create analyzer", zap.Error(err))
	}
	pipeline := report.NewPipeline(dataStore.Report(), an)

	syncSvc := syncer.New(dataStore, providers, pipeline, syncer.Options{
		Timeout:   cfg.Sync.Timeout(),
		QueueSize: cfg.Sync.QueueSize,
	})

	var scheduler *syncer.Scheduler
	if cfg.Sync.Schedule != "" {
		scheduler = syncer.NewScheduler(syncSvc, dataStore.Project(), cfg.Sync.Schedule)
	}

	pdf := exporter.DefaultPDFOptions()
	pdf.Timeout = time.Duration(cfg.Report.PDFTimeout) * time.Second

	srv := server.New(cfg, router.Deps{
		Store:       dataStore,
		Providers:   providers,
		Syncer:      syncSvc,
		Tokens:      handler.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry()),
		Exports:     exporter.NewDefaultManager(pdf),
		Metrics:     tel.MetricsHandler(),
		MetricsPath: tel.MetricsPath(),
	}, scheduler)
	if err := srv.SetupRoutes(); err != nil {
		logger.Fatal("Failed to set up routes", zap.Error(err))
	}

	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info(consts.ProjectName+" server is running",
		zap.String("address", srv.Addr()),
	)
	port := cfg.Server.Port
	logger.Info(fmt.Sprintf("  Local:   http://localhost:%d/health", port))
	if lanIP := getLocalIP(); lanIP != "" {
		logger.Info(fmt.Sprintf("  Network: http://%s:%d/health", lanIP, port))
	}

	srv.WaitForShutdown()

	logger.Info(consts.ProjectName + " stopped")
}

// getLocalIP returns the first non-loopback IPv4 address
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
