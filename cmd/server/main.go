package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"rubric-review/backend/internal/api"
	"rubric-review/backend/internal/auth"
	"rubric-review/backend/internal/config"
	"rubric-review/backend/internal/logging"
	"rubric-review/backend/internal/mcp"
	"rubric-review/backend/internal/metrics"
	"rubric-review/backend/internal/repository"
	"rubric-review/backend/internal/services"
	"rubric-review/backend/internal/tls"
	"rubric-review/backend/internal/validation"
)

const serviceName = "rubric-review"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the rubric review workflow API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"store_driver", cfg.Store.Driver,
		"validation_mode", cfg.Validation.Mode,
		"enforce_order", cfg.Workflow.EnforceOrder,
		"auth_enabled", cfg.Auth.Enable,
	)
	if cfg.Auth.Enable && cfg.Auth.SwaggerClientID != "" && cfg.Auth.SwaggerClientID == cfg.Auth.ClientID {
		logger.Warn("Swagger client id matches the backend client id; PKCE login from /docs will fail for a web app client")
	}

	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store initialization failed: %w", err)
	}
	defer closeStore()
	logger.Info("Store ready", "driver", cfg.Store.Driver)

	mode, err := validation.ParseMode(cfg.Validation.Mode)
	if err != nil {
		return err
	}

	m := metrics.InitMetrics(prometheus.DefaultRegisterer)
	workflows := services.NewWorkflowService(store, validation.New(mode),
		services.WithLogger(logger),
		services.WithMetrics(m),
		services.WithEnforceOrder(cfg.Workflow.EnforceOrder),
		services.WithLinesPerPage(cfg.Export.LinesPerPage),
	)

	var authz *auth.Auth
	if cfg.Auth.Enable {
		if authz, err = auth.New(ctx, cfg, logger); err != nil {
			return fmt.Errorf("auth initialization failed: %w", err)
		}
	}

	e := newEcho(cfg, logger, m, prometheus.DefaultGatherer, workflows, authz)

	addr := cfg.Server.Addr
	if cfg.TLS.Enable {
		addr = cfg.Server.TLSAddr
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		serverErrors <- listen(server, cfg, logger)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}

func listen(server *http.Server, cfg *config.Config, logger *logging.Logger) error {
	if !cfg.TLS.Enable {
		return server.ListenAndServe()
	}
	if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
		return errors.New("tls enabled but cert_file or key_file not set")
	}
	created, err := tls.EnsureCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
	if err != nil {
		return fmt.Errorf("failed to prepare certificate: %w", err)
	}
	if created {
		logger.Warn("Generated self-signed certificate", "cert", cfg.TLS.CertFile, "hosts", cfg.TLS.Hostnames)
	}
	return server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
}

// newEcho builds the HTTP stack. A nil authz leaves /api and /mcp open.
func newEcho(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, workflows *services.WorkflowService, authz *auth.Auth) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if user, ok := auth.UserFromContext(c.Request().Context()); ok {
				fields = append(fields, "user", user)
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit("2M"))
	e.Use(otelecho.Middleware(serviceName))
	e.Use(m.Middleware())

	e.GET("/healthz", api.HealthHandler(workflows))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	e.GET("/openapi.yaml", api.SpecHandler(cfg.Auth.OktaDomain))
	e.GET("/docs", api.SwaggerHandler(cfg.Auth.OktaDomain, cfg.Auth.SwaggerClientID))
	e.GET("/docs/oauth2-redirect.html", api.OAuth2RedirectHandler)

	apiGroup := e.Group("/api")
	if authz != nil {
		e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
		e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
		e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))
		apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth), echo.WrapMiddleware(auth.RequireReviewScope))
	}
	api.RegisterHandlers(apiGroup, api.NewServer(workflows))
	logger.Info("REST API handlers mounted", "base", "/api")

	mcpServer := mcp.NewServer(workflows, api.Version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	var mcpHandler http.Handler = mcpHandlers
	if authz != nil {
		// Tool calls arrive as POSTs, so any MCP mutation needs review:write.
		mcpHandler = authz.RequireAuth(auth.RequireReviewScope(mcpHandler))
	}
	e.Any("/mcp", echo.WrapHandler(mcpHandler))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandler))
	logger.Info("MCP protocol handlers mounted", "base", "/mcp", "auth", authz != nil)

	return e
}
