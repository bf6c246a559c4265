// serve.go — the long-running `serve` subcommand (spec.md §6.3): wires
// every subsystem (browser pool, session manager, robots checker, response
// guard, rate limiter, telemetry sink) into one mcpserver.Server and runs
// either the stdio loop or the HTTP listener, with a signal-triggered
// graceful drain. Grounded on the teacher's runMCPMode (cmd/dev-console/
// main.go), which starts HTTP routes in a goroutine alongside a blocking
// stdio read loop; this command instead runs exactly one transport per
// process, chosen by --transport, matching spec.md §6.1's "two supported
// transports" (mutually exclusive per run, not simultaneous).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/retio-ai/pagemap/internal/browserpool"
	"github.com/retio-ai/pagemap/internal/config"
	"github.com/retio-ai/pagemap/internal/mcpserver"
	"github.com/retio-ai/pagemap/internal/pagesession"
	"github.com/retio-ai/pagemap/internal/ratelimit"
	"github.com/retio-ai/pagemap/internal/respguard"
	"github.com/retio-ai/pagemap/internal/robots"
	"github.com/retio-ai/pagemap/internal/telemetry"
	"github.com/retio-ai/pagemap/internal/webmw"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the PageMap MCP server over stdio or HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), os.LookupEnv)
			if err != nil {
				return newUserError("serve: %s", err.Error())
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	registerServeFlags(cmd.Flags())
	return cmd
}

// registerServeFlags declares exactly the flag names internal/config.Load
// looks up by name (spec.md §6.3/§6.4).
func registerServeFlags(f *pflag.FlagSet) {
	f.String("transport", "stdio", "transport: stdio or http")
	f.String("host", "127.0.0.1", "HTTP bind host")
	f.Int("port", 7890, "HTTP bind port")
	f.StringSlice("cors-origin", nil, "allowed CORS origin (repeatable)")
	f.Bool("allow-local", false, "permit navigation to private/loopback addresses")
	f.Bool("telemetry", false, "emit telemetry events via structured logs")
	f.Bool("ignore-robots", false, "skip the robots.txt check before navigating")
	f.Bool("bot-ua", false, "identify as PageMapBot instead of a browser UA")
	f.StringSlice("trusted-proxy", nil, "trusted proxy address allowed to set X-Forwarded-Proto (repeatable)")
	f.String("drain-timeout", "", "graceful shutdown drain timeout (default 10s; an explicit value must be at least 1m)")
	f.String("log-level", "info", "log level: debug, info, warn, error")
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().
		Level(mcpserver.LogLevel(cfg.LogLevel))

	var sink telemetry.Sink = telemetry.NoopSink{}
	if cfg.Telemetry {
		sink = telemetry.LogSink{Logger: logger}
	}

	pool := browserpool.New(browserpool.Config{
		Headless:              true,
		MaxConcurrentSessions: cfg.MaxConcurrentSessions,
		UserAgent:             cfg.UserAgent(mcpserver.Version),
		AllowLocalNavigation:  cfg.AllowLocal,
	})
	sessions := pagesession.NewManager(pool, cfg.SessionTTL, pagesession.RecyclePolicy{}, time.Minute, sink)
	guard := respguard.New(cfg.ResponseLimitBytes, sink)

	srv := mcpserver.New()
	srv.Sessions = sessions
	srv.Pool = pool
	srv.Robots = robots.New()
	srv.Guard = guard
	srv.Sink = sink
	srv.Logger = logger
	srv.UserAgent = cfg.UserAgent(mcpserver.Version)
	srv.IgnoreRobots = cfg.IgnoreRobots
	srv.AllowLocal = cfg.AllowLocal
	srv.PipelineTimeout = cfg.PipelineTimeout
	srv.ScreenshotTimeout = cfg.ScreenshotTimeout
	srv.NavigateBackTimeout = cfg.NavigateBackTimeout
	srv.ToolLockTimeout = cfg.ToolLockTimeout
	srv.ScreenshotLimitByte = cfg.ScreenshotLimitBytes

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch cfg.Transport {
	case config.TransportStdio:
		runErr = srv.RunStdio(runCtx, os.Stdin, os.Stdout)
	case config.TransportHTTP:
		runErr = runHTTP(runCtx, srv, cfg, logger)
	default:
		return newUserError("serve: unknown transport %q", cfg.Transport)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancel()
	srv.Shutdown(drainCtx, cfg.DrainTimeout)

	return runErr
}

func runHTTP(ctx context.Context, srv *mcpserver.Server, cfg *config.Config, logger zerolog.Logger) error {
	limiter := ratelimit.New(cfg.ClientRateCapacity, cfg.ClientRateRefill, cfg.GlobalRateCapacity, cfg.GlobalRateRefill)
	security := webmw.SecurityConfig{
		AllowedOrigins: cfg.CorsOrigins,
		TrustedProxies: cfg.TrustedProxies,
	}
	mux := srv.NewHTTPMux(security, limiter)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("pagemap: listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
