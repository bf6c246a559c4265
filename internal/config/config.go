// Package config loads PageMap's runtime configuration from CLI flags and
// environment variables, CLI always taking precedence (spec.md §6.4). There
// is deliberately no file-based layer: config-file loading is a Non-goal,
// mirrored here the way the teacher's internal/security/security_config.go
// resolves its own mode/paths from os.Getenv lookups rather than a config
// file reader.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Transport selects which of PageMap's two transports serve is running.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Config is the full set of knobs spec.md §6.3/§6.4 names for `serve`, plus
// the size/limit overrides §6.4 gestures at without enumerating.
type Config struct {
	Transport Transport
	Host      string
	Port      int

	CorsOrigins    []string
	AllowLocal     bool
	Telemetry      bool
	IgnoreRobots   bool
	BotUA          bool
	TrustedProxies []string
	DrainTimeout   time.Duration
	LogLevel       string

	ResponseLimitBytes    int
	ScreenshotLimitBytes  int
	ClientRateCapacity    float64
	ClientRateRefill      float64
	GlobalRateCapacity    float64
	GlobalRateRefill      float64
	MaxConcurrentSessions int
	SessionTTL            time.Duration

	PipelineTimeout     time.Duration
	ScreenshotTimeout   time.Duration
	NavigateBackTimeout time.Duration
	ToolLockTimeout     time.Duration
}

func defaults() Config {
	return Config{
		Transport:             TransportStdio,
		Host:                  "127.0.0.1",
		Port:                  7890,
		DrainTimeout:          10 * time.Second,
		ResponseLimitBytes:    1 << 20,
		ScreenshotLimitBytes:  5 << 20,
		ClientRateCapacity:    20,
		ClientRateRefill:      5,
		GlobalRateCapacity:    100,
		GlobalRateRefill:      20,
		MaxConcurrentSessions: 4,
		SessionTTL:            15 * time.Minute,
		LogLevel:              "info",
		PipelineTimeout:       20 * time.Second,
		ScreenshotTimeout:     15 * time.Second,
		NavigateBackTimeout:   30 * time.Second,
		ToolLockTimeout:       5 * time.Second,
	}
}

// lookup resolves one setting from a changed CLI flag, then the environment
// variable, then the flag's registered default, then the given fallback.
type lookup struct {
	flags *pflag.FlagSet
	env   func(string) (string, bool)
}

func (l lookup) str(flagName, envName string, fallback string) string {
	if l.flags != nil {
		if v, err := l.flags.GetString(flagName); err == nil && l.flags.Changed(flagName) {
			return v
		}
	}
	if v, ok := l.env(envName); ok && v != "" {
		return v
	}
	if l.flags != nil {
		if v, err := l.flags.GetString(flagName); err == nil {
			return v
		}
	}
	return fallback
}

func (l lookup) boolean(flagName, envName string, fallback bool) bool {
	if l.flags != nil && l.flags.Changed(flagName) {
		if v, err := l.flags.GetBool(flagName); err == nil {
			return v
		}
	}
	if v, ok := l.env(envName); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if l.flags != nil {
		if v, err := l.flags.GetBool(flagName); err == nil {
			return v
		}
	}
	return fallback
}

func (l lookup) integer(flagName, envName string, fallback int) int {
	if l.flags != nil && l.flags.Changed(flagName) {
		if v, err := l.flags.GetInt(flagName); err == nil {
			return v
		}
	}
	if v, ok := l.env(envName); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if l.flags != nil {
		if v, err := l.flags.GetInt(flagName); err == nil {
			return v
		}
	}
	return fallback
}

func (l lookup) stringSlice(flagName, envName string) []string {
	if l.flags != nil && l.flags.Changed(flagName) {
		if v, err := l.flags.GetStringSlice(flagName); err == nil {
			return v
		}
	}
	if v, ok := l.env(envName); ok && v != "" {
		return splitCSV(v)
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnvLookupFunc abstracts os.LookupEnv so tests can supply a fixed map
// instead of mutating process environment.
type EnvLookupFunc func(string) (string, bool)

// Load builds a Config from flags (as registered by cmd/pagemap's `serve`
// command) with CLI values taking precedence over PAGEMAP_* environment
// variables, enforcing spec.md §6.5's security guardrails at load time.
func Load(flags *pflag.FlagSet, env EnvLookupFunc) (*Config, error) {
	cfg := defaults()
	l := lookup{flags: flags, env: env}

	if v := l.str("transport", "PAGEMAP_TRANSPORT", string(cfg.Transport)); v != "" {
		cfg.Transport = Transport(v)
	}
	if cfg.Transport != TransportStdio && cfg.Transport != TransportHTTP {
		return nil, fmt.Errorf("config: invalid transport %q (want stdio or http)", cfg.Transport)
	}

	cfg.Host = l.str("host", "PAGEMAP_HOST", cfg.Host)
	cfg.Port = l.integer("port", "PAGEMAP_PORT", cfg.Port)
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid port %d (must be 1-65535)", cfg.Port)
	}

	cfg.CorsOrigins = l.stringSlice("cors-origin", "PAGEMAP_CORS_ORIGIN")
	cfg.AllowLocal = l.boolean("allow-local", "PAGEMAP_ALLOW_LOCAL", cfg.AllowLocal)
	cfg.Telemetry = l.boolean("telemetry", "PAGEMAP_TELEMETRY", cfg.Telemetry)
	cfg.IgnoreRobots = l.boolean("ignore-robots", "PAGEMAP_IGNORE_ROBOTS", cfg.IgnoreRobots)
	cfg.BotUA = l.boolean("bot-ua", "PAGEMAP_BOT_UA", cfg.BotUA)
	cfg.TrustedProxies = l.stringSlice("trusted-proxy", "PAGEMAP_TRUSTED_PROXIES")
	cfg.LogLevel = l.str("log-level", "PAGEMAP_LOG_LEVEL", cfg.LogLevel)

	drainRaw := l.str("drain-timeout", "PAGEMAP_DRAIN_TIMEOUT", "")
	if drainRaw != "" {
		d, err := ParseTTL(drainRaw)
		if err != nil {
			return nil, fmt.Errorf("config: --drain-timeout: %w", err)
		}
		if d > 0 {
			cfg.DrainTimeout = d
		}
	}

	if err := validateGuardrails(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateGuardrails enforces spec.md §6.5: a wildcard trusted proxy is only
// acceptable when the server is bound to loopback, and a wildcard CORS
// origin is refused outright regardless of binding.
func validateGuardrails(cfg Config) error {
	for _, origin := range cfg.CorsOrigins {
		if origin == "*" {
			return fmt.Errorf("config: --cors-origin '*' is not allowed; list explicit origins")
		}
	}
	for _, proxy := range cfg.TrustedProxies {
		if proxy == "*" && !isLoopback(cfg.Host) {
			return fmt.Errorf("config: --trusted-proxy '*' is only allowed when bound to loopback (127.0.0.1/::1/localhost)")
		}
	}
	return nil
}

func isLoopback(host string) bool {
	switch host {
	case "127.0.0.1", "::1", "localhost", "":
		return true
	default:
		return false
	}
}

// UserAgent returns the User-Agent string PageMap identifies itself with
// (spec.md §6.6): a current Chrome UA by default, or a self-identifying bot
// UA when --bot-ua is set.
func (c Config) UserAgent(version string) string {
	if c.BotUA {
		return fmt.Sprintf("PageMapBot/%s (+https://github.com/Retio-ai/pagemap)", version)
	}
	return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
}
