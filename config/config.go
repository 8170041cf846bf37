package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/guardian/apiclient"
	"github.com/jonwraymond/guardian/observe"
	"github.com/jonwraymond/guardian/resilience"
	"github.com/jonwraymond/guardian/tokenstore"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Environment variable names.
const (
	EnvBaseURL          = "GUARDIAN_BASE_URL"
	EnvTimeout          = "GUARDIAN_TIMEOUT"
	EnvLogLevel         = "GUARDIAN_LOG_LEVEL"
	EnvStore            = "GUARDIAN_STORE"
	EnvStoreDSN         = "GUARDIAN_STORE_DSN"
	EnvRedisAddr        = "GUARDIAN_REDIS_ADDR"
	EnvRedisPrefix      = "GUARDIAN_REDIS_PREFIX"
	EnvCoalesceRefresh  = "GUARDIAN_COALESCE_REFRESH"
	EnvGetRetryAttempts = "GUARDIAN_GET_RETRY_ATTEMPTS"
	EnvTracingExporter  = "GUARDIAN_TRACING_EXPORTER"
	EnvTracingSample    = "GUARDIAN_TRACING_SAMPLE"
	EnvMetricsExporter  = "GUARDIAN_METRICS_EXPORTER"
)

// Defaults.
const (
	DefaultBaseURL          = "http://127.0.0.1:8000/api"
	DefaultTimeout          = 30 * time.Second
	DefaultLogLevel         = "warn"
	DefaultRedisPrefix      = "guardian:"
	DefaultGetRetryAttempts = 3
)

// Config is the runtime configuration of the guardian client.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	LogLevel string

	Store tokenstore.Options

	// CoalesceRefresh shares one in-flight refresh between concurrent 401s.
	CoalesceRefresh bool

	// GetRetryAttempts bounds attempts for GETs that fail on the network.
	// 1 disables retries.
	GetRetryAttempts int

	Observe observe.Config
}

// Load reads Config from the environment and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		BaseURL:  EnvString(EnvBaseURL, DefaultBaseURL),
		Timeout:  EnvDuration(EnvTimeout, DefaultTimeout),
		LogLevel: EnvString(EnvLogLevel, DefaultLogLevel),
		Store: tokenstore.Options{
			Driver:      EnvString(EnvStore, tokenstore.DriverSQLite),
			DSN:         EnvString(EnvStoreDSN, ""),
			RedisAddr:   EnvString(EnvRedisAddr, ""),
			RedisPrefix: EnvString(EnvRedisPrefix, DefaultRedisPrefix),
		},
		CoalesceRefresh:  EnvBool(EnvCoalesceRefresh, true),
		GetRetryAttempts: EnvInt(EnvGetRetryAttempts, DefaultGetRetryAttempts),
	}

	tracing := EnvString(EnvTracingExporter, "none")
	metrics := EnvString(EnvMetricsExporter, "none")
	cfg.Observe = observe.Config{
		ServiceName: "guardian",
		Tracing: observe.TracingConfig{
			Enabled:   tracing != "none",
			Exporter:  tracing,
			SamplePct: EnvFloat(EnvTracingSample, 1.0),
		},
		Metrics: observe.MetricsConfig{
			Enabled:  metrics != "none",
			Exporter: metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   cfg.LogLevel,
		},
	}

	var errs []error
	for _, v := range []*string{&cfg.BaseURL, &cfg.Store.DSN, &cfg.Store.RedisAddr} {
		expanded, err := ExpandEnvStrict(*v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*v = expanded
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	if cfg.Store.Driver == tokenstore.DriverSQLite && cfg.Store.DSN == "" {
		dsn, err := DefaultStorePath()
		if err != nil {
			return Config{}, err
		}
		cfg.Store.DSN = dsn
	}

	return cfg, cfg.Validate()
}

// DefaultStorePath returns the SQLite session file under the user config
// directory.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate user config dir: %w", err)
	}
	return filepath.Join(dir, "guardian", "session.db"), nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalid, c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if c.GetRetryAttempts <= 0 {
		return fmt.Errorf("%w: get retry attempts must be positive", ErrInvalid)
	}

	switch c.Store.Driver {
	case tokenstore.DriverMemory:
	case tokenstore.DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: %s requires %s", ErrInvalid, tokenstore.DriverSQLite, EnvStoreDSN)
		}
	case tokenstore.DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("%w: %s requires %s", ErrInvalid, tokenstore.DriverRedis, EnvRedisAddr)
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalid, tokenstore.ErrUnknownDriver, c.Store.Driver)
	}

	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ClientConfig builds the API client configuration for store and mw.
func (c Config) ClientConfig(store tokenstore.Store, mw *observe.Middleware) apiclient.Config {
	cc := apiclient.Config{
		BaseURL:                  c.BaseURL,
		Store:                    store,
		Timeout:                  c.Timeout,
		Middleware:               mw,
		DisableRefreshCoalescing: !c.CoalesceRefresh,
	}
	if c.GetRetryAttempts > 1 {
		cc.Retry = resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  c.GetRetryAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		})
	}
	return cc
}
