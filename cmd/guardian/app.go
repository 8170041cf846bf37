package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonwraymond/guardian/apiclient"
	"github.com/jonwraymond/guardian/config"
	"github.com/jonwraymond/guardian/observe"
	"github.com/jonwraymond/guardian/session"
	"github.com/jonwraymond/guardian/tokenstore"
)

// app holds the wired components for one invocation.
type app struct {
	cfg     config.Config
	obs     observe.Observer
	store   tokenstore.Backend
	client  *apiclient.Client
	session *session.Manager
	log     observe.Logger

	stdout io.Writer
	stderr io.Writer
}

func newApp(ctx context.Context, g globals, stdout, stderr io.Writer) (*app, error) {
	applyGlobals(g)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(loggerOverride{obs, observe.NewLoggerWithWriter(cfg.LogLevel, stderr)})
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	if cfg.Store.Driver == tokenstore.DriverSQLite && !strings.HasPrefix(cfg.Store.DSN, ":memory:") && !strings.HasPrefix(cfg.Store.DSN, "file:") {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.DSN), 0o700); err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	store, err := tokenstore.Open(ctx, cfg.Store)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	client, err := apiclient.New(cfg.ClientConfig(store, mw))
	if err != nil {
		_ = store.Close()
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	mgr, err := session.New(session.Config{API: client, Store: store, Logger: mw.Logger()})
	if err != nil {
		_ = store.Close()
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	return &app{
		cfg:     cfg,
		obs:     obs,
		store:   store,
		client:  client,
		session: mgr,
		log:     mw.Logger(),
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

// applyGlobals maps global flags onto the environment read by config.Load.
func applyGlobals(g globals) {
	for key, v := range map[string]string{
		config.EnvBaseURL:  g.server,
		config.EnvStore:    g.store,
		config.EnvStoreDSN: g.dsn,
		config.EnvLogLevel: g.logLevel,
	} {
		if v != "" {
			_ = os.Setenv(key, v)
		}
	}
}

func (a *app) close(ctx context.Context) {
	err := errors.Join(a.store.Close(), a.obs.Shutdown(context.WithoutCancel(ctx)))
	if err != nil {
		a.log.Warn(ctx, "shutdown failed", observe.Err(err))
	}
}

// requireSession restores the stored session and fails when nobody is
// signed in.
func (a *app) requireSession(ctx context.Context) error {
	if a.session.Start(ctx) != session.StateAuthenticated {
		return errNotSignedIn
	}
	return nil
}

var errNotSignedIn = errors.New("not signed in; run `guardian login`")

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// loggerOverride routes the observer's logs to the command's stderr.
type loggerOverride struct {
	observe.Observer
	logger observe.Logger
}

func (o loggerOverride) Logger() observe.Logger { return o.logger }
