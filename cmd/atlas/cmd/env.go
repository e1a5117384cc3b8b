package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atlashq/atlas-go"
	"github.com/atlashq/atlas-go/credstore"
	"github.com/atlashq/atlas-go/internal/config"
	"github.com/atlashq/atlas-go/internal/telemetry"
	"github.com/atlashq/atlas-go/requestlog"
	"github.com/atlashq/atlas-go/session"
)

// env bundles the wired components every command needs: configuration,
// the session store, and the API client.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *session.Store
	client *atlas.Client

	reqlog   *requestlog.Log
	shutdown telemetry.ShutdownFunc
}

// newEnv loads configuration and wires the credential store, session
// store, and API client together. Call close when done.
func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Trace || traceFlag, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	creds := credstore.NewFileStore(cfg.Credentials.Path, logger)
	resolver := session.NewHTTPResolver(cfg.API.BaseURL,
		session.WithResolverHTTPClient(&http.Client{Timeout: cfg.APITimeout()}),
		session.WithResolverLogger(logger),
	)
	store := session.New(resolver, creds, session.WithLogger(logger))

	opts := []atlas.Option{
		atlas.WithTimeout(cfg.APITimeout()),
		atlas.WithLogger(logger),
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, atlas.WithUserAgent(cfg.API.UserAgent))
	}
	if ttl := cfg.CacheTTL(); ttl > 0 {
		opts = append(opts, atlas.WithCacheTTL(ttl), atlas.WithCacheMaxSize(cfg.Cache.MaxSize))
	}

	var reqlogFile *requestlog.Log
	if cfg.RequestLog.Path != "" {
		reqlogFile, err = requestlog.Open(cfg.RequestLog.Path,
			requestlog.WithMaxBytes(cfg.RequestLog.MaxBytes),
			requestlog.WithLogger(logger),
		)
		if err != nil {
			logger.Warn("request log unavailable", "path", cfg.RequestLog.Path, "error", err)
		} else {
			opts = append(opts, atlas.WithRequestLog(reqlogFile))
		}
	}

	client := atlas.NewClient(cfg.API.BaseURL, store, opts...)

	store.Start(ctx)

	return &env{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		client:   client,
		reqlog:   reqlogFile,
		shutdown: shutdown,
	}, nil
}

// close waits for in-flight session work and flushes traces.
func (e *env) close(ctx context.Context) {
	e.store.Close()
	if e.reqlog != nil {
		_ = e.reqlog.Close()
	}
	if e.shutdown != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := e.shutdown(flushCtx); err != nil {
			e.logger.Warn("trace flush failed", "error", err)
		}
	}
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelWarn for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
