// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/daemon"
	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/ManuGH/dhtnode/internal/middleware"
	"github.com/ManuGH/dhtnode/internal/publish"
	"github.com/ManuGH/dhtnode/internal/render"
	"github.com/ManuGH/dhtnode/internal/server"
	"github.com/ManuGH/dhtnode/internal/telemetry"
	"github.com/ManuGH/dhtnode/internal/version"
)

// Tool settings read from the environment; flags take precedence.
const (
	envListen          = "DHTNODE_LISTEN"
	envRedisAddr       = "DHTNODE_REDIS_ADDR"
	envRedisPassword   = "DHTNODE_REDIS_PASSWORD"
	envRedisDB         = "DHTNODE_REDIS_DB"
	envPublishSecrets  = "DHTNODE_PUBLISH_SECRETS"
	envRateLimit       = "DHTNODE_RATE_LIMIT"
	envShutdownTimeout = "DHTNODE_SHUTDOWN_TIMEOUT"
	envOTLPEndpoint    = "DHTNODE_OTLP_ENDPOINT"
	envOTLPExporter    = "DHTNODE_OTLP_EXPORTER"
)

type redisFlags struct {
	addr     string
	password string
	db       int
	prefix   string
	secrets  bool
}

func addRedisFlags(fs *flag.FlagSet, defaultAddr string) *redisFlags {
	rf := &redisFlags{}
	fs.StringVar(&rf.addr, "redis-addr", config.ParseString(envRedisAddr, defaultAddr), "Redis address (host:port)")
	fs.StringVar(&rf.password, "redis-password", config.ParseString(envRedisPassword, ""), "Redis password")
	fs.IntVar(&rf.db, "redis-db", config.ParseInt(envRedisDB, 0), "Redis database number")
	fs.StringVar(&rf.prefix, "redis-prefix", publish.DefaultPrefix, "Redis key prefix")
	fs.BoolVar(&rf.secrets, "include-secrets", config.ParseBool(envPublishSecrets, false), "publish sensitive options")
	return rf
}

func (rf *redisFlags) config() publish.Config {
	return publish.Config{
		Addr:           rf.addr,
		Password:       rf.password,
		DB:             rf.db,
		Prefix:         rf.prefix,
		IncludeSecrets: rf.secrets,
	}
}

func runPublish(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("publish", stderr)
	lf := addLoaderFlags(fs)
	rf := addRedisFlags(fs, "localhost:6379")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	snap, ok := lf.load(fs, stderr)
	if !ok {
		return exitError
	}

	pub, err := publish.New(rf.config())
	if err != nil {
		fmt.Fprintf(stderr, "Redis error: %v\n", err)
		return exitError
	}
	defer func() { _ = pub.Close() }()

	notice, err := pub.Publish(ctx, snap.Variant, snap.Device)
	if err != nil {
		fmt.Fprintf(stderr, "Publish error: %v\n", err)
		return exitError
	}
	return writeJSONOut(stdout, stderr, notice)
}

func runServe(ctx context.Context, args []string, _, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	lf := addLoaderFlags(fs)
	rf := addRedisFlags(fs, "")
	listen := fs.String("listen", config.ParseString(envListen, daemon.DefaultListenAddr), "HTTP listen address")
	rateLimit := fs.Int("rate-limit", config.ParseInt(envRateLimit, 120), "requests per minute per client IP (0 disables)")
	shutdownTimeout := fs.Duration("shutdown-timeout", config.ParseDuration(envShutdownTimeout, daemon.DefaultShutdownTimeout), "graceful shutdown timeout")
	guard := fs.Bool("guard", false, "wrap served headers in an include guard")
	otlpEndpoint := fs.String("otlp-endpoint", config.ParseString(envOTLPEndpoint, ""), "OTLP collector endpoint (empty disables tracing)")
	otlpExporter := fs.String("otlp-exporter", config.ParseString(envOTLPExporter, telemetry.ExporterHTTP), "OTLP exporter: grpc or http")
	sampleRate := fs.Float64("trace-sample-rate", 1.0, "trace sampling rate (0.0 to 1.0)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	loader := lf.loader(fs, stderr)
	snap, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error%s:\n  %v\n", lf.location(), err)
		return exitError
	}
	holder := config.NewHolder(snap, loader)
	header := render.HeaderOptions{Guard: *guard}

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName:    "dhtnode",
		ServiceVersion: version.Version,
		Commit:         version.Commit,
		Variant:        snap.Variant.ID,
		Exporter:       *otlpExporter,
		Endpoint:       *otlpEndpoint,
		SampleRate:     *sampleRate,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Tracing error: %v\n", err)
		return exitError
	}

	srv := server.New(holder, server.Options{
		Stack: middleware.StackConfig{
			EnableSecurityHeaders: true,
			CSP:                   middleware.DefaultCSP,
			EnableMetrics:         true,
			EnableLogging:         true,
			EnableTracing:         *otlpEndpoint != "",
			ServiceName:           "dhtnode",
			RateLimitRequests:     *rateLimit,
			RateLimitWindow:       time.Minute,
		},
		Header:  header,
		Version: version.Version,
	})

	logger := log.WithComponent("daemon")
	mgr, err := daemon.NewManager(daemon.ServerConfig{
		ListenAddr:      *listen,
		ShutdownTimeout: *shutdownTimeout,
	}, daemon.Deps{Logger: logger, Handler: srv})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	mgr.RegisterShutdownHook("tracing", tracing.Shutdown)

	opts := []daemon.AppOption{daemon.WithHeaderOptions(header)}
	if rf.addr != "" {
		pub, err := publish.New(rf.config())
		if err != nil {
			fmt.Fprintf(stderr, "Redis error: %v\n", err)
			return exitError
		}
		mgr.RegisterShutdownHook("redis", func(context.Context) error { return pub.Close() })
		opts = append(opts, daemon.WithPublisher(pub))
	}

	if err := daemon.NewApp(logger, mgr, holder, opts...).Run(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("config server stopped with error")
		return exitError
	}
	return exitOK
}
