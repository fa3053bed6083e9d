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

	"github.com/woozymasta/covidmap/internal/config"
	"github.com/woozymasta/covidmap/internal/covid"
	"github.com/woozymasta/covidmap/internal/feature"
	"github.com/woozymasta/covidmap/internal/logger"
	"github.com/woozymasta/covidmap/internal/metrics"
	"github.com/woozymasta/covidmap/internal/server"
	"github.com/woozymasta/covidmap/internal/tiles"
	"github.com/woozymasta/covidmap/internal/tracker"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile      string        `short:"c" long:"config"           env:"CONFIG_FILE"      description:"Path to configuration file" default:"config.yaml"`
	Addr            string        `short:"a" long:"addr"             env:"LISTEN_ADDRESS"   description:"Address to listen on"       default:"0.0.0.0"`
	Port            int           `short:"p" long:"port"             env:"LISTEN_PORT"      description:"Port to listen on"          default:"8080"`
	Endpoint        string        `short:"e" long:"endpoint"         env:"SOURCE_ENDPOINT"  description:"Override case-count endpoint URL"`
	ShutdownTimeout time.Duration `long:"shutdown-timeout"           env:"SHUTDOWN_TIMEOUT" description:"Graceful shutdown timeout"  default:"10s"`
}

func main() {
	// .env is optional, real environment variables take precedence
	envErr := godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("Failed to read .env file")
	}

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Endpoint != "" {
		cfg.Source.Endpoint = opts.Endpoint
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Invalid endpoint override")
		}
	}

	loc, err := cfg.Display.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load timezone")
	}

	m := metrics.New()
	client := covid.NewClient(cfg.Source.Endpoint, cfg.Source.Timeout)
	svc := tracker.New(
		client,
		feature.NewFormatter(loc, cfg.Display.TimeLayout),
		m,
		tracker.WithCache(cfg.Source.CacheTTL),
		tracker.WithStrict(cfg.Source.Strict),
	)

	var tileHandler http.Handler
	if cfg.Tiles.Enabled() {
		tileHandler = tiles.NewProxy(nil, cfg.Tiles.Upstream, cfg.Tiles.CacheDir, cfg.Tiles.ZoomLimit, m)
	}

	srvCtx, err := server.NewServerContext(cfg, svc, tileHandler)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", listenAddr).
			Str("endpoint", cfg.Source.Endpoint).
			Dur("cache_ttl", cfg.Source.CacheTTL).
			Msg("Web server started")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
