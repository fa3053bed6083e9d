package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/covidmap/internal/config"
	"github.com/woozymasta/covidmap/internal/logger"
	"github.com/woozymasta/covidmap/internal/tiles"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"      env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	CacheDir    string `short:"d" long:"cache-dir"   env:"TILES_CACHE_DIR" description:"Tile cache directory (overrides tiles.cache_dir)"`
	Concurrency int    `short:"p" long:"concurrency" env:"CONCURRENCY"    description:"Concurrency" default:"8"`
	ZoomLimit   int    `short:"z" long:"zoom-limit"  env:"ZOOM_LIMIT"     description:"Tiles zoom limit (overrides tiles.zoom_limit)"`
	Force       bool   `short:"f" long:"force"       description:"Force overwrite of existing files"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.CacheDir != "" {
		cfg.Tiles.CacheDir = opts.CacheDir
	}
	if opts.ZoomLimit > 0 {
		cfg.Tiles.ZoomLimit = opts.ZoomLimit
	}
	if !cfg.Tiles.Enabled() {
		log.Fatal().Msg("No tile cache directory: set tiles.cache_dir or --cache-dir")
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("upstream", cfg.Tiles.Upstream).
		Str("dir", cfg.Tiles.CacheDir).
		Int("zoom_limit", cfg.Tiles.ZoomLimit).
		Int("concurrency", opts.Concurrency).
		Msg("Starting loader")

	n, err := tiles.Prefetch(ctx, client, cfg.Tiles.Upstream, cfg.Tiles.CacheDir, cfg.Tiles.ZoomLimit, opts.Concurrency, opts.Force)
	if err != nil {
		log.Fatal().Err(err).Int("tiles", n).Msg("Loader interrupted")
	}

	log.Info().Int("tiles", n).Msg("Loader finished successfully")
}
