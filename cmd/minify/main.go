package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/woozymasta/covidmap/internal/config"
	"github.com/woozymasta/covidmap/internal/page"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	ConfigFile string `short:"c" long:"config" description:"Path to configuration file" default:"config.yaml"`
	OutDir     string `short:"o" long:"out"    description:"Output directory for index.html and favicon.svg" default:"dist"`
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

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "minify:", err)
		os.Exit(1)
	}

	fmt.Println("minify done")
}

func run(opts Options) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	index, err := page.Render(cfg)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	favicon, err := page.Favicon()
	if err != nil {
		return fmt.Errorf("minify favicon: %w", err)
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(opts.OutDir, "index.html"), index, 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(opts.OutDir, "favicon.svg"), favicon, 0644)
}
