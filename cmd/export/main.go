package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/covidmap/internal/config"
	"github.com/woozymasta/covidmap/internal/covid"
	"github.com/woozymasta/covidmap/internal/feature"
	"github.com/woozymasta/covidmap/internal/geo"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	ConfigFile string        `short:"c" long:"config"  description:"Path to configuration file" default:"config.yaml"`
	Input      string        `short:"i" long:"in"      description:"Input file with the upstream JSON array. Fetches the configured endpoint if empty, '-' reads stdin"`
	Output     string        `short:"o" long:"out"     description:"Output file path. Writes to stdout if empty"`
	Format     string        `short:"f" long:"format"  description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Timeout    time.Duration `short:"t" long:"timeout" description:"Fetch timeout" default:"30s"`
	Markers    bool          `short:"m" long:"markers" description:"Attach marker label and popup to every feature"`
	Strict     bool          `short:"s" long:"strict"  description:"Drop records that fail validation"`
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

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	records, err := readRecords(opts, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading records: %v\n", err)
		os.Exit(1)
	}

	var fc geo.FeatureCollection
	if opts.Strict || cfg.Source.Strict {
		var errs []error
		fc, errs = feature.BuildStrict(records)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "Skipping %v\n", e)
		}
	} else {
		fc = feature.Build(records)
	}

	var doc any = fc
	if opts.Markers {
		loc, err := cfg.Display.Location()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timezone: %v\n", err)
			os.Exit(1)
		}
		doc = feature.NewFormatter(loc, cfg.Display.TimeLayout).Markers(fc)
	}

	// marshal
	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = toYAML(doc)
	} else {
		outputData, err = json.MarshalIndent(doc, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully exported %d countries to %s (format: %s)\n", len(fc.Features), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}

func readRecords(opts Options, cfg *config.Config) ([]covid.CountryRecord, error) {
	switch opts.Input {
	case "":
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		return covid.NewClient(cfg.Source.Endpoint, 0).FetchCountries(ctx)
	case "-":
		return covid.Decode(os.Stdin)
	default:
		f, err := os.Open(opts.Input)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return covid.Decode(f)
	}
}

// toYAML re-encodes the JSON form of v so numbers keep their wire text.
func toYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)

	return yaml.Marshal(&node)
}

// blockStyle drops the flow and quoting styles inherited from JSON. The
// encoder still quotes strings that would otherwise read as another type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
