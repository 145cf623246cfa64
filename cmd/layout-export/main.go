// Command layout-export runs the layout pipeline over an entity list and
// writes the display points and connection edges as GeoJSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/internal/config"
	"github.com/signalsfoundry/peerglobe/internal/feed"
	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/model"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "layout-export:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	in          string
	out         string
	configPath  string
	edges       bool
	scanRef     string
	scanTargets string
	logLevel    string
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("layout-export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "-", "Entity JSON file, or - for stdin")
	fs.StringVar(&opts.out, "out", "", "Output GeoJSON file (default stdout)")
	fs.StringVar(&opts.configPath, "config", "", "Optional YAML config supplying layout options")
	fs.BoolVar(&opts.edges, "edges", true, "Include cluster hub and ring edges")
	fs.StringVar(&opts.scanRef, "scan-ref", "", "Scan reference as lat,lon")
	fs.StringVar(&opts.scanTargets, "scan-targets", "", "Comma separated scan target IDs")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level for the summary on stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logging.New(logging.Config{Level: opts.logLevel, Format: "text", Output: stderr})

	layoutOpts := core.DefaultLayoutOptions()
	if opts.configPath != "" {
		cfg, err := config.LoadFromPath(opts.configPath)
		if err != nil {
			return err
		}
		layoutOpts = cfg.LayoutOptions()
	}

	data, err := readInput(opts.in, stdin)
	if err != nil {
		return err
	}
	entities, err := feed.Decode(data)
	if err != nil {
		return err
	}
	result := core.BuildLayout(entities, layoutOpts)

	var scanEdges []model.ConnectionEdge
	if opts.scanRef != "" {
		scan, err := parseScan(opts.scanRef, opts.scanTargets)
		if err != nil {
			return err
		}
		scanEdges = core.ScanEdges(result.Index, scan)
	}

	fc := buildCollection(result, opts.edges, scanEdges)
	body, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if err := writeOutput(opts.out, stdout, body); err != nil {
		return err
	}

	log.Info(ctx, "layout exported",
		logging.Int("input", result.Report.Input),
		logging.Int("kept", result.Report.Kept),
		logging.Int("clusters", len(result.Clusters)),
		logging.Int("features", len(fc.Features)),
	)
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(path string, stdout io.Writer, body []byte) error {
	if path == "" {
		_, err := stdout.Write(append(body, '\n'))
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func parseScan(ref, targets string) (model.ScanPayload, error) {
	lat, lon, ok := strings.Cut(ref, ",")
	if !ok {
		return model.ScanPayload{}, fmt.Errorf("scan-ref %q: want lat,lon", ref)
	}
	var c model.Coordinate
	var err error
	if c.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return model.ScanPayload{}, fmt.Errorf("scan-ref latitude: %w", err)
	}
	if c.Lon, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
		return model.ScanPayload{}, fmt.Errorf("scan-ref longitude: %w", err)
	}
	if !core.ValidCoordinate(c) {
		return model.ScanPayload{}, fmt.Errorf("scan-ref %q out of range", ref)
	}
	scan := model.ScanPayload{Reference: c}
	for _, t := range strings.Split(targets, ",") {
		if t = strings.TrimSpace(t); t != "" {
			scan.Targets = append(scan.Targets, t)
		}
	}
	return scan, nil
}
