package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/beautifulqr/qrgen/pkg/export"
	"github.com/beautifulqr/qrgen/pkg/qrcode"
	"github.com/beautifulqr/qrgen/pkg/studio"
)

type renderOptions struct {
	params   studio.Params
	format   string
	outDir   string
	terminal bool
}

func parseRenderFlags(args []string) (renderOptions, string, error) {
	defaults := studio.DefaultParams()
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (JSON or YAML)")
	text := fs.String("text", "", "text or URL to encode (default: remaining arguments)")
	size := fs.Int("size", defaults.Size, "raster width in pixels")
	margin := fs.Int("margin", defaults.Margin, "quiet zone in modules")
	level := fs.String("level", defaults.Level.String(), "error correction: L, M, Q or H")
	fg := fs.String("fg", defaults.Foreground, "foreground color")
	bg := fs.String("bg", defaults.Background, "background color")
	format := fs.String("format", "both", "png, svg or both")
	outDir := fs.String("out", ".", "output directory")
	terminal := fs.Bool("terminal", false, "print a preview to the terminal")
	if err := fs.Parse(args); err != nil {
		return renderOptions{}, "", err
	}

	payload := *text
	if payload == "" {
		payload = strings.Join(fs.Args(), " ")
	}
	lvl, err := qrcode.ParseLevel(*level)
	if err != nil {
		return renderOptions{}, "", err
	}
	switch *format {
	case "png", "svg", "both":
	default:
		return renderOptions{}, "", fmt.Errorf("unknown format %q", *format)
	}

	opts := renderOptions{
		params: studio.Params{
			Payload:    payload,
			Size:       *size,
			Margin:     *margin,
			Level:      lvl,
			Foreground: *fg,
			Background: *bg,
		},
		format:   *format,
		outDir:   *outDir,
		terminal: *terminal,
	}
	return opts, *configPath, opts.params.Validate()
}

func renderCommand(args []string) {
	opts, configPath, err := parseRenderFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(2)
	}

	_, encoder, cleanup := setup(configPath)
	defer cleanup()

	paths, err := runRender(context.Background(), encoder, opts)
	if err != nil {
		fmt.Println(err)
		cleanup()
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Printf("✓ Saved %s\n", p)
	}
	if opts.terminal {
		if err := qrcode.Terminal(os.Stdout, opts.params.Normalized(), opts.params.Level); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// runRender drives one store revision through the pipeline and saves the
// requested exports. Errors carry the user-facing message.
func runRender(ctx context.Context, encoder qrcode.Encoder, opts renderOptions) ([]string, error) {
	store := studio.NewStore(opts.params)
	pipeline := studio.NewPipeline(encoder, studio.WithLabel("render"))
	defer pipeline.Close()
	pipeline.Attach(store)

	ctx, cancel := context.WithTimeout(ctx, awaitTimeout)
	defer cancel()
	result, err := store.Await(ctx, store.Revision())
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	var files []*export.File
	if opts.format == "png" || opts.format == "both" {
		f, err := export.Raster(result)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if opts.format == "svg" || opts.format == "both" {
		f, err := export.Vector(result)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		p, err := f.Save(opts.outDir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
