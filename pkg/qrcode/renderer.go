package qrcode

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidMargin = errors.New("margin must not be negative")

// Options are the semantic rendering parameters shared by both outputs.
// Size only affects the raster output.
type Options struct {
	Text       string
	Size       int
	Margin     int
	Level      Level
	Foreground string
	Background string
}

// Encoder produces the two renderings of a QR symbol.
type Encoder interface {
	Raster(ctx context.Context, opts Options) ([]byte, error)
	Vector(ctx context.Context, opts Options) (string, error)
}

// Renderer draws matrices produced by a Backend.
type Renderer struct {
	backend Backend
}

func NewRenderer(backend Backend) *Renderer {
	if backend == nil {
		backend = RSCBackend{}
	}
	return &Renderer{backend: backend}
}

func (r *Renderer) Backend() string {
	return r.backend.Name()
}

// Raster renders a PNG. The image is Size pixels wide unless the symbol and
// its quiet zone need more, in which case each module is four pixels.
func (r *Renderer) Raster(ctx context.Context, opts Options) ([]byte, error) {
	m, fg, bg, err := r.prepare(ctx, opts)
	if err != nil {
		return nil, err
	}
	return renderPNG(m, opts.Margin, opts.Size, fg, bg)
}

// Vector renders an SVG document whose user unit is one module.
func (r *Renderer) Vector(ctx context.Context, opts Options) (string, error) {
	m, fg, bg, err := r.prepare(ctx, opts)
	if err != nil {
		return "", err
	}
	return renderSVG(m, opts.Margin, fg, bg), nil
}

// Matrix exposes the raw module grid for previews and tests.
func (r *Renderer) Matrix(text string, level Level) (*Matrix, error) {
	return r.backend.Encode(text, level)
}

func (r *Renderer) prepare(ctx context.Context, opts Options) (*Matrix, Color, Color, error) {
	if err := ctx.Err(); err != nil {
		return nil, Color{}, Color{}, err
	}
	if opts.Margin < 0 {
		return nil, Color{}, Color{}, fmt.Errorf("%w: %d", ErrInvalidMargin, opts.Margin)
	}
	fg, err := ParseColor(opts.Foreground)
	if err != nil {
		return nil, Color{}, Color{}, fmt.Errorf("foreground: %w", err)
	}
	bg, err := ParseColor(opts.Background)
	if err != nil {
		return nil, Color{}, Color{}, fmt.Errorf("background: %w", err)
	}
	m, err := r.backend.Encode(opts.Text, opts.Level)
	if err != nil {
		return nil, Color{}, Color{}, err
	}
	return m, fg, bg, nil
}
