package studio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beautifulqr/qrgen/pkg/qrcode"
)

const (
	MinSize   = 160
	MaxSize   = 720
	SizeStep  = 10
	MinMargin = 0
	MaxMargin = 10

	DefaultPayload    = "https://vercel.com"
	DefaultSize       = 320
	DefaultMargin     = 2
	DefaultLevel      = qrcode.M
	DefaultForeground = "#0B1220"
	DefaultBackground = "#FFFFFF"
)

var ErrOutOfRange = errors.New("parameter out of range")

// Params is the user-editable generation snapshot.
type Params struct {
	Payload    string       `json:"payload"`
	Size       int          `json:"size"`
	Margin     int          `json:"margin"`
	Level      qrcode.Level `json:"level"`
	Foreground string       `json:"fg"`
	Background string       `json:"bg"`
}

func DefaultParams() Params {
	return Params{
		Payload:    DefaultPayload,
		Size:       DefaultSize,
		Margin:     DefaultMargin,
		Level:      DefaultLevel,
		Foreground: DefaultForeground,
		Background: DefaultBackground,
	}
}

// Normalized is the payload that actually gets encoded.
func (p Params) Normalized() string {
	return strings.TrimSpace(p.Payload)
}

func (p Params) Options() qrcode.Options {
	return qrcode.Options{
		Text:       p.Normalized(),
		Size:       p.Size,
		Margin:     p.Margin,
		Level:      p.Level,
		Foreground: p.Foreground,
		Background: p.Background,
	}
}

// Validate enforces the bounds of the input controls. The Store never
// calls it; input boundaries (HTTP, WebSocket, CLI) do.
func (p Params) Validate() error {
	if p.Size < MinSize || p.Size > MaxSize || (p.Size-MinSize)%SizeStep != 0 {
		return fmt.Errorf("%w: size %d (want %d..%d, step %d)", ErrOutOfRange, p.Size, MinSize, MaxSize, SizeStep)
	}
	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: margin %d (want %d..%d)", ErrOutOfRange, p.Margin, MinMargin, MaxMargin)
	}
	if !p.Level.Valid() {
		return fmt.Errorf("%w: %d", qrcode.ErrUnknownLevel, int(p.Level))
	}
	if _, err := qrcode.ParseColor(p.Foreground); err != nil {
		return fmt.Errorf("fg: %w", err)
	}
	if _, err := qrcode.ParseColor(p.Background); err != nil {
		return fmt.Errorf("bg: %w", err)
	}
	return nil
}

// Patch changes a subset of Params in one step. Nil fields are left alone.
type Patch struct {
	Payload    *string       `json:"payload,omitempty"`
	Size       *int          `json:"size,omitempty"`
	Margin     *int          `json:"margin,omitempty"`
	Level      *qrcode.Level `json:"level,omitempty"`
	Foreground *string       `json:"fg,omitempty"`
	Background *string       `json:"bg,omitempty"`
}

func (p Params) With(patch Patch) Params {
	if patch.Payload != nil {
		p.Payload = *patch.Payload
	}
	if patch.Size != nil {
		p.Size = *patch.Size
	}
	if patch.Margin != nil {
		p.Margin = *patch.Margin
	}
	if patch.Level != nil {
		p.Level = *patch.Level
	}
	if patch.Foreground != nil {
		p.Foreground = *patch.Foreground
	}
	if patch.Background != nil {
		p.Background = *patch.Background
	}
	return p
}
