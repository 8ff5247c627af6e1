package qrcode

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var ErrInvalidColor = errors.New("invalid hex color")

// Color is a parsed #RGB, #RGBA, #RRGGBB or #RRGGBBAA value. Hex keeps the
// six-digit form without alpha, as written in SVG attributes.
type Color struct {
	R, G, B, A uint8
	Hex        string
}

func ParseColor(s string) (Color, error) {
	code := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(code) {
	case 3, 4:
		var b strings.Builder
		for _, c := range code {
			b.WriteRune(c)
			b.WriteRune(c)
		}
		code = b.String()
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if len(code) == 6 {
		code += "FF"
	}

	v, err := strconv.ParseUint(code, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	return Color{
		R:   uint8(v >> 24),
		G:   uint8(v >> 16),
		B:   uint8(v >> 8),
		A:   uint8(v),
		Hex: "#" + code[:6],
	}, nil
}

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// svgAttr renders attr="#rrggbb" plus attr-opacity when not fully opaque.
func (c Color) svgAttr(attr string) string {
	s := attr + `="` + c.Hex + `"`
	if c.A < 255 {
		opacity := fmt.Sprintf("%.2f", float64(c.A)/255)
		s += " " + attr + `-opacity="` + opacity[1:] + `"`
	}
	return s
}
