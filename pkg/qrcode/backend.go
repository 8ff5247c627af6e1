package qrcode

import (
	"fmt"
	"strings"

	skip2 "github.com/skip2/go-qrcode"
	"rsc.io/qr"
)

// Matrix is a square grid of QR modules without quiet zone.
type Matrix struct {
	Size int
	dark []bool
}

func newMatrix(size int) *Matrix {
	return &Matrix{Size: size, dark: make([]bool, size*size)}
}

// Dark reports whether the module at column x, row y is set. Coordinates
// outside the symbol are light.
func (m *Matrix) Dark(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Size || y >= m.Size {
		return false
	}
	return m.dark[y*m.Size+x]
}

func (m *Matrix) set(x, y int, v bool) {
	m.dark[y*m.Size+x] = v
}

// Backend turns text into a module matrix. Implementations own the QR
// standard: mode selection, version sizing and error correction.
type Backend interface {
	Name() string
	Encode(text string, level Level) (*Matrix, error)
}

// NewBackend returns the backend registered under name ("rsc" or "skip2").
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rsc":
		return RSCBackend{}, nil
	case "skip2":
		return Skip2Backend{}, nil
	default:
		return nil, fmt.Errorf("unsupported QR backend: %s (supported: rsc, skip2)", name)
	}
}

// RSCBackend encodes with rsc.io/qr, which supports all four levels.
type RSCBackend struct{}

func (RSCBackend) Name() string { return "rsc" }

func (RSCBackend) Encode(text string, level Level) (*Matrix, error) {
	rl, err := level.rsc()
	if err != nil {
		return nil, err
	}
	code, err := qr.Encode(text, rl)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}
	if code.Size == 0 {
		return nil, fmt.Errorf("empty QR code")
	}

	m := newMatrix(code.Size)
	for y := 0; y < code.Size; y++ {
		for x := 0; x < code.Size; x++ {
			m.set(x, y, code.Black(x, y))
		}
	}
	return m, nil
}

func (l Level) rsc() (qr.Level, error) {
	switch l {
	case L:
		return qr.L, nil
	case M:
		return qr.M, nil
	case Q:
		return qr.Q, nil
	case H:
		return qr.H, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownLevel, int(l))
	}
}

// Skip2Backend encodes with github.com/skip2/go-qrcode. Its four recovery
// tiers map one to one onto L, M, Q and H.
type Skip2Backend struct{}

func (Skip2Backend) Name() string { return "skip2" }

func (Skip2Backend) Encode(text string, level Level) (*Matrix, error) {
	var rl skip2.RecoveryLevel
	switch level {
	case L:
		rl = skip2.Low
	case M:
		rl = skip2.Medium
	case Q:
		rl = skip2.High
	case H:
		rl = skip2.Highest
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, int(level))
	}

	code, err := skip2.New(text, rl)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}
	code.DisableBorder = true

	bitmap := code.Bitmap()
	n := len(bitmap)
	if n == 0 {
		return nil, fmt.Errorf("empty QR code")
	}

	m := newMatrix(n)
	for y, row := range bitmap {
		for x, dark := range row {
			m.set(x, y, dark)
		}
	}
	return m, nil
}
