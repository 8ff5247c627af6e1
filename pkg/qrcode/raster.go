package qrcode

import (
	"bytes"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// fallbackScale is the pixels-per-module used when the requested width
// cannot fit the symbol plus its quiet zone.
const fallbackScale = 4

// rasterWidth returns the edge length in pixels of the PNG for a symbol of
// qrSize modules (quiet zone included).
func rasterWidth(qrSize, requested int) int {
	if requested >= qrSize {
		return requested
	}
	return qrSize * fallbackScale
}

func renderPNG(m *Matrix, margin, size int, fg, bg Color) ([]byte, error) {
	qrSize := m.Size + 2*margin

	src := image.NewNRGBA(image.Rect(0, 0, qrSize, qrSize))
	dark, light := fg.NRGBA(), bg.NRGBA()
	for y := 0; y < qrSize; y++ {
		for x := 0; x < qrSize; x++ {
			if m.Dark(x-margin, y-margin) {
				src.SetNRGBA(x, y, dark)
			} else {
				src.SetNRGBA(x, y, light)
			}
		}
	}

	width := rasterWidth(qrSize, size)
	dst := image.NewNRGBA(image.Rect(0, 0, width, width))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
