// Package export turns the latest studio result into downloadable files.
package export

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/beautifulqr/qrgen/pkg/logger"
	"github.com/beautifulqr/qrgen/pkg/metrics"
	"github.com/beautifulqr/qrgen/pkg/studio"
)

const (
	RasterName        = "qr-code.png"
	RasterContentType = "image/png"
	VectorName        = "qr-code.svg"
	VectorContentType = "image/svg+xml;charset=utf-8"
)

// ErrNothingToExport means the requested output has not been generated.
// Callers decline silently.
var ErrNothingToExport = errors.New("nothing to export")

type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Raster exports the PNG of r.
func Raster(r studio.Result) (*File, error) {
	if len(r.PNG) == 0 {
		metrics.Exports.WithLabelValues("png", "false").Inc()
		return nil, ErrNothingToExport
	}
	metrics.Exports.WithLabelValues("png", "true").Inc()
	return &File{Name: RasterName, ContentType: RasterContentType, Body: r.PNG}, nil
}

// Vector exports the SVG markup of r.
func Vector(r studio.Result) (*File, error) {
	if r.SVG == "" {
		metrics.Exports.WithLabelValues("svg", "false").Inc()
		return nil, ErrNothingToExport
	}
	metrics.Exports.WithLabelValues("svg", "true").Inc()
	return &File{Name: VectorName, ContentType: VectorContentType, Body: []byte(r.SVG)}, nil
}

// ByFormat dispatches on "png" or "svg".
func ByFormat(format string, r studio.Result) (*File, error) {
	switch format {
	case "png":
		return Raster(r)
	case "svg":
		return Vector(r)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// WriteTo serves f as an attachment.
func (f *File) WriteTo(w http.ResponseWriter) error {
	h := w.Header()
	h.Set("Content-Type", f.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Name))
	h.Set("Content-Length", strconv.Itoa(len(f.Body)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(f.Body)
	return err
}

// Save writes f into dir and returns the full path.
func (f *File) Save(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, f.Name)
	if err := os.WriteFile(path, f.Body, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", f.Name, err)
	}
	logger.InfoCF("export", "Saved file", map[string]interface{}{
		"path":  path,
		"bytes": len(f.Body),
	})
	return path, nil
}
