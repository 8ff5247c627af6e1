package export

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautifulqr/qrgen/pkg/studio"
)

var ready = studio.Result{PNG: []byte("\x89PNG fake"), SVG: `<svg xmlns="http://www.w3.org/2000/svg"></svg>`, Revision: 3}

func TestRasterAndVector(t *testing.T) {
	f, err := Raster(ready)
	require.NoError(t, err)
	assert.Equal(t, "qr-code.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)
	assert.Equal(t, ready.PNG, f.Body)

	f, err = Vector(ready)
	require.NoError(t, err)
	assert.Equal(t, "qr-code.svg", f.Name)
	assert.Equal(t, "image/svg+xml;charset=utf-8", f.ContentType)
	assert.Equal(t, ready.SVG, string(f.Body))
}

func TestNothingToExport(t *testing.T) {
	for _, r := range []studio.Result{
		{},
		{Error: studio.EmptyInputMessage},
		{Error: studio.EncodingFailureMessage},
	} {
		_, err := Raster(r)
		assert.ErrorIs(t, err, ErrNothingToExport)
		_, err = Vector(r)
		assert.ErrorIs(t, err, ErrNothingToExport)
	}
}

func TestByFormat(t *testing.T) {
	f, err := ByFormat("svg", ready)
	require.NoError(t, err)
	assert.Equal(t, VectorName, f.Name)

	_, err = ByFormat("gif", ready)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNothingToExport)
}

func TestWriteTo(t *testing.T) {
	f, err := Vector(ready)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, f.WriteTo(rec))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml;charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="qr-code.svg"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, ready.SVG, rec.Body.String())
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	f, err := Raster(ready)
	require.NoError(t, err)

	path, err := f.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "qr-code.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ready.PNG, data)
}
