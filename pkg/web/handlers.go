package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/beautifulqr/qrgen/pkg/config"
	"github.com/beautifulqr/qrgen/pkg/export"
	"github.com/beautifulqr/qrgen/pkg/logger"
	"github.com/beautifulqr/qrgen/pkg/qrcode"
	"github.com/beautifulqr/qrgen/pkg/session"
	"github.com/beautifulqr/qrgen/pkg/studio"
)

var (
	errMissingParams  = errors.New("params message without params")
	errUnknownMessage = errors.New("unknown message type")
)

type pageData struct {
	Site     config.SiteConfig
	AdScript template.HTML
	AdUnit   template.HTML
	Defaults studio.Params
	Levels   []qrcode.Level
	Limits   limits
	Year     int
}

type limits struct {
	MinSize, MaxSize, SizeStep int
	MinMargin, MaxMargin       int
}

func (s *Server) page() pageData {
	return pageData{
		Site:     s.cfg.Site,
		AdScript: s.ads.Script(),
		AdUnit:   s.ads.Unit(""),
		Defaults: studio.DefaultParams(),
		Levels:   qrcode.Levels,
		Limits: limits{
			MinSize:   studio.MinSize,
			MaxSize:   studio.MaxSize,
			SizeStep:  studio.SizeStep,
			MinMargin: studio.MinMargin,
			MaxMargin: studio.MaxMargin,
		},
		Year: time.Now().Year(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "index.html")
}

func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "privacy.html")
}

func (s *Server) renderPage(w http.ResponseWriter, name string) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, s.page()); err != nil {
		logger.ErrorCF("web", "Failed to render page", map[string]interface{}{
			"page":  name,
			"error": err.Error(),
		})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"sessions": s.sessions.Count(),
		"clients":  s.hub.Count(),
		"ads":      s.ads.Enabled(),
	})
}

// handleDownload exports the current result of a live session. Nothing to
// export is answered with 204 and no body.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, err := s.sessions.Get(vars["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, session.ErrNotFound.Error())
		return
	}

	file, err := export.ByFormat(vars["format"], sess.Store.Result())
	if errors.Is(err, export.ErrNothingToExport) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file.WriteTo(w)
}

// handleRender renders a code straight from query parameters.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	params, err := paramsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := params.Options()
	if opts.Text == "" {
		writeError(w, http.StatusBadRequest, studio.EmptyInputMessage)
		return
	}

	var result studio.Result
	format := mux.Vars(r)["format"]
	switch format {
	case "png":
		result.PNG, err = s.encoder.Raster(r.Context(), opts)
	case "svg":
		result.SVG, err = s.encoder.Vector(r.Context(), opts)
	}
	if err != nil {
		logger.WarnCF("web", "Render failed", map[string]interface{}{
			"format":      format,
			"payload_len": len(opts.Text),
			"error":       err.Error(),
		})
		writeError(w, http.StatusUnprocessableEntity, studio.EncodingFailureMessage)
		return
	}

	file, err := export.ByFormat(format, result)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, studio.EncodingFailureMessage)
		return
	}
	if r.URL.Query().Get("download") == "" {
		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Cache-Control", "no-store")
		w.Write(file.Body)
		return
	}
	file.WriteTo(w)
}

func paramsFromQuery(r *http.Request) (studio.Params, error) {
	q := r.URL.Query()
	p := studio.DefaultParams()
	p.Payload = q.Get("text")

	for _, f := range []struct {
		key string
		dst *int
	}{{"size", &p.Size}, {"margin", &p.Margin}} {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid %s: %q", f.key, v)
		}
		*f.dst = n
	}
	if v := q.Get("level"); v != "" {
		lvl, err := qrcode.ParseLevel(v)
		if err != nil {
			return p, err
		}
		p.Level = lvl
	}
	if v := q.Get("fg"); v != "" {
		p.Foreground = v
	}
	if v := q.Get("bg"); v != "" {
		p.Background = v
	}
	return p, p.Validate()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
