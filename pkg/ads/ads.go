// Package ads renders the optional AdSense loader and ad units.
package ads

import (
	"bytes"
	"html/template"

	"github.com/beautifulqr/qrgen/pkg/config"
	"github.com/beautifulqr/qrgen/pkg/logger"
)

const scriptURL = "https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js"

var (
	scriptTmpl = template.Must(template.New("script").Parse(
		`<script async src="` + scriptURL + `?client={{.}}" crossorigin="anonymous"></script>`))

	unitTmpl = template.Must(template.New("unit").Parse(
		`<ins class="adsbygoogle" style="display:block" data-ad-client="{{.Client}}" data-ad-slot="{{.Slot}}" data-ad-format="{{.Format}}" data-full-width-responsive="true"></ins>` +
			`<script>try { (adsbygoogle = window.adsbygoogle || []).push({}); } catch (e) {}</script>`))
)

// Injector emits ad markup when a publisher client ID is configured and
// nothing otherwise.
type Injector struct {
	cfg config.AdsConfig
}

func New(cfg config.AdsConfig) *Injector {
	if cfg.Format == "" {
		cfg.Format = "auto"
	}
	return &Injector{cfg: cfg}
}

func (i *Injector) Enabled() bool {
	return i != nil && i.cfg.Client != ""
}

// Script is the loader tag for the page head.
func (i *Injector) Script() template.HTML {
	if !i.Enabled() {
		return ""
	}
	return i.render(scriptTmpl, i.cfg.Client)
}

// Unit renders one ad slot. An empty slot falls back to the configured one.
func (i *Injector) Unit(slot string) template.HTML {
	if !i.Enabled() {
		return ""
	}
	cfg := i.cfg
	if slot != "" {
		cfg.Slot = slot
	}
	return i.render(unitTmpl, cfg)
}

func (i *Injector) render(t *template.Template, data interface{}) template.HTML {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		logger.WarnCF("ads", "Failed to render ad markup", map[string]interface{}{
			"template": t.Name(),
			"error":    err.Error(),
		})
		return ""
	}
	return template.HTML(buf.String())
}
