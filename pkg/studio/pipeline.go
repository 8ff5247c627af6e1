package studio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/beautifulqr/qrgen/pkg/logger"
	"github.com/beautifulqr/qrgen/pkg/metrics"
	"github.com/beautifulqr/qrgen/pkg/qrcode"
)

// Pipeline turns parameter changes into published results. Each revision
// gets its own cycle; cycles are never cancelled by newer ones, their
// results are simply refused by the Store once stale.
type Pipeline struct {
	encoder qrcode.Encoder
	label   string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Pipeline)

// WithLabel tags log lines of this pipeline, typically with a session ID.
func WithLabel(label string) Option {
	return func(p *Pipeline) { p.label = label }
}

func NewPipeline(encoder qrcode.Encoder, opts ...Option) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		encoder: encoder,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Attach subscribes the pipeline to store changes and starts a cycle for the
// store's current revision.
func (p *Pipeline) Attach(s *Store) {
	s.OnChange(func(params Params, rev uint64) {
		p.trigger(s, params, rev)
	})
	params, rev := s.snapshot()
	p.trigger(s, params, rev)
}

// Close stops publishing. In-flight encodes see a cancelled context.
func (p *Pipeline) Close() {
	p.cancel()
}

// Wait blocks until every started cycle has returned.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) trigger(s *Store, params Params, rev uint64) {
	if p.ctx.Err() != nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.cycle(s, params, rev)
	}()
}

func (p *Pipeline) cycle(s *Store, params Params, rev uint64) {
	opts := params.Options()
	if opts.Text == "" {
		p.finish(s, rev, Result{Error: EmptyInputMessage}, "empty_input")
		return
	}

	// Clear the previous outputs while this revision is encoding.
	if !p.finish(s, rev, Result{}, "") {
		return
	}

	var (
		png []byte
		svg string
	)
	g, ctx := errgroup.WithContext(p.ctx)
	g.Go(func() error {
		start := time.Now()
		b, err := p.encoder.Raster(ctx, opts)
		metrics.EncodeDuration.WithLabelValues("png").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("raster: %w", err)
		}
		png = b
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		out, err := p.encoder.Vector(ctx, opts)
		metrics.EncodeDuration.WithLabelValues("svg").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("vector: %w", err)
		}
		svg = out
		return nil
	})

	if err := g.Wait(); err != nil {
		if p.ctx.Err() != nil {
			return
		}
		// The payload itself is never logged.
		logger.WarnCF("studio", "Encoding failed", map[string]interface{}{
			"session":     p.label,
			"revision":    rev,
			"payload_len": len(opts.Text),
			"level":       opts.Level.String(),
			"error":       err.Error(),
		})
		p.finish(s, rev, Result{Error: EncodingFailureMessage}, "encoding_failure")
		return
	}
	p.finish(s, rev, Result{PNG: png, SVG: svg}, "ready")
}

// finish publishes res for rev. An empty outcome marks the transient
// pending publish, which is not counted as a finished cycle.
func (p *Pipeline) finish(s *Store, rev uint64, res Result, outcome string) bool {
	if p.ctx.Err() != nil {
		return false
	}
	if !s.publish(rev, res) {
		metrics.SupersededCycles.Inc()
		logger.DebugCF("studio", "Dropped stale result", map[string]interface{}{
			"session":  p.label,
			"revision": rev,
		})
		return false
	}
	if outcome != "" {
		metrics.GenerationCycles.WithLabelValues(outcome).Inc()
	}
	return true
}
