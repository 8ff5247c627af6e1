package studio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautifulqr/qrgen/pkg/qrcode"
)

// gatedEncoder blocks encodes of selected payloads until released.
type gatedEncoder struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	fail  map[string]bool
	calls int
}

func newGatedEncoder() *gatedEncoder {
	return &gatedEncoder{gates: map[string]chan struct{}{}, fail: map[string]bool{}}
}

func (e *gatedEncoder) hold(text string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan struct{})
	e.gates[text] = ch
	return ch
}

func (e *gatedEncoder) wait(ctx context.Context, text string) error {
	e.mu.Lock()
	e.calls++
	gate := e.gates[text]
	failing := e.fail[text]
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failing {
		return errors.New("data too large")
	}
	return nil
}

func (e *gatedEncoder) Raster(ctx context.Context, opts qrcode.Options) ([]byte, error) {
	if err := e.wait(ctx, opts.Text); err != nil {
		return nil, err
	}
	return []byte("png:" + opts.Text), nil
}

func (e *gatedEncoder) Vector(ctx context.Context, opts qrcode.Options) (string, error) {
	if err := e.wait(ctx, opts.Text); err != nil {
		return "", err
	}
	return "<svg>" + opts.Text + "</svg>", nil
}

func waitForState(t *testing.T, s *Store, state State, rev uint64) Result {
	t.Helper()
	require.Eventually(t, func() bool {
		r := s.Result()
		return r.State() == state && r.Revision == rev
	}, 2*time.Second, 5*time.Millisecond)
	return s.Result()
}

func TestResultStateIsExclusive(t *testing.T) {
	assert.Equal(t, StatePending, Result{}.State())
	assert.Equal(t, StateReady, Result{PNG: []byte{1}, SVG: "<svg/>"}.State())
	assert.Equal(t, StateError, Result{Error: EmptyInputMessage}.State())

	assert.NoError(t, Result{}.Err())
	assert.ErrorIs(t, Result{Error: EmptyInputMessage}.Err(), ErrEmptyInput)
	assert.ErrorIs(t, Result{Error: EncodingFailureMessage}.Err(), ErrEncodingFailure)

	assert.Equal(t, "", Result{}.PNGDataURL())
	assert.Equal(t, "data:image/png;base64,AQI=", Result{PNG: []byte{1, 2}}.PNGDataURL())
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	cases := map[string]Patch{
		"size below":   {Size: intPtr(150)},
		"size above":   {Size: intPtr(730)},
		"size step":    {Size: intPtr(325)},
		"margin below": {Margin: intPtr(-1)},
		"margin above": {Margin: intPtr(11)},
		"bad fg":       {Foreground: strPtr("navy")},
		"bad bg":       {Background: strPtr("#12")},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, DefaultParams().With(patch).Validate())
		})
	}

	lvl := qrcode.Level(9)
	assert.ErrorIs(t, DefaultParams().With(Patch{Level: &lvl}).Validate(), qrcode.ErrUnknownLevel)
	assert.ErrorIs(t, DefaultParams().With(Patch{Size: intPtr(150)}).Validate(), ErrOutOfRange)

	for _, size := range []int{160, 720} {
		assert.NoError(t, DefaultParams().With(Patch{Size: intPtr(size)}).Validate())
	}
	for _, margin := range []int{0, 10} {
		assert.NoError(t, DefaultParams().With(Patch{Margin: intPtr(margin)}).Validate())
	}
}

func TestStoreRevisions(t *testing.T) {
	s := NewStore(DefaultParams())
	var seen []uint64
	s.OnChange(func(_ Params, rev uint64) { seen = append(seen, rev) })

	assert.False(t, s.SetSize(DefaultSize), "unchanged value is not a change")
	assert.Equal(t, uint64(0), s.Revision())

	assert.True(t, s.SetSize(480))
	assert.True(t, s.SetLevel(qrcode.H))
	assert.True(t, s.Apply(Patch{Payload: strPtr("hello"), Margin: intPtr(4)}))
	assert.Equal(t, uint64(3), s.Revision())

	p := s.Params()
	assert.Equal(t, "hello", p.Payload)
	assert.Equal(t, 4, p.Margin)
	assert.Equal(t, 480, p.Size)

	s.Regenerate()
	assert.Equal(t, uint64(4), s.Revision())
	assert.Equal(t, []uint64{1, 2, 3, 4}, seen)
}

func TestStoreResetColors(t *testing.T) {
	s := NewStore(DefaultParams())
	s.SetForeground("#FF0000")
	s.SetBackground("#00FF0080")
	rev := s.Revision()

	assert.True(t, s.ResetColors())
	assert.Equal(t, rev+1, s.Revision(), "both colors reset as one change")
	assert.Equal(t, DefaultForeground, s.Params().Foreground)
	assert.Equal(t, DefaultBackground, s.Params().Background)
	assert.False(t, s.ResetColors())
}

func TestStoreRefusesStalePublish(t *testing.T) {
	s := NewStore(DefaultParams())
	s.SetPayload("a")

	assert.False(t, s.publish(0, Result{Error: EmptyInputMessage}))
	assert.Equal(t, StatePending, s.Result().State())

	assert.True(t, s.publish(1, Result{PNG: []byte("x"), SVG: "<svg/>"}))
	assert.Equal(t, uint64(1), s.Result().Revision)
}

func TestPipelineReady(t *testing.T) {
	enc := newGatedEncoder()
	s := NewStore(DefaultParams())
	p := NewPipeline(enc)
	defer p.Close()
	p.Attach(s)

	r := waitForState(t, s, StateReady, 0)
	assert.Equal(t, []byte("png:"+DefaultPayload), r.PNG)
	assert.Equal(t, "<svg>"+DefaultPayload+"</svg>", r.SVG)
	assert.Empty(t, r.Error)
}

func TestPipelineEmptyPayload(t *testing.T) {
	enc := newGatedEncoder()
	s := NewStore(DefaultParams())
	p := NewPipeline(enc)
	defer p.Close()
	p.Attach(s)
	waitForState(t, s, StateReady, 0)

	s.SetPayload("   \n\t ")
	r := waitForState(t, s, StateError, 1)
	assert.Equal(t, EmptyInputMessage, r.Error)
	assert.Nil(t, r.PNG)
	assert.Empty(t, r.SVG)
	p.Wait()

	enc.mu.Lock()
	defer enc.mu.Unlock()
	assert.Equal(t, 2, enc.calls, "empty input never reaches the encoder")
}

func TestPipelineTrimsPayload(t *testing.T) {
	enc := newGatedEncoder()
	s := NewStore(DefaultParams().With(Patch{Payload: strPtr("  hi  ")}))
	p := NewPipeline(enc)
	defer p.Close()
	p.Attach(s)

	r := waitForState(t, s, StateReady, 0)
	assert.Equal(t, []byte("png:hi"), r.PNG)
}

func TestPipelineEncodingFailure(t *testing.T) {
	enc := newGatedEncoder()
	enc.fail["too long"] = true
	s := NewStore(DefaultParams())
	p := NewPipeline(enc)
	defer p.Close()
	p.Attach(s)
	waitForState(t, s, StateReady, 0)

	s.SetPayload("too long")
	r := waitForState(t, s, StateError, 1)
	assert.Equal(t, EncodingFailureMessage, r.Error)
	assert.Nil(t, r.PNG)
	assert.Empty(t, r.SVG)

	s.SetPayload("fine")
	waitForState(t, s, StateReady, 2)
}

func TestPipelineDropsSupersededResult(t *testing.T) {
	enc := newGatedEncoder()
	release := enc.hold("first")

	s := NewStore(DefaultParams().With(Patch{Payload: strPtr("first")}))
	var (
		mu        sync.Mutex
		published []Result
	)
	s.Subscribe(func(r Result) {
		mu.Lock()
		published = append(published, r)
		mu.Unlock()
	})

	p := NewPipeline(enc)
	defer p.Close()
	p.Attach(s)
	waitForState(t, s, StatePending, 0)

	s.SetPayload("second")
	waitForState(t, s, StateReady, 1)

	// The older cycle finishes last and must not overwrite the newer result.
	close(release)
	p.Wait()

	r := s.Result()
	assert.Equal(t, uint64(1), r.Revision)
	assert.Equal(t, []byte("png:second"), r.PNG)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, published)
	last := published[len(published)-1]
	assert.Equal(t, uint64(1), last.Revision)
	assert.Equal(t, StateReady, last.State())
	for _, res := range published {
		assert.False(t, res.Revision == 0 && res.State() == StateReady, "stale ready result leaked")
	}
}

func TestPipelineRegenerate(t *testing.T) {
	enc := newGatedEncoder()
	s := NewStore(DefaultParams())
	p := NewPipeline(enc)
	defer p.Close()
	p.Attach(s)
	first := waitForState(t, s, StateReady, 0)

	s.Regenerate()
	second := waitForState(t, s, StateReady, 1)
	assert.Equal(t, first.PNG, second.PNG)
	assert.Equal(t, first.SVG, second.SVG)
}

func TestPipelineCloseStopsPublishing(t *testing.T) {
	enc := newGatedEncoder()
	enc.hold("blocked")
	s := NewStore(DefaultParams().With(Patch{Payload: strPtr("blocked")}))
	p := NewPipeline(enc)
	p.Attach(s)
	waitForState(t, s, StatePending, 0)

	p.Close()
	p.Wait()
	assert.Equal(t, StatePending, s.Result().State())

	s.SetPayload("after close")
	p.Wait()
	assert.Equal(t, StatePending, s.Result().State())
}

func TestPipelineWithRenderer(t *testing.T) {
	s := NewStore(DefaultParams())
	p := NewPipeline(qrcode.NewRenderer(nil), WithLabel("test"))
	defer p.Close()
	p.Attach(s)

	r := waitForState(t, s, StateReady, 0)
	assert.True(t, strings.HasPrefix(string(r.PNG), "\x89PNG"))
	assert.Contains(t, r.SVG, "<svg")

	s.Apply(Patch{Payload: strPtr(strings.Repeat("x", 4000)), Level: levelPtr(qrcode.H)})
	r = waitForState(t, s, StateError, 1)
	assert.Equal(t, EncodingFailureMessage, r.Error)
}

func TestStoreAwait(t *testing.T) {
	enc := newGatedEncoder()
	release := enc.hold("slow")
	s := NewStore(DefaultParams().With(Patch{Payload: strPtr("slow")}))
	p := NewPipeline(enc)
	defer p.Close()
	p.Attach(s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Await(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	r, err := s.Await(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("png:slow"), r.PNG)

	// Already settled: returns immediately.
	r, err = s.Await(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, StateReady, r.State())

	s.SetPayload("")
	r, err = s.Await(context.Background(), 1)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err(), ErrEmptyInput)
}

func TestStoreAwaitSuperseded(t *testing.T) {
	enc := newGatedEncoder()
	enc.hold("first")
	s := NewStore(DefaultParams().With(Patch{Payload: strPtr("first")}))
	p := NewPipeline(enc)
	defer p.Close()
	p.Attach(s)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Await(context.Background(), 0)
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	s.SetPayload("second")

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not return")
	}
}

func intPtr(v int) *int                     { return &v }
func strPtr(v string) *string               { return &v }
func levelPtr(v qrcode.Level) *qrcode.Level { return &v }
