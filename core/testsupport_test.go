package overlay

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/overlay-core/core/audio"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/texttospeech"
)

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Duration
	f        func()
	fired    bool
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock is a manually advanced clock. Advance fires due timers in
// deadline order, on the advancing goroutine, before it returns.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{clock: c, deadline: c.now + d, f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d

	for {
		var next *fakeTimer
		for _, timer := range c.timers {
			if timer.fired || timer.stopped || timer.deadline > target {
				continue
			}
			if next == nil || timer.deadline < next.deadline {
				next = timer
			}
		}
		if next == nil {
			break
		}

		c.now = next.deadline
		next.fired = true
		f := next.f
		c.mu.Unlock()
		f()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := 0
	for _, timer := range c.timers {
		if !timer.fired && !timer.stopped {
			pending++
		}
	}
	return pending
}

type frameEntry struct {
	frame     func()
	cancelled bool
}

// fakeFrames is a manually stepped frame scheduler.
type fakeFrames struct {
	mu      sync.Mutex
	pending []*frameEntry
}

func (f *fakeFrames) Schedule(frame func()) (cancel func()) {
	entry := &frameEntry{frame: frame}

	f.mu.Lock()
	f.pending = append(f.pending, entry)
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		entry.cancelled = true
		f.mu.Unlock()
	}
}

// Step runs every frame callback scheduled before the call.
func (f *fakeFrames) Step() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, entry := range pending {
		f.mu.Lock()
		cancelled := entry.cancelled
		f.mu.Unlock()
		if !cancelled {
			entry.frame()
		}
	}
}

type ttsCall struct {
	Text string
	Role texttospeech.Role
}

// fakeTTS records generation requests and answers them through a scripted
// generate function. The zero script means "no speech available".
type fakeTTS struct {
	mu       sync.Mutex
	calls    []ttsCall
	generate func(text string, role texttospeech.Role) (*texttospeech.Speech, error)
}

func (f *fakeTTS) GenerateSpeech(_ context.Context, text string, role texttospeech.Role) (*texttospeech.Speech, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ttsCall{Text: text, Role: role})
	generate := f.generate
	f.mu.Unlock()

	if generate == nil {
		return nil, nil
	}
	return generate(text, role)
}

func (f *fakeTTS) recordedCalls() []ttsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ttsCall(nil), f.calls...)
}

type fakeHandle struct {
	mu      sync.Mutex
	playing bool
	samples []float64
	stops   atomic.Int32
}

func (h *fakeHandle) Stop() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
	h.stops.Add(1)
}

func (h *fakeHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *fakeHandle) ReadSamples(frame []float64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copy(frame, h.samples)
}

type playRequest struct {
	clip      *audio.Clip
	volume    float64
	callbacks audio.PlaybackCallbacks
	handle    *fakeHandle
}

// fakePlayer hands every started clip to the test through a channel.
type fakePlayer struct {
	mu      sync.Mutex
	playErr error
	plays   chan *playRequest
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{plays: make(chan *playRequest, 8)}
}

func (p *fakePlayer) failNextPlay(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playErr = err
}

func (p *fakePlayer) Play(clip *audio.Clip, volume float64, callbacks audio.PlaybackCallbacks) (PlaybackHandle, error) {
	p.mu.Lock()
	err := p.playErr
	p.playErr = nil
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	handle := &fakeHandle{playing: true}
	p.plays <- &playRequest{clip: clip, volume: volume, callbacks: callbacks, handle: handle}
	return handle, nil
}

// fakeGateway captures the bound event handler and every emitted event.
type fakeGateway struct {
	mu      sync.Mutex
	handler func(events.Event)
	emitted []events.Event
	closes  atomic.Int32
}

func (g *fakeGateway) Dial(_ context.Context, handler func(events.Event)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = handler
	return nil
}

func (g *fakeGateway) Emit(event events.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emitted = append(g.emitted, event)
	return nil
}

func (g *fakeGateway) Close() error {
	g.closes.Add(1)
	return nil
}

func (g *fakeGateway) receive(event events.Event) {
	g.mu.Lock()
	handler := g.handler
	g.mu.Unlock()
	if handler != nil {
		handler(event)
	}
}

func (g *fakeGateway) emittedEvents() []events.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]events.Event(nil), g.emitted...)
}

type controllerHarness struct {
	controller *Controller
	clock      *fakeClock
	frames     *fakeFrames
	tts        *fakeTTS
	player     *fakePlayer
	gateway    *fakeGateway
}

func newControllerHarness(t *testing.T) *controllerHarness {
	t.Helper()

	h := &controllerHarness{
		clock:   &fakeClock{},
		frames:  &fakeFrames{},
		tts:     &fakeTTS{},
		player:  newFakePlayer(),
		gateway: &fakeGateway{},
	}

	h.controller = NewController(
		WithGateway(func() GatewayClient { return h.gateway }),
		WithTextToSpeech(h.tts),
		WithClipPlayer(h.player),
		WithClock(h.clock),
		WithFrameScheduler(h.frames),
	)
	t.Cleanup(h.controller.Destroy)

	if err := h.controller.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}

	return h
}

func (h *controllerHarness) waitForPlay(t *testing.T) *playRequest {
	t.Helper()

	select {
	case request := <-h.player.plays:
		return request
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for playback to start")
		return nil
	}
}

// waitForTimer blocks until the protocol has at least one armed delay, so
// the test can advance the clock without racing the item goroutine.
func (h *controllerHarness) waitForTimer(t *testing.T) {
	t.Helper()
	waitUntil(t, "a protocol timer to be armed", func() bool {
		return h.clock.pendingTimers() > 0
	})
}

func waitUntil(t *testing.T, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}

func speechResult(provider string) func(string, texttospeech.Role) (*texttospeech.Speech, error) {
	return func(string, texttospeech.Role) (*texttospeech.Speech, error) {
		return &texttospeech.Speech{Audio: []byte{0x01, 0x02, 0x03, 0x04}, Provider: provider}, nil
	}
}
