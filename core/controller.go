package overlay

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/overlay-core/core/audio"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/texttospeech"
)

// Controller serializes an unordered stream of speech-bearing events into a
// single ordered playback timeline. Exactly one item is presented at a time;
// everything else waits in the queue. All failure modes resolve into the
// same finish-and-advance path, so the queue never stalls.
type Controller struct {
	gatewayFactory func() GatewayClient
	tts            texttospeech.Generator
	player         ClipPlayer
	timings        Timings
	clock          Clock
	frames         FrameScheduler
	newClip        ClipFactory
	encodingInfo   audio.EncodingInfo

	store    *snapshotStore
	playback *playbackManager
	analyzer *amplitudeAnalyzer

	baseContext context.Context

	mu         sync.Mutex
	queue      itemQueue
	gateway    GatewayClient
	connected  bool
	destroyed  bool
	processing bool
	// epoch identifies the item currently being processed. Continuations
	// captured for an earlier epoch are stale and discard themselves.
	epoch      int
	delayTimer Timer
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		timings:      DefaultTimings(),
		clock:        systemClock{},
		frames:       systemFrameScheduler{},
		newClip:      defaultClipFactory,
		encodingInfo: audio.GetDefaultEncodingInfo(),
		baseContext:  context.Background(),
		store:        newSnapshotStore(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.playback = newPlaybackManager(c.player, c.clock)
	c.analyzer = newAmplitudeAnalyzer(c.frames, c.store.PublishAmplitude)

	return c
}

// Connect acquires the transport client and binds its event stream to the
// controller. It is idempotent: exactly one client is ever created, and a
// second call while connected does nothing. A no-op after [Controller.Destroy].
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed || c.connected {
		c.mu.Unlock()
		return nil
	}

	if c.gatewayFactory == nil {
		c.mu.Unlock()
		return fmt.Errorf("no gateway client configured")
	}

	gateway := c.gatewayFactory()
	c.gateway = gateway
	c.connected = true
	c.baseContext = ctx
	c.mu.Unlock()

	if err := gateway.Dial(ctx, c.handleEvent); err != nil {
		c.mu.Lock()
		c.gateway = nil
		c.connected = false
		c.mu.Unlock()
		return fmt.Errorf("failed to connect to gateway: %w", err)
	}

	return nil
}

// Enqueue appends an item to the playback timeline. If nothing is currently
// processing the item begins immediately, with its display state applied
// before Enqueue returns. A no-op after [Controller.Destroy].
func (c *Controller) Enqueue(item QueueItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed || item == nil {
		return
	}

	c.queue.Push(item)
	if c.processing {
		queueLength := c.queue.Len()
		c.store.Apply(func(snapshot *Snapshot) { snapshot.QueueLength = queueLength })
		return
	}

	c.processNextLocked()
}

// SetStatus sets the avatar's activity state directly, bypassing the queue.
func (c *Controller) SetStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}
	c.store.Apply(func(snapshot *Snapshot) { snapshot.Status = status })
}

// SetShowAll toggles the full-scene display flag.
func (c *Controller) SetShowAll(showAll bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}
	c.store.Apply(func(snapshot *Snapshot) { snapshot.ShowAll = showAll })
}

// Destroy tears the controller down: pending timers are cancelled, active
// audio is stopped and released, the analyzer is detached, the transport
// client is closed, the queue is emptied, and the snapshot returns to its
// initial values. Terminal: every call on the controller afterward is a
// no-op.
func (c *Controller) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}

	c.destroyed = true
	c.epoch++
	c.processing = false
	c.clearTimerLocked()
	c.queue.Clear()
	gateway := c.gateway
	c.gateway = nil
	c.mu.Unlock()

	c.analyzer.Detach()
	c.playback.Stop()

	if gateway != nil {
		if err := gateway.Close(); err != nil {
			logger.Error("failed to close gateway client", "error", err)
		}
	}

	c.store.Reset()
}

// Snapshot returns the current display state. The returned pointer is
// identity stable: it changes only when a field changed.
func (c *Controller) Snapshot() *Snapshot {
	return c.store.Snapshot()
}

// Subscribe registers a display-state listener. Listeners run synchronously
// on the mutating goroutine and must not call back into the controller.
func (c *Controller) Subscribe(listener func(*Snapshot)) (unsubscribe func()) {
	return c.store.Subscribe(listener)
}

// Amplitude returns the current loudness scalar in [0, 1].
func (c *Controller) Amplitude() float64 {
	return c.store.Amplitude()
}

// SubscribeAmplitude registers a loudness listener. Amplitude updates at
// rendering-frame cadence and never wakes snapshot subscribers.
func (c *Controller) SubscribeAmplitude(listener func(float64)) (unsubscribe func()) {
	return c.store.SubscribeAmplitude(listener)
}

func (c *Controller) handleEvent(event events.Event) {
	switch event := event.(type) {
	case events.Connected:
		c.setConnected(true)
	case events.Disconnected:
		c.setConnected(false)
	case events.StatusChanged:
		c.SetStatus(Status(event.Status))
	case events.TalkRequested:
		c.Enqueue(TalkItem{ID: event.ID, Text: event.Message})
	case events.ReplyTurnRequested:
		c.Enqueue(ReplyTurnItem{
			ID: event.ID,
			Turn: ReplyTurn{
				ChatUsername: event.ChatUsername,
				ChatMessage:  event.ChatMessage,
				BotMessage:   event.BotMessage,
			},
		})
	default:
		logger.Debug("ignoring unhandled gateway event", "kind", string(event.Kind()))
	}
}

func (c *Controller) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}
	c.store.Apply(func(snapshot *Snapshot) { snapshot.Connected = connected })
}
