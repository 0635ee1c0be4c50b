package overlay

import (
	"context"

	"github.com/koscakluka/overlay-core/core/audio"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/texttospeech"
)

type ControllerOption func(*Controller)

// GatewayClient is the transport connection the controller drives. Dial
// opens the connection and routes inbound events to the handler; Emit
// writes acknowledgments back; Close tears the connection down.
type GatewayClient interface {
	Dial(ctx context.Context, handler func(events.Event)) error
	Emit(event events.Event) error
	Close() error
}

// WithGateway configures the factory used to acquire the transport client.
// The factory is invoked at most once per controller, on the first
// [Controller.Connect].
func WithGateway(factory func() GatewayClient) ControllerOption {
	return func(c *Controller) { c.gatewayFactory = factory }
}

// WithTextToSpeech configures the speech generator. Without one, every
// item degrades to its text-only display path.
func WithTextToSpeech(generator texttospeech.Generator) ControllerOption {
	return func(c *Controller) { c.tts = generator }
}

// PlaybackHandle is the controller-side view of one started clip.
type PlaybackHandle = audio.Playback

// ClipPlayer starts playback of decoded clips.
//
// Implementations must deliver callbacks asynchronously (never from inside
// Play) and must stop delivering them once the returned handle is stopped.
type ClipPlayer interface {
	Play(clip *audio.Clip, volume float64, callbacks audio.PlaybackCallbacks) (PlaybackHandle, error)
}

func WithClipPlayer(player ClipPlayer) ControllerOption {
	return func(c *Controller) { c.player = player }
}

// WithTimings overrides the protocol delays. Zero-valued fields are kept at
// their defaults.
func WithTimings(timings Timings) ControllerOption {
	return func(c *Controller) {
		defaults := DefaultTimings()
		if timings.Gap == 0 {
			timings.Gap = defaults.Gap
		}
		if timings.PostAudio == 0 {
			timings.PostAudio = defaults.PostAudio
		}
		if timings.Error == 0 {
			timings.Error = defaults.Error
		}
		if timings.NoTTS == 0 {
			timings.NoTTS = defaults.NoTTS
		}
		if timings.MaxAudio == 0 {
			timings.MaxAudio = defaults.MaxAudio
		}
		if timings.PhaseTransition == 0 {
			timings.PhaseTransition = defaults.PhaseTransition
		}
		if timings.ChatSafety == 0 {
			timings.ChatSafety = defaults.ChatSafety
		}
		c.timings = timings
	}
}

func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithFrameScheduler(frames FrameScheduler) ControllerOption {
	return func(c *Controller) {
		if frames != nil {
			c.frames = frames
		}
	}
}

func WithClipFactory(factory ClipFactory) ControllerOption {
	return func(c *Controller) {
		if factory != nil {
			c.newClip = factory
		}
	}
}

// WithEncodingInfo sets the encoding generated speech payloads arrive in.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) ControllerOption {
	return func(c *Controller) {
		if encodingInfo.IsZero() {
			return
		}
		c.encodingInfo = encodingInfo
	}
}
