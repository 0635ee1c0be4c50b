package overlay

import (
	"time"

	"github.com/koscakluka/overlay-core/core/audio"
)

// Timer is a single armed delay that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks. The system clock is the default; tests
// substitute a manual one to drive the protocol deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// frameInterval approximates a 60Hz rendering cadence.
const frameInterval = 16 * time.Millisecond

// FrameScheduler runs a callback on the next rendering frame. Schedule is
// one-shot: the callback reschedules itself for as long as it wants to run.
type FrameScheduler interface {
	Schedule(frame func()) (cancel func())
}

type systemFrameScheduler struct{}

func (systemFrameScheduler) Schedule(frame func()) (cancel func()) {
	timer := time.AfterFunc(frameInterval, frame)
	return func() { timer.Stop() }
}

// ClipFactory decodes a generated speech payload into a playable clip.
type ClipFactory func(payload []byte, encodingInfo audio.EncodingInfo) *audio.Clip

func defaultClipFactory(payload []byte, encodingInfo audio.EncodingInfo) *audio.Clip {
	return audio.NewClip(payload, encodingInfo)
}
