package overlay

import (
	"math"
	"sync"
)

const (
	// amplitudeWindowSize is how many time-domain samples feed one loudness
	// reading.
	amplitudeWindowSize = 1024
	// amplitudeGain compensates for the soft raw amplitude of compressed
	// TTS speech so mouth motion stays visually legible.
	amplitudeGain = 3.0
)

// sampleSource is what the analyzer needs from a playback handle.
type sampleSource interface {
	Playing() bool
	ReadSamples(frame []float64) int
}

// amplitudeAnalyzer samples the attached source once per rendering frame
// and publishes a loudness scalar in [0, 1]. Only one source may feed the
// analyzer at a time; attaching a new one disconnects the previous source
// first.
//
// The loop stays scheduled while a source is attached and publishes 0
// whenever the source is not playing, so playback that restarts on the
// same source picks the signal back up without rewiring.
type amplitudeAnalyzer struct {
	frames  FrameScheduler
	publish func(amplitude float64)

	mu     sync.Mutex
	source sampleSource
	cancel func()

	window []float64
}

func newAmplitudeAnalyzer(frames FrameScheduler, publish func(amplitude float64)) *amplitudeAnalyzer {
	return &amplitudeAnalyzer{
		frames:  frames,
		publish: publish,
		window:  make([]float64, amplitudeWindowSize),
	}
}

// Attach connects the analyzer to a source and starts the sampling loop.
func (a *amplitudeAnalyzer) Attach(source sampleSource) {
	if a == nil || source == nil {
		return
	}

	a.Detach()

	a.mu.Lock()
	a.source = source
	a.cancel = a.frames.Schedule(a.step)
	a.mu.Unlock()
}

// Detach stops the sampling loop and resets the published amplitude.
// Safe to call when nothing is attached.
func (a *amplitudeAnalyzer) Detach() {
	if a == nil {
		return
	}

	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	detached := a.source != nil
	a.source = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if detached {
		a.publish(0)
	}
}

func (a *amplitudeAnalyzer) step() {
	// The window buffer is shared across steps, so the whole read/compute
	// sequence stays under the lock; Attach replacing the source mid-step
	// must not scribble over an in-flight reading.
	a.mu.Lock()
	source := a.source
	if source == nil {
		a.mu.Unlock()
		return
	}

	amplitude := 0.0
	if source.Playing() {
		if sampleCount := source.ReadSamples(a.window); sampleCount > 0 {
			amplitude = math.Min(1, rootMeanSquare(a.window[:sampleCount])*amplitudeGain)
		}
	}

	current := a.source == source
	if current {
		a.cancel = a.frames.Schedule(a.step)
	}
	a.mu.Unlock()

	if current {
		a.publish(amplitude)
	}
}

// rootMeanSquare expects samples already normalized to [-1, 1].
func rootMeanSquare(samples []float64) float64 {
	sum := 0.0
	for _, sample := range samples {
		sum += sample * sample
	}
	return math.Sqrt(sum / float64(len(samples)))
}
