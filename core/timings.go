package overlay

import "time"

// Timings holds every delay the sequencing protocol uses. The defaults are
// load-bearing: overlays built against different values drift out of sync
// with gateways that assume them, so override only for tests.
type Timings struct {
	// Gap is the idle pause between finishing one item and starting the next.
	Gap time.Duration
	// PostAudio is the linger after a clip plays to natural completion.
	PostAudio time.Duration
	// Error is the linger after a playback failure.
	Error time.Duration
	// NoTTS is how long an item stays displayed when no speech is available.
	NoTTS time.Duration
	// MaxAudio bounds how long a single clip may play before the item is
	// forced to completion.
	MaxAudio time.Duration
	// PhaseTransition is the pause between the chat and response phases of
	// a reply turn.
	PhaseTransition time.Duration
	// ChatSafety bounds the chat phase of a reply turn.
	ChatSafety time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		Gap:             1500 * time.Millisecond,
		PostAudio:       1500 * time.Millisecond,
		Error:           3000 * time.Millisecond,
		NoTTS:           3000 * time.Millisecond,
		MaxAudio:        30000 * time.Millisecond,
		PhaseTransition: 500 * time.Millisecond,
		ChatSafety:      15000 * time.Millisecond,
	}
}

const (
	defaultVolume = 0.8
	tiktokVolume  = 0.7
)

// volumeForProvider maps a TTS provider name to its playback volume.
// TikTok clips are mastered hot relative to the other providers and get a
// lower gain; everything else, including an empty provider, uses the
// default.
func volumeForProvider(provider string) float64 {
	if provider == "tiktok" {
		return tiktokVolume
	}
	return defaultVolume
}
