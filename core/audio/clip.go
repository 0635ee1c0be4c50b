package audio

import (
	"sync"
	"time"
)

// Clip is a decoded speech payload held for the duration of a single
// playback. It is the owner-released counterpart of the transient resources
// a playback backend keeps alive while a clip is audible.
//
// Release is safe to call from any exit path; only the first call has any
// effect. Reading Data after Release returns nil.
type Clip struct {
	mu   sync.Mutex
	data []byte

	encodingInfo EncodingInfo

	released  bool
	onRelease func()
}

func NewClip(data []byte, encodingInfo EncodingInfo) *Clip {
	if encodingInfo.IsZero() {
		encodingInfo = GetDefaultEncodingInfo()
	}

	return &Clip{data: data, encodingInfo: encodingInfo}
}

// SetReleaseHook registers a callback invoked when the clip is released.
func (c *Clip) SetReleaseHook(onRelease func()) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRelease = onRelease
}

func (c *Clip) Data() []byte {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	return c.data
}

func (c *Clip) EncodingInfo() EncodingInfo {
	if c == nil {
		return EncodingInfo{}
	}

	return c.encodingInfo
}

func (c *Clip) Duration() time.Duration {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encodingInfo.Duration(c.data)
}

// Release drops the decoded payload. Repeated calls are ignored.
func (c *Clip) Release() {
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.data = nil
	onRelease := c.onRelease
	c.mu.Unlock()

	if onRelease != nil {
		onRelease()
	}
}

// Released reports whether the clip's payload has been dropped.
func (c *Clip) Released() bool {
	if c == nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// PlaybackCallbacks carries the completion callbacks a playback backend
// fires for a single started clip. Backends fire at most one of OnEnded and
// OnError, once, and never after Stop.
type PlaybackCallbacks struct {
	OnEnded func()
	OnError func(error)
}

// Playback is a live view of one started clip.
//
// ReadSamples fills frame with the most recently played time-domain samples,
// normalized to [-1, 1], and reports how many were written.
type Playback interface {
	Stop()
	Playing() bool
	ReadSamples(frame []float64) int
}
