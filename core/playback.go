package overlay

import (
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/overlay-core/core/audio"
)

// playbackManager owns at most one active clip at a time. Starting a new
// clip stops and releases the previous one first; every exit path releases
// the owned clip exactly once (the clip itself ignores repeat releases, the
// manager never holds two).
type playbackManager struct {
	player ClipPlayer
	clock  Clock

	mu          sync.Mutex
	active      PlaybackHandle
	clip        *audio.Clip
	safetyTimer Timer
	generation  int
}

func newPlaybackManager(player ClipPlayer, clock Clock) *playbackManager {
	return &playbackManager{player: player, clock: clock}
}

// Start begins playback of clip at the given volume. onDone fires exactly
// once per started clip: with failed=false on natural end or on the safety
// timeout, with failed=true on a playback error. It never fires after Stop.
//
// On error the clip is released before returning; the caller owns nothing.
func (m *playbackManager) Start(clip *audio.Clip, volume float64, safetyTimeout time.Duration, onDone func(failed bool)) (PlaybackHandle, error) {
	m.Stop()

	if m.player == nil {
		clip.Release()
		return nil, fmt.Errorf("no playback client configured")
	}

	m.mu.Lock()
	m.generation++
	m.clip = clip
	generation := m.generation
	done := false
	m.mu.Unlock()

	fire := func(failed bool) {
		m.mu.Lock()
		if m.generation != generation || done {
			m.mu.Unlock()
			return
		}
		done = true
		if m.safetyTimer != nil {
			m.safetyTimer.Stop()
			m.safetyTimer = nil
		}
		m.mu.Unlock()

		onDone(failed)
	}

	handle, err := m.player.Play(clip, volume, audio.PlaybackCallbacks{
		OnEnded: func() { fire(false) },
		OnError: func(error) { fire(true) },
	})
	if err != nil {
		m.mu.Lock()
		if m.generation == generation {
			m.clip = nil
		}
		m.mu.Unlock()
		clip.Release()
		return nil, fmt.Errorf("failed to start playback: %w", err)
	}

	m.mu.Lock()
	m.active = handle
	m.safetyTimer = m.clock.AfterFunc(safetyTimeout, func() { fire(false) })
	m.mu.Unlock()

	return handle, nil
}

// Stop halts the active clip, disarms its safety timeout, and releases the
// clip. Safe to call when nothing is active, and safe to call repeatedly.
func (m *playbackManager) Stop() {
	m.mu.Lock()
	m.generation++
	timer := m.safetyTimer
	m.safetyTimer = nil
	handle := m.active
	m.active = nil
	clip := m.clip
	m.clip = nil
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if handle != nil {
		handle.Stop()
	}
	if clip != nil {
		clip.Release()
	}
}
