package overlay

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/overlay-core/core/audio"
)

func newTestClip() *audio.Clip {
	return audio.NewClip([]byte{0x01, 0x02, 0x03, 0x04}, audio.GetDefaultEncodingInfo())
}

func TestPlaybackManagerNaturalEndFiresOnceAndDisarmsSafety(t *testing.T) {
	player := newFakePlayer()
	clock := &fakeClock{}
	manager := newPlaybackManager(player, clock)

	outcomes := atomic.Int32{}
	if _, err := manager.Start(newTestClip(), 0.8, 30*time.Second, func(bool) {
		outcomes.Add(1)
	}); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	request := <-player.plays
	request.callbacks.OnEnded()
	request.callbacks.OnEnded()
	request.callbacks.OnError(errors.New("late error"))
	clock.Advance(60 * time.Second)

	if got := outcomes.Load(); got != 1 {
		t.Fatalf("expected exactly one completion, got %d", got)
	}
}

func TestPlaybackManagerSafetyTimeoutResolvesCompletion(t *testing.T) {
	player := newFakePlayer()
	clock := &fakeClock{}
	manager := newPlaybackManager(player, clock)

	failures := []bool{}
	if _, err := manager.Start(newTestClip(), 0.8, 30*time.Second, func(failed bool) {
		failures = append(failures, failed)
	}); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	<-player.plays

	clock.Advance(30 * time.Second)

	if len(failures) != 1 || failures[0] {
		t.Fatalf("expected one non-failed completion from the safety timeout, got %v", failures)
	}
}

func TestPlaybackManagerErrorReportsFailure(t *testing.T) {
	player := newFakePlayer()
	manager := newPlaybackManager(player, &fakeClock{})

	failures := []bool{}
	if _, err := manager.Start(newTestClip(), 0.8, 30*time.Second, func(failed bool) {
		failures = append(failures, failed)
	}); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	request := <-player.plays
	request.callbacks.OnError(errors.New("underrun"))

	if len(failures) != 1 || !failures[0] {
		t.Fatalf("expected one failed completion, got %v", failures)
	}
}

func TestPlaybackManagerStopSilencesCallbacksAndReleasesClip(t *testing.T) {
	player := newFakePlayer()
	clock := &fakeClock{}
	manager := newPlaybackManager(player, clock)

	outcomes := atomic.Int32{}
	clip := newTestClip()
	if _, err := manager.Start(clip, 0.8, 30*time.Second, func(bool) {
		outcomes.Add(1)
	}); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	request := <-player.plays

	manager.Stop()
	manager.Stop()

	if request.handle.stops.Load() == 0 {
		t.Fatalf("expected the handle to be stopped")
	}
	if !clip.Released() {
		t.Fatalf("expected the clip to be released on stop")
	}

	request.callbacks.OnEnded()
	clock.Advance(60 * time.Second)
	if got := outcomes.Load(); got != 0 {
		t.Fatalf("expected no completions after stop, got %d", got)
	}
}

func TestPlaybackManagerStartStopsThePreviousClip(t *testing.T) {
	player := newFakePlayer()
	manager := newPlaybackManager(player, &fakeClock{})

	firstClip := newTestClip()
	if _, err := manager.Start(firstClip, 0.8, 30*time.Second, func(bool) {}); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	first := <-player.plays

	if _, err := manager.Start(newTestClip(), 0.8, 30*time.Second, func(bool) {}); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	if first.handle.stops.Load() == 0 {
		t.Fatalf("expected the first handle to be stopped before the second starts")
	}
	if !firstClip.Released() {
		t.Fatalf("expected the first clip to be released before the second starts")
	}
}

func TestPlaybackManagerStartErrorReleasesClip(t *testing.T) {
	player := newFakePlayer()
	player.failNextPlay(errors.New("device busy"))
	manager := newPlaybackManager(player, &fakeClock{})

	clip := newTestClip()
	if _, err := manager.Start(clip, 0.8, 30*time.Second, func(bool) {
		t.Fatalf("expected no completion callback when start fails")
	}); err == nil {
		t.Fatalf("expected a start error")
	}

	if !clip.Released() {
		t.Fatalf("expected the clip to be released when start fails")
	}
}

func TestPlaybackManagerWithoutPlayerRefusesToStart(t *testing.T) {
	manager := newPlaybackManager(nil, &fakeClock{})

	clip := newTestClip()
	if _, err := manager.Start(clip, 0.8, 30*time.Second, func(bool) {}); err == nil {
		t.Fatalf("expected an error when no playback client is configured")
	}
	if !clip.Released() {
		t.Fatalf("expected the clip to be released when no playback client is configured")
	}
}
