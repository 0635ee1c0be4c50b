package overlay

import (
	"context"
	"fmt"
	"time"

	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// processNextLocked shifts the next queued item and starts its protocol.
// The item's display state is applied before this returns, so callers (and
// their callers, down to Enqueue) observe the new item synchronously. Only
// the TTS and playback phases run asynchronously.
//
// Caller must hold c.mu.
func (c *Controller) processNextLocked() {
	if c.destroyed || c.processing {
		return
	}

	item := c.queue.Shift()
	if item == nil {
		return
	}

	c.processing = true
	c.epoch++
	epoch := c.epoch
	queueLength := c.queue.Len()
	ctx := c.baseContext

	switch item := item.(type) {
	case TalkItem:
		c.store.Apply(func(snapshot *Snapshot) {
			snapshot.CurrentMessage = &Message{Text: item.Text}
			snapshot.CurrentTurn = nil
			snapshot.TurnPhase = TurnPhaseIdle
			snapshot.QueueLength = queueLength
		})
		go c.runTalkItem(ctx, item, epoch)
	case ReplyTurnItem:
		turn := item.Turn
		c.store.Apply(func(snapshot *Snapshot) {
			snapshot.CurrentTurn = &turn
			snapshot.CurrentMessage = nil
			snapshot.TurnPhase = TurnPhaseChat
			snapshot.QueueLength = queueLength
		})
		go c.runReplyTurnItem(ctx, item, epoch)
	}
}

func (c *Controller) runTalkItem(ctx context.Context, item TalkItem, epoch int) {
	speech := c.generateSpeech(ctx, item.Text, texttospeech.RoleBot)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staleLocked(epoch) {
		return
	}

	if speech == nil {
		c.armTimerLocked(c.timings.NoTTS, func() { c.finish(item.ID, epoch) })
		return
	}

	c.playSpeechLocked(ctx, speech, epoch, c.timings.MaxAudio, func(failed bool) {
		delay := c.timings.PostAudio
		if failed {
			delay = c.timings.Error
		}
		c.armTimerLocked(delay, func() { c.finish(item.ID, epoch) })
	})
}

func (c *Controller) runReplyTurnItem(ctx context.Context, item ReplyTurnItem, epoch int) {
	// The two generations are issued together; neither blocks the other.
	// The chat result gates the chat phase, the bot result is collected
	// whenever the response phase is reached.
	chatSpeech := make(chan *texttospeech.Speech, 1)
	botSpeech := make(chan *texttospeech.Speech, 1)
	go func() {
		chatSpeech <- c.generateSpeech(ctx, item.Turn.ChatMessage, texttospeech.RoleChat)
	}()
	go func() {
		botSpeech <- c.generateSpeech(ctx, item.Turn.BotMessage, texttospeech.RoleBot)
	}()

	speech := <-chatSpeech

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staleLocked(epoch) {
		return
	}

	if speech == nil {
		c.enterResponsePhaseLocked(ctx, item, epoch, botSpeech)
		return
	}

	c.playSpeechLocked(ctx, speech, epoch, c.timings.ChatSafety, func(bool) {
		// A chat-phase playback failure degrades the same way a natural
		// end does: brief pause, then the response.
		c.armTimerLocked(c.timings.PhaseTransition, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.staleLocked(epoch) {
				return
			}
			c.enterResponsePhaseLocked(ctx, item, epoch, botSpeech)
		})
	})
}

// enterResponsePhaseLocked flips the displayed phase and hands off to the
// response continuation. Any still-sounding chat audio is stopped first so
// the two phases never overlap.
//
// Caller must hold c.mu.
func (c *Controller) enterResponsePhaseLocked(ctx context.Context, item ReplyTurnItem, epoch int, botSpeech <-chan *texttospeech.Speech) {
	c.clearTimerLocked()
	c.analyzer.Detach()
	c.playback.Stop()
	c.store.Apply(func(snapshot *Snapshot) { snapshot.TurnPhase = TurnPhaseResponse })

	go c.runResponsePhase(ctx, item, epoch, botSpeech)
}

func (c *Controller) runResponsePhase(ctx context.Context, item ReplyTurnItem, epoch int, botSpeech <-chan *texttospeech.Speech) {
	speech := <-botSpeech

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staleLocked(epoch) {
		return
	}

	if speech == nil {
		c.armTimerLocked(c.timings.NoTTS, func() { c.finish(item.ID, epoch) })
		return
	}

	c.playSpeechLocked(ctx, speech, epoch, c.timings.MaxAudio, func(failed bool) {
		delay := c.timings.PostAudio
		if failed {
			delay = c.timings.Error
		}
		c.armTimerLocked(delay, func() { c.finish(item.ID, epoch) })
	})
}

// playSpeechLocked decodes speech into a clip and starts it at the volume
// the provider calls for. onOutcome runs with c.mu held, after the epoch
// check, exactly once: failed=false on natural end or safety timeout,
// failed=true when playback errors or refuses to start.
//
// Caller must hold c.mu.
func (c *Controller) playSpeechLocked(ctx context.Context, speech *texttospeech.Speech, epoch int, safetyTimeout time.Duration, onOutcome func(failed bool)) {
	clip := c.newClip(speech.Audio, c.encodingInfo)

	handle, err := c.playback.Start(clip, volumeForProvider(speech.Provider), safetyTimeout, func(failed bool) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.staleLocked(epoch) {
			return
		}
		onOutcome(failed)
	})
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		onOutcome(true)
		return
	}

	c.analyzer.Attach(handle)
}

// finish is the shared tail of every item: timers cleared, audio stopped,
// analyzer detached, display state reset, acknowledgment sent, and after
// the inter-item gap the next item (if any) starts.
func (c *Controller) finish(id string, epoch int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staleLocked(epoch) {
		return
	}

	c.clearTimerLocked()
	c.analyzer.Detach()
	c.playback.Stop()

	// Anything still in flight for this item is stale from here on.
	c.epoch++
	gapEpoch := c.epoch

	c.store.Apply(func(snapshot *Snapshot) {
		snapshot.TurnPhase = TurnPhaseIdle
		snapshot.CurrentTurn = nil
		snapshot.CurrentMessage = nil
	})

	if c.gateway != nil {
		if err := c.gateway.Emit(events.NewTalkDone(id)); err != nil {
			logger.Error("failed to acknowledge item", "id", id, "error", err)
		}
	}

	c.delayTimer = c.clock.AfterFunc(c.timings.Gap, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.destroyed || c.epoch != gapEpoch {
			return
		}
		c.processing = false
		c.processNextLocked()
	})
}

// generateSpeech wraps the provider boundary: a nil generator, a generation
// error, and an empty payload all collapse into "no speech available".
func (c *Controller) generateSpeech(ctx context.Context, text string, role texttospeech.Role) *texttospeech.Speech {
	if c.tts == nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "overlay.generate_speech",
		trace.WithAttributes(attribute.String("tts.role", string(role))),
	)
	defer span.End()

	speech, err := c.tts.GenerateSpeech(ctx, text, role)
	if err != nil {
		recordedErr := fmt.Errorf("failed to generate speech: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return nil
	}
	if speech == nil || len(speech.Audio) == 0 {
		return nil
	}

	return speech
}

// staleLocked reports whether a continuation captured at epoch no longer
// belongs to the item being processed.
//
// Caller must hold c.mu.
func (c *Controller) staleLocked(epoch int) bool {
	return c.destroyed || c.epoch != epoch
}

// armTimerLocked replaces the single owned delay timer.
//
// Caller must hold c.mu.
func (c *Controller) armTimerLocked(d time.Duration, f func()) {
	c.clearTimerLocked()
	c.delayTimer = c.clock.AfterFunc(d, f)
}

// clearTimerLocked disarms the owned delay timer, if any.
//
// Caller must hold c.mu.
func (c *Controller) clearTimerLocked() {
	if c.delayTimer != nil {
		c.delayTimer.Stop()
		c.delayTimer = nil
	}
}
