package miniaudio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/overlay-core/core/audio"
)

const analysisWindowSize = 1024

// Player plays decoded clips through a miniaudio playback device. The
// device context is initialized lazily, on the first clip.
type Player struct {
	mu           sync.Mutex
	audioContext *malgo.AllocatedContext
}

func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) context() (*malgo.AllocatedContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.audioContext != nil {
		return p.audioContext, nil
	}

	audioContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	p.audioContext = audioContext
	return audioContext, nil
}

// Play starts a one-shot playback device for the clip. The returned
// playback stays valid after the clip ends; Stop releases the device.
func (p *Player) Play(clip *audio.Clip, volume float64, callbacks audio.PlaybackCallbacks) (audio.Playback, error) {
	audioContext, err := p.context()
	if err != nil {
		return nil, err
	}

	encodingInfo := clip.EncodingInfo()
	if encodingInfo.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("unsupported clip encoding %q", encodingInfo.Format.Name())
	}

	playback := &Playback{
		data:      clip.Data(),
		volume:    volume,
		callbacks: callbacks,
		recent:    make([]float64, 0, analysisWindowSize),
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(encodingInfo.SampleRate)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.Alsa.NoMMap = 1

	bytesPerFrame := malgo.SampleSizeInBytes(malgo.FormatS16)
	device, err := malgo.InitDevice(
		audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: playback.processAudio(bytesPerFrame)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	playback.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}
	playback.playing = true

	return playback, nil
}

func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.audioContext == nil {
		return
	}

	_ = p.audioContext.Uninit()
	p.audioContext.Free()
	p.audioContext = nil
}

// Playback is one clip being fed to a playback device.
type Playback struct {
	device *malgo.Device

	mu      sync.Mutex
	data    []byte
	offset  int
	volume  float64
	playing bool
	stopped bool
	ended   bool
	recent  []float64

	callbacks audio.PlaybackCallbacks
	teardown  sync.Once
}

// Stop halts the device and drops the remaining payload. Completion
// callbacks never fire after Stop returns.
func (p *Playback) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.playing = false
	p.data = nil
	p.mu.Unlock()

	p.teardown.Do(func() { p.device.Uninit() })
}

func (p *Playback) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// ReadSamples fills frame with the most recently played samples, normalized
// to [-1, 1].
func (p *Playback) ReadSamples(frame []float64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copy(frame, p.recent)
}

func (p *Playback) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		p.mu.Lock()
		if p.stopped || p.ended {
			p.mu.Unlock()
			return
		}

		chunk := p.data[p.offset:]
		if len(chunk) > need {
			chunk = chunk[:need]
		}
		p.offset += len(chunk)

		p.recent = p.recent[:0]
		for i := 0; i+1 < len(chunk); i += 2 {
			sample := int16(binary.LittleEndian.Uint16(chunk[i:]))
			scaled := int16(float64(sample) * p.volume)
			binary.LittleEndian.PutUint16(pOutput[i:], uint16(scaled))
			if len(p.recent) < analysisWindowSize {
				p.recent = append(p.recent, float64(scaled)/32768)
			}
		}

		drained := p.offset >= len(p.data)
		if drained {
			p.ended = true
			p.playing = false
		}
		p.mu.Unlock()

		if drained {
			// The device cannot be torn down from its own data callback.
			go p.finish()
		}
	}
}

func (p *Playback) finish() {
	p.teardown.Do(func() { p.device.Uninit() })

	p.mu.Lock()
	stopped := p.stopped
	onEnded := p.callbacks.OnEnded
	p.mu.Unlock()

	if !stopped && onEnded != nil {
		onEnded()
	}
}
