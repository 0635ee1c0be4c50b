package portaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/overlay-core/core/audio"
)

const defaultBufferSize = 4800 // ~100ms at the default sample rate

// Player plays decoded clips through the default PortAudio output device.
type Player struct {
	bufferSize int
}

// NewPlayer initializes PortAudio. Call Close to release it.
func NewPlayer() (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return &Player{bufferSize: defaultBufferSize}, nil
}

// Play opens an output stream for the clip and feeds it from a background
// goroutine until the payload drains or the playback is stopped.
func (p *Player) Play(clip *audio.Clip, volume float64, callbacks audio.PlaybackCallbacks) (audio.Playback, error) {
	encodingInfo := clip.EncodingInfo()
	if encodingInfo.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("unsupported clip encoding %q", encodingInfo.Format.Name())
	}

	out := make([]int16, p.bufferSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(encodingInfo.SampleRate), p.bufferSize, out)
	if err != nil {
		return nil, fmt.Errorf("failed to open playback stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start playback stream: %w", err)
	}

	playback := &Playback{
		stream:    stream,
		out:       out,
		data:      clip.Data(),
		volume:    volume,
		callbacks: callbacks,
		playing:   true,
		recent:    make([]float64, 0, len(out)),
	}
	go playback.run()

	return playback, nil
}

func (p *Player) Close() {
	_ = portaudio.Terminate()
}

// Playback is one clip being written to a PortAudio stream.
type Playback struct {
	stream *portaudio.Stream
	out    []int16

	mu      sync.Mutex
	data    []byte
	offset  int
	volume  float64
	playing bool
	stopped bool
	recent  []float64

	callbacks audio.PlaybackCallbacks
	teardown  sync.Once
}

func (p *Playback) run() {
	chunkSize := len(p.out) * 2

	for {
		p.mu.Lock()
		if p.stopped || p.offset >= len(p.data) {
			drained := !p.stopped
			p.playing = false
			p.mu.Unlock()
			p.finish(drained, nil)
			return
		}

		chunk := p.data[p.offset:]
		if len(chunk) > chunkSize {
			chunk = chunk[:chunkSize]
		}
		p.offset += len(chunk)

		_ = binary.Read(bytes.NewReader(chunk), binary.LittleEndian, p.out[:len(chunk)/2])
		p.recent = p.recent[:0]
		for i := range len(chunk) / 2 {
			p.out[i] = int16(float64(p.out[i]) * p.volume)
			p.recent = append(p.recent, float64(p.out[i])/32768)
		}
		for i := len(chunk) / 2; i < len(p.out); i++ {
			p.out[i] = 0
		}
		p.mu.Unlock()

		if err := p.stream.Write(); err != nil {
			p.mu.Lock()
			p.playing = false
			p.mu.Unlock()
			p.finish(false, fmt.Errorf("failed to write to playback stream: %w", err))
			return
		}
	}
}

func (p *Playback) finish(drained bool, err error) {
	p.teardown.Do(func() {
		_ = p.stream.Stop()
		_ = p.stream.Close()
	})

	p.mu.Lock()
	stopped := p.stopped
	callbacks := p.callbacks
	p.mu.Unlock()
	if stopped {
		return
	}

	if err != nil {
		if callbacks.OnError != nil {
			callbacks.OnError(err)
		}
		return
	}
	if drained && callbacks.OnEnded != nil {
		callbacks.OnEnded()
	}
}

// Stop drops the remaining payload and closes the stream. Completion
// callbacks never fire after Stop returns.
func (p *Playback) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.playing = false
	p.data = nil
	p.mu.Unlock()
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
