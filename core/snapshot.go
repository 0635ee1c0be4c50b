package overlay

import (
	"sync"

	"github.com/jinzhu/copier"
)

// Status is the avatar's coarse activity state, broadcast by the gateway
// or set through the operator controls.
type Status string

const (
	StatusSleep    Status = "sleep"
	StatusIdle     Status = "idle"
	StatusVibing   Status = "vibing"
	StatusChatting Status = "chatting"
	StatusActive   Status = "active"
)

// TurnPhase is which half of a reply turn is displayed, or idle between
// items.
type TurnPhase string

const (
	TurnPhaseIdle     TurnPhase = "idle"
	TurnPhaseChat     TurnPhase = "chat"
	TurnPhaseResponse TurnPhase = "response"
)

// Message is the currently displayed talk text.
type Message struct {
	Text string
}

// Snapshot is the complete externally observable display state. Snapshots
// are immutable: the store replaces the whole record on change, so two
// equal pointers always mean "nothing changed".
type Snapshot struct {
	Connected      bool
	Status         Status
	TurnPhase      TurnPhase
	CurrentTurn    *ReplyTurn
	CurrentMessage *Message
	QueueLength    int
	ShowAll        bool
}

func initialSnapshot() *Snapshot {
	return &Snapshot{Status: StatusIdle, TurnPhase: TurnPhaseIdle}
}

// snapshotStore holds the single authoritative display-state record plus
// the amplitude scalar. Amplitude has its own listener set so its per-frame
// cadence never reaches snapshot subscribers.
type snapshotStore struct {
	mu sync.Mutex

	current        *Snapshot
	listeners      map[int]func(*Snapshot)
	nextListenerID int

	amplitude          float64
	amplitudeListeners map[int]func(float64)
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{
		current:            initialSnapshot(),
		listeners:          map[int]func(*Snapshot){},
		amplitudeListeners: map[int]func(float64){},
	}
}

// Snapshot returns the current record. The returned pointer is identity
// stable: it only changes when a field changed.
func (s *snapshotStore) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *snapshotStore) Subscribe(listener func(*Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Apply mutates a copy of the current record and swaps it in. If the
// mutation left every field unchanged the old record (and its identity) is
// kept and no listener fires; otherwise listeners fire exactly once no
// matter how many fields changed.
func (s *snapshotStore) Apply(mutate func(*Snapshot)) {
	s.mu.Lock()

	next := &Snapshot{}
	if err := copier.CopyWithOption(next, s.current, copier.Option{DeepCopy: true}); err != nil {
		// A snapshot is plain data; a copy failure means a programming
		// error, not a runtime condition. Leave state untouched.
		s.mu.Unlock()
		logger.Error("failed to copy snapshot", "error", err)
		return
	}

	mutate(next)
	if snapshotsEqual(s.current, next) {
		s.mu.Unlock()
		return
	}

	s.current = next
	listeners := make([]func(*Snapshot), 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(next)
	}
}

// Reset returns the record to its initial values.
func (s *snapshotStore) Reset() {
	s.Apply(func(snapshot *Snapshot) {
		*snapshot = *initialSnapshot()
	})
}

func (s *snapshotStore) Amplitude() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amplitude
}

func (s *snapshotStore) SubscribeAmplitude(listener func(float64)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListenerID
	s.nextListenerID++
	s.amplitudeListeners[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.amplitudeListeners, id)
	}
}

// PublishAmplitude updates the amplitude scalar. Unchanged values are
// dropped so an idle analyzer does not wake listeners every frame.
func (s *snapshotStore) PublishAmplitude(amplitude float64) {
	s.mu.Lock()
	if s.amplitude == amplitude {
		s.mu.Unlock()
		return
	}

	s.amplitude = amplitude
	listeners := make([]func(float64), 0, len(s.amplitudeListeners))
	for _, listener := range s.amplitudeListeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(amplitude)
	}
}

func snapshotsEqual(a, b *Snapshot) bool {
	if a.Connected != b.Connected ||
		a.Status != b.Status ||
		a.TurnPhase != b.TurnPhase ||
		a.QueueLength != b.QueueLength ||
		a.ShowAll != b.ShowAll {
		return false
	}

	if (a.CurrentTurn == nil) != (b.CurrentTurn == nil) {
		return false
	}
	if a.CurrentTurn != nil && *a.CurrentTurn != *b.CurrentTurn {
		return false
	}

	if (a.CurrentMessage == nil) != (b.CurrentMessage == nil) {
		return false
	}
	if a.CurrentMessage != nil && *a.CurrentMessage != *b.CurrentMessage {
		return false
	}

	return true
}
