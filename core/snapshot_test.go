package overlay

import "testing"

func TestSnapshotIdentityIsStableAcrossReads(t *testing.T) {
	store := newSnapshotStore()

	first := store.Snapshot()
	second := store.Snapshot()
	if first != second {
		t.Fatalf("expected identical snapshot pointers when nothing changed")
	}

	store.Apply(func(snapshot *Snapshot) { snapshot.Status = StatusActive })
	third := store.Snapshot()
	if third == second {
		t.Fatalf("expected a new snapshot pointer after a change")
	}
	if third.Status != StatusActive {
		t.Fatalf("expected status %q, got %q", StatusActive, third.Status)
	}
}

func TestSnapshotUnchangedApplyKeepsIdentityAndStaysSilent(t *testing.T) {
	store := newSnapshotStore()

	notifications := 0
	unsubscribe := store.Subscribe(func(*Snapshot) { notifications++ })
	defer unsubscribe()

	before := store.Snapshot()
	store.Apply(func(snapshot *Snapshot) { snapshot.Status = StatusIdle })

	if store.Snapshot() != before {
		t.Fatalf("expected the snapshot pointer to survive a no-op apply")
	}
	if notifications != 0 {
		t.Fatalf("expected no notifications for a no-op apply, got %d", notifications)
	}
}

func TestSnapshotBatchNotifiesOnce(t *testing.T) {
	store := newSnapshotStore()

	notifications := 0
	var last *Snapshot
	unsubscribe := store.Subscribe(func(snapshot *Snapshot) {
		notifications++
		last = snapshot
	})
	defer unsubscribe()

	store.Apply(func(snapshot *Snapshot) {
		snapshot.Status = StatusChatting
		snapshot.TurnPhase = TurnPhaseChat
		snapshot.CurrentTurn = &ReplyTurn{ChatUsername: "viewer", ChatMessage: "hi", BotMessage: "hello"}
		snapshot.QueueLength = 3
	})

	if notifications != 1 {
		t.Fatalf("expected a single notification for a batched change, got %d", notifications)
	}
	if last == nil || last.QueueLength != 3 || last.TurnPhase != TurnPhaseChat {
		t.Fatalf("expected the notification to carry the new snapshot, got %+v", last)
	}
}

func TestSnapshotUnsubscribeStopsNotifications(t *testing.T) {
	store := newSnapshotStore()

	notifications := 0
	unsubscribe := store.Subscribe(func(*Snapshot) { notifications++ })

	store.Apply(func(snapshot *Snapshot) { snapshot.ShowAll = true })
	unsubscribe()
	store.Apply(func(snapshot *Snapshot) { snapshot.ShowAll = false })

	if notifications != 1 {
		t.Fatalf("expected one notification before unsubscribing, got %d", notifications)
	}
}

func TestSnapshotMutationsDoNotLeakAcrossRecords(t *testing.T) {
	store := newSnapshotStore()

	turn := ReplyTurn{ChatUsername: "viewer", ChatMessage: "hi", BotMessage: "hello"}
	store.Apply(func(snapshot *Snapshot) { snapshot.CurrentTurn = &turn })
	before := store.Snapshot()

	store.Apply(func(snapshot *Snapshot) { snapshot.CurrentTurn.ChatMessage = "changed" })

	if before.CurrentTurn.ChatMessage != "hi" {
		t.Fatalf("expected the earlier record to keep its turn, got %q", before.CurrentTurn.ChatMessage)
	}
	if got := store.Snapshot().CurrentTurn.ChatMessage; got != "changed" {
		t.Fatalf("expected the new record to carry the change, got %q", got)
	}
}

func TestSnapshotResetRestoresInitialValues(t *testing.T) {
	store := newSnapshotStore()

	store.Apply(func(snapshot *Snapshot) {
		snapshot.Connected = true
		snapshot.Status = StatusActive
		snapshot.TurnPhase = TurnPhaseResponse
		snapshot.CurrentMessage = &Message{Text: "Hello!"}
		snapshot.QueueLength = 2
		snapshot.ShowAll = true
	})

	store.Reset()

	snapshot := store.Snapshot()
	if snapshot.Connected || snapshot.Status != StatusIdle || snapshot.TurnPhase != TurnPhaseIdle {
		t.Fatalf("expected initial values after reset, got %+v", snapshot)
	}
	if snapshot.CurrentMessage != nil || snapshot.QueueLength != 0 || snapshot.ShowAll {
		t.Fatalf("expected cleared item state after reset, got %+v", snapshot)
	}
}

func TestAmplitudeUpdatesSkipSnapshotListeners(t *testing.T) {
	store := newSnapshotStore()

	snapshotNotifications := 0
	unsubscribe := store.Subscribe(func(*Snapshot) { snapshotNotifications++ })
	defer unsubscribe()

	amplitudes := []float64{}
	unsubscribeAmplitude := store.SubscribeAmplitude(func(amplitude float64) {
		amplitudes = append(amplitudes, amplitude)
	})
	defer unsubscribeAmplitude()

	store.PublishAmplitude(0.4)
	store.PublishAmplitude(0.4)
	store.PublishAmplitude(0.6)

	if snapshotNotifications != 0 {
		t.Fatalf("expected amplitude updates to never reach snapshot listeners, got %d", snapshotNotifications)
	}
	if len(amplitudes) != 2 || amplitudes[0] != 0.4 || amplitudes[1] != 0.6 {
		t.Fatalf("expected deduplicated amplitude updates [0.4 0.6], got %v", amplitudes)
	}
	if got := store.Amplitude(); got != 0.6 {
		t.Fatalf("expected amplitude 0.6, got %v", got)
	}
}
