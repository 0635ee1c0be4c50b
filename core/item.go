package overlay

// QueueItem is a speech-bearing event waiting for its slot on the playback
// timeline. The variants are closed: the per-item protocol dispatches on
// the concrete type and must stay exhaustive.
type QueueItem interface {
	ItemID() string

	queueItem()
}

// TalkItem is a single, non-conversational spoken message.
type TalkItem struct {
	ID   string
	Text string
}

func (i TalkItem) ItemID() string { return i.ID }
func (TalkItem) queueItem()       {}

// ReplyTurn is a viewer's chat message paired with the avatar's reply.
type ReplyTurn struct {
	ChatUsername string
	ChatMessage  string
	BotMessage   string
}

// ReplyTurnItem is a two-phase conversational item: the chat message plays
// first, then the reply.
type ReplyTurnItem struct {
	ID   string
	Turn ReplyTurn
}

func (i ReplyTurnItem) ItemID() string { return i.ID }
func (ReplyTurnItem) queueItem()       {}
