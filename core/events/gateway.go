package events

const (
	KindConnected    Kind = "gateway.connected"
	KindDisconnected Kind = "gateway.disconnected"
	KindStatus       Kind = "gateway.status"
	KindTalk         Kind = "gateway.talk"
	KindReplyTurn    Kind = "gateway.reply_turn"
)

type Connected struct{ Base }

func NewConnected() Connected {
	return Connected{Base: NewBase(KindConnected)}
}

type Disconnected struct{ Base }

func NewDisconnected() Disconnected {
	return Disconnected{Base: NewBase(KindDisconnected)}
}

type StatusChanged struct {
	Base
	Status string
}

func NewStatusChanged(status string) StatusChanged {
	return StatusChanged{Base: NewBase(KindStatus), Status: status}
}

type TalkRequested struct {
	Base
	ID      string
	Message string
}

func NewTalkRequested(id string, message string) TalkRequested {
	return TalkRequested{Base: NewBase(KindTalk), ID: id, Message: message}
}

type ReplyTurnRequested struct {
	Base
	ID           string
	ChatUsername string
	ChatMessage  string
	BotMessage   string
}

func NewReplyTurnRequested(id, chatUsername, chatMessage, botMessage string) ReplyTurnRequested {
	return ReplyTurnRequested{
		Base:         NewBase(KindReplyTurn),
		ID:           id,
		ChatUsername: chatUsername,
		ChatMessage:  chatMessage,
		BotMessage:   botMessage,
	}
}
