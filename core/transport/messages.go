package transport

import "encoding/json"

// Wire event names used by the overlay gateway.
const (
	wireStatus    = "status"
	wireTalk      = "talk"
	wireReplyTurn = "reply-turn"
	wireTalkDone  = "talk:done"
)

// envelope is the frame every gateway message travels in.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// StatusPayload carries a broadcast avatar status update.
type StatusPayload struct {
	Status string `json:"status"`
}

// TalkPayload carries a single spoken message for the avatar to deliver.
// ID may be empty; the client mints one so acknowledgments stay addressable.
type TalkPayload struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// ReplyTurnPayload carries a viewer chat message and the avatar's reply.
type ReplyTurnPayload struct {
	ID           string `json:"id,omitempty"`
	ChatUsername string `json:"chatUsername"`
	ChatMessage  string `json:"chatMessage"`
	BotMessage   string `json:"botMessage"`
}

// TalkDonePayload acknowledges a fully processed item back to the gateway.
type TalkDonePayload struct {
	ID string `json:"id"`
}
