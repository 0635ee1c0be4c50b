package events

const KindTalkDone Kind = "overlay.talk_done"

type TalkDone struct {
	Base
	ID string
}

func NewTalkDone(id string) TalkDone {
	return TalkDone{Base: NewBase(KindTalkDone), ID: id}
}
