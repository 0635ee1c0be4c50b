package transport

import "github.com/invopop/jsonschema"

// PayloadSchemas returns the JSON schema for each gateway wire event's data
// payload, keyed by wire event name. This is the machine-readable half of
// the gateway contract; gateways can validate frames against it without
// importing Go types.
func PayloadSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}

	return map[string]*jsonschema.Schema{
		wireStatus:    reflector.Reflect(StatusPayload{}),
		wireTalk:      reflector.Reflect(TalkPayload{}),
		wireReplyTurn: reflector.Reflect(ReplyTurnPayload{}),
		wireTalkDone:  reflector.Reflect(TalkDonePayload{}),
	}
}
