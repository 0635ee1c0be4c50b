package texttospeech

import "context"

// Role selects the voice a speech request is rendered with.
type Role string

const (
	// RoleBot renders the avatar's own voice.
	RoleBot Role = "bot"
	// RoleChat renders a viewer's chat message being read out.
	RoleChat Role = "chat"
)

// Speech is a fully generated speech payload.
type Speech struct {
	// Audio is the raw decoded payload in the provider's configured encoding.
	Audio []byte
	// Provider names the provider that produced the payload. The playback
	// volume policy keys off this name.
	Provider string
}

// Generator is the provider boundary for one-shot speech generation.
//
// A nil result and an error are equivalent for callers: both mean no speech
// is available for the text. Generation failures are expected operating
// conditions, not fatal errors.
type Generator interface {
	GenerateSpeech(ctx context.Context, text string, role Role) (*Speech, error)
}

type GenerateOptions struct {
	// Voices maps roles to provider-specific voice identifiers. Providers
	// fall back to their default voice for unmapped roles.
	Voices map[Role]string
}

type GenerateOption func(*GenerateOptions)

// WithVoice maps a role to a provider-specific voice identifier.
func WithVoice(role Role, voice string) GenerateOption {
	return func(o *GenerateOptions) {
		if o.Voices == nil {
			o.Voices = map[Role]string{}
		}
		o.Voices[role] = voice
	}
}
