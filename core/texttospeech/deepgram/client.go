package deepgram

import (
	"context"
	"fmt"
	"os"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
	"github.com/koscakluka/overlay-core/core/audio"
	"github.com/koscakluka/overlay-core/core/texttospeech"
)

const providerName = "deepgram"

var defaultVoices = map[texttospeech.Role]string{
	texttospeech.RoleBot:  "aura-orion-en",
	texttospeech.RoleChat: "aura-asteria-en",
}

// Client generates speech through the Deepgram speak REST API.
type Client struct {
	speakClient  *api.Client
	voices       map[texttospeech.Role]string
	encodingInfo audio.EncodingInfo
}

func NewClient(opts ...texttospeech.GenerateOption) (*Client, error) {
	// TODO: Allow passing API key in constructor
	if _, ok := os.LookupEnv("DEEPGRAM_API_KEY"); !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	options := texttospeech.GenerateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	voices := map[texttospeech.Role]string{}
	for role, voice := range defaultVoices {
		voices[role] = voice
	}
	for role, voice := range options.Voices {
		voices[role] = voice
	}

	return &Client{
		speakClient:  api.New(client.NewRESTWithDefaults()),
		voices:       voices,
		encodingInfo: audio.GetDefaultEncodingInfo(),
	}, nil
}

func (c *Client) GenerateSpeech(ctx context.Context, text string, role texttospeech.Role) (*texttospeech.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	voice, ok := c.voices[role]
	if !ok {
		voice = defaultVoices[texttospeech.RoleBot]
	}

	options := &interfaces.SpeakOptions{
		Model:      voice,
		Encoding:   c.encodingInfo.Format.Name(),
		SampleRate: c.encodingInfo.SampleRate,
		Container:  "none",
	}

	buffer := interfaces.RawResponse{}
	if _, err := c.speakClient.ToStream(ctx, text, options, &buffer); err != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", err)
	}

	return &texttospeech.Speech{Audio: buffer.Bytes(), Provider: providerName}, nil
}

// EncodingInfo reports the encoding generated payloads are requested in.
func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}
