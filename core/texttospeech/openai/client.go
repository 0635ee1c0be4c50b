package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/koscakluka/overlay-core/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	providerName = "openai"

	url          = "https://api.openai.com/v1/audio/speech"
	defaultModel = "gpt-4o-mini-tts"
)

var defaultVoices = map[texttospeech.Role]string{
	texttospeech.RoleBot:  "onyx",
	texttospeech.RoleChat: "alloy",
}

// Client generates speech through an OpenAI-compatible speech endpoint.
type Client struct {
	apiKey string
	model  string
	voices map[texttospeech.Role]string
}

func NewClient(apiKey string, opts ...texttospeech.GenerateOption) *Client {
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

	return &Client{apiKey: apiKey, model: defaultModel, voices: voices}
}

type requestBody struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (c *Client) GenerateSpeech(ctx context.Context, text string, role texttospeech.Role) (*texttospeech.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "generate speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.String("request.role", string(role)),
	)

	requestBodyBytes, err := json.Marshal(c.buildRequestBody(text, role))
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
			return operationName + " " + request.URL.Path
		}),
	)}
	resp, err := client.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}

		err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading response body: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.payload_bytes", len(payload)))
	return &texttospeech.Speech{Audio: payload, Provider: providerName}, nil
}

func (c *Client) buildRequestBody(text string, role texttospeech.Role) requestBody {
	voice, ok := c.voices[role]
	if !ok {
		voice = defaultVoices[texttospeech.RoleBot]
	}

	return requestBody{
		Model: c.model,
		Input: text,
		Voice: voice,
		// Raw PCM so clips can feed the playback backends without a
		// container decode step.
		ResponseFormat: "pcm",
	}
}
