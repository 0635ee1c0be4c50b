// Command overlay-debug is a terminal harness for the presentation
// sequencing controller: it connects to a gateway, drives the controller
// the way the overlay would, and renders the display state and mouth
// amplitude live so the protocol can be exercised without a browser.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	overlay "github.com/koscakluka/overlay-core/core"
	"github.com/koscakluka/overlay-core/core/audio/miniaudio"
	"github.com/koscakluka/overlay-core/core/audio/portaudio"
	"github.com/koscakluka/overlay-core/core/texttospeech"
	"github.com/koscakluka/overlay-core/core/texttospeech/deepgram"
	"github.com/koscakluka/overlay-core/core/texttospeech/openai"
	"github.com/koscakluka/overlay-core/core/transport"
)

type config struct {
	GatewayURL   string `env:"OVERLAY_GATEWAY_URL" envDefault:"ws://localhost:7777/overlay"`
	TTSProvider  string `env:"OVERLAY_TTS_PROVIDER" envDefault:"deepgram"`
	AudioBackend string `env:"OVERLAY_AUDIO_BACKEND" envDefault:"miniaudio"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
}

var statusCycle = []overlay.Status{
	overlay.StatusSleep,
	overlay.StatusIdle,
	overlay.StatusVibing,
	overlay.StatusChatting,
	overlay.StatusActive,
}

func main() {
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatal("Failed to parse environment", "error", err)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		log.Fatal("Failed to configure text-to-speech", "error", err)
	}
	if generator == nil {
		log.Warn("Text-to-speech disabled, items degrade to timed display")
	}

	player, closePlayer, err := newPlayer(cfg)
	if err != nil {
		log.Fatal("Failed to configure audio backend", "error", err)
	}
	defer closePlayer()

	options := []overlay.ControllerOption{
		overlay.WithGateway(func() overlay.GatewayClient {
			return transport.NewClient(cfg.GatewayURL)
		}),
		overlay.WithClipPlayer(player),
	}
	if generator != nil {
		options = append(options, overlay.WithTextToSpeech(generator))
	}

	controller := overlay.NewController(options...)
	defer controller.Destroy()

	if err := controller.Connect(context.Background()); err != nil {
		log.Error("Failed to connect to gateway, operator controls still work", "url", cfg.GatewayURL, "error", err)
	}

	program := tea.NewProgram(newModel(controller), tea.WithAltScreen())

	unsubscribe := controller.Subscribe(func(snapshot *overlay.Snapshot) {
		program.Send(snapshotMsg{snapshot: snapshot})
	})
	defer unsubscribe()
	unsubscribeAmplitude := controller.SubscribeAmplitude(func(amplitude float64) {
		program.Send(amplitudeMsg{amplitude: amplitude})
	})
	defer unsubscribeAmplitude()

	if _, err := program.Run(); err != nil {
		log.Fatal("Failed to run program", "error", err)
	}
}

func newGenerator(cfg config) (texttospeech.Generator, error) {
	switch cfg.TTSProvider {
	case "deepgram":
		return deepgram.NewClient()
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return openai.NewClient(cfg.OpenAIAPIKey), nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown tts provider %q", cfg.TTSProvider)
}

func newPlayer(cfg config) (overlay.ClipPlayer, func(), error) {
	switch cfg.AudioBackend {
	case "miniaudio":
		player := miniaudio.NewPlayer()
		return player, player.Close, nil
	case "portaudio":
		player, err := portaudio.NewPlayer()
		if err != nil {
			return nil, nil, err
		}
		return player, player.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown audio backend %q", cfg.AudioBackend)
}

type snapshotMsg struct{ snapshot *overlay.Snapshot }

type amplitudeMsg struct{ amplitude float64 }

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	messageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type model struct {
	controller *overlay.Controller

	snapshot  *overlay.Snapshot
	amplitude float64
	mouth     progress.Model
	width     int
}

func newModel(controller *overlay.Controller) model {
	mouth := progress.New(progress.WithDefaultGradient())
	mouth.ShowPercentage = false

	return model{
		controller: controller,
		snapshot:   controller.Snapshot(),
		mouth:      mouth,
		width:      80,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.mouth.Width = min(msg.Width-4, 40)

	case snapshotMsg:
		m.snapshot = msg.snapshot

	case amplitudeMsg:
		m.amplitude = msg.amplitude

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.controller.SetStatus(nextStatus(m.snapshot.Status))
		case "a":
			m.controller.SetShowAll(!m.snapshot.ShowAll)
		case "t":
			m.controller.Enqueue(overlay.TalkItem{
				ID:   uuid.NewString(),
				Text: "This is a test talk item from the debug harness.",
			})
		case "r":
			m.controller.Enqueue(overlay.ReplyTurnItem{
				ID: uuid.NewString(),
				Turn: overlay.ReplyTurn{
					ChatUsername: "debug",
					ChatMessage:  "Can you hear me?",
					BotMessage:   "Loud and clear, this is the reply phase.",
				},
			})
		}
	}

	return m, nil
}

func (m model) View() string {
	snapshot := m.snapshot

	sections := []string{titleStyle.Render("overlay-core debug"), ""}

	connection := offlineStyle.Render("offline")
	if snapshot.Connected {
		connection = onlineStyle.Render("online")
	}
	sections = append(sections,
		labelStyle.Render("gateway  ")+connection,
		labelStyle.Render("status   ")+valueStyle.Render(string(snapshot.Status)),
		labelStyle.Render("phase    ")+valueStyle.Render(string(snapshot.TurnPhase)),
		labelStyle.Render("queued   ")+valueStyle.Render(fmt.Sprintf("%d", snapshot.QueueLength)),
		labelStyle.Render("show all ")+valueStyle.Render(fmt.Sprintf("%t", snapshot.ShowAll)),
		"",
	)

	if body := currentItemView(snapshot, m.width); body != "" {
		sections = append(sections, body, "")
	}

	sections = append(sections,
		labelStyle.Render("mouth"),
		m.mouth.ViewAs(m.amplitude),
		"",
		helpStyle.Render("s status · a show all · t talk · r reply turn · q quit"),
	)

	return strings.Join(sections, "\n")
}

func currentItemView(snapshot *overlay.Snapshot, width int) string {
	wrapWidth := min(width-6, 60)
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	if snapshot.CurrentMessage != nil {
		return messageStyle.Render(wordwrap.String(snapshot.CurrentMessage.Text, wrapWidth))
	}

	if turn := snapshot.CurrentTurn; turn != nil {
		chat := fmt.Sprintf("%s: %s", turn.ChatUsername, turn.ChatMessage)
		body := wordwrap.String(chat, wrapWidth)
		if snapshot.TurnPhase == overlay.TurnPhaseResponse {
			body = wordwrap.String(turn.BotMessage, wrapWidth)
		}
		return messageStyle.Render(body)
	}

	return ""
}

func nextStatus(current overlay.Status) overlay.Status {
	for i, status := range statusCycle {
		if status == current {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return overlay.StatusIdle
}
