package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings required to talk to the speech service.
type Config struct {
	APIKey         string
	BaseURL        string
	VoiceID        string
	ModelID        string
	TimeoutSeconds int
}

// Client wraps the ElevenLabs text-to-speech API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a speech client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			VoiceID: strings.TrimSpace(cfg.VoiceID),
			ModelID: strings.TrimSpace(cfg.ModelID),
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	return client
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// Synthesize converts narration text into MP3 audio bytes. Upstream HTTP
// failures surface as synthesis errors carrying the status code.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "synthesize", "narration text required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "api key required", nil)
	}
	if c.cfg.VoiceID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "voice id required", nil)
	}

	payload := speechRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.8,
			UseSpeakerBoost: true,
			Speed:           1.1,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "synthesize", "encode request", err)
	}

	endpoint := c.cfg.BaseURL + "/text-to-speech/" + c.cfg.VoiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "synthesize", "build request", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "synthesize", "http request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "synthesize", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "synthesize",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarizeBody(body)), nil)
	}
	if len(body) == 0 {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "synthesize", "empty audio response", nil)
	}
	return body, nil
}

func summarizeBody(body []byte) string {
	clean := strings.Join(strings.Fields(string(body)), " ")
	const limit = 200
	if len(clean) > limit {
		clean = clean[:limit] + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}
