// Package assemblyai wraps the AssemblyAI transcription API: upload the
// audio, submit a transcript job, then poll until it completes.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/jobs"
	"reelsmith/internal/services"
)

const (
	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 3 * time.Second
	defaultJobTimeout   = 5 * time.Minute
)

// Config captures the runtime settings required to talk to the service.
type Config struct {
	APIKey              string
	BaseURL             string
	TimeoutSeconds      int
	PollIntervalSeconds int
}

// Client wraps the AssemblyAI v2 API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	pollOpts   jobs.Options
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

// WithPollOptions overrides the transcript polling parameters (used in tests).
func WithPollOptions(opts jobs.Options) Option {
	return func(c *Client) {
		c.pollOpts = opts
	}
}

// NewClient constructs a transcription client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	jobTimeout := defaultJobTimeout
	if cfg.TimeoutSeconds > 0 {
		jobTimeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	pollInterval := defaultPollInterval
	if cfg.PollIntervalSeconds > 0 {
		pollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		pollOpts:   jobs.Options{Timeout: jobTimeout, PollInterval: pollInterval},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.assemblyai.com/v2"
	}
	return client
}

type transcriptRecord struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
	Words  []struct {
		Text  string `json:"text"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	} `json:"words"`
}

// Transcribe uploads the audio at audioPath, submits a transcript job, and
// waits for word-level timestamps.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]captions.Word, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "transcribe", "api key required", nil)
	}

	audioURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	transcriptID, err := c.submit(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	var words []captions.Word
	describe := func(ctx context.Context, id string) (jobs.Job, error) {
		record, err := c.getTranscript(ctx, id)
		if err != nil {
			return jobs.Job{}, err
		}
		job := jobs.Job{ID: id, Detail: record.Error}
		switch record.Status {
		case "completed":
			job.Status = jobs.StatusSucceeded
			words = words[:0]
			for _, w := range record.Words {
				words = append(words, captions.Word{Text: w.Text, StartMs: w.Start, EndMs: w.End})
			}
		case "error":
			job.Status = jobs.StatusFailed
		case "processing":
			job.Status = jobs.StatusRunning
		default:
			job.Status = jobs.StatusPending
		}
		return job, nil
	}

	if _, err := jobs.Await(ctx, transcriptID, describe, c.pollOpts); err != nil {
		return nil, err
	}
	return words, nil
}

func (c *Client) upload(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrMissingInput, "transcription", "upload", audioPath, err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload", file)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "transcription", "upload", "build request", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	var response struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.doJSON(req, &response); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcription", "upload", audioPath, err)
	}
	if response.UploadURL == "" {
		return "", services.Wrap(services.ErrTransient, "transcription", "upload", "no upload url in response", nil)
	}
	return response.UploadURL, nil
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	encoded, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "transcription", "submit", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/transcript", bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "transcription", "submit", "build request", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var record transcriptRecord
	if err := c.doJSON(req, &record); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcription", "submit", audioURL, err)
	}
	if record.ID == "" {
		return "", services.Wrap(services.ErrTransient, "transcription", "submit", "no transcript id in response", nil)
	}
	return record.ID, nil
}

func (c *Client) getTranscript(ctx context.Context, id string) (transcriptRecord, error) {
	var record transcriptRecord
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/transcript/"+id, nil)
	if err != nil {
		return record, fmt.Errorf("transcription describe: build request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	if err := c.doJSON(req, &record); err != nil {
		return record, fmt.Errorf("transcription describe: %w", err)
	}
	return record, nil
}

func (c *Client) doJSON(req *http.Request, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, summarizeBody(body))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
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
