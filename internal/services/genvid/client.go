// Package genvid wraps the remote visual generation service. Every
// generation call follows the same asynchronous contract: submit a job,
// poll until terminal, download the result.
package genvid

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

	"reelsmith/internal/jobs"
	"reelsmith/internal/services"
)

const (
	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultJobTimeout   = 10 * time.Minute
)

// Config captures the runtime settings required to talk to the service.
type Config struct {
	APIKey              string
	BaseURL             string
	JobTimeoutSeconds   int
	PollIntervalSeconds int
}

// Client wraps the visual generation API.
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

// WithPollOptions overrides the job polling parameters (used in tests).
func WithPollOptions(opts jobs.Options) Option {
	return func(c *Client) {
		c.pollOpts = opts
	}
}

// NewClient constructs a visual generation client.
func NewClient(cfg Config, opts ...Option) *Client {
	jobTimeout := defaultJobTimeout
	if cfg.JobTimeoutSeconds > 0 {
		jobTimeout = time.Duration(cfg.JobTimeoutSeconds) * time.Second
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
	return client
}

// UploadAsset uploads a local file and returns a service URI for it.
func (c *Client) UploadAsset(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrMissingInput, "visuals", "upload asset", path, err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/assets", file)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "visuals", "upload asset", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var response struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(req, &response); err != nil {
		return "", services.Wrap(services.ErrTransient, "visuals", "upload asset", path, err)
	}
	if response.URL == "" {
		return "", services.Wrap(services.ErrTransient, "visuals", "upload asset", "no asset url in response", nil)
	}
	return response.URL, nil
}

// SubmitPortrait submits a still portrait generation job for the subject.
func (c *Client) SubmitPortrait(ctx context.Context, subject string) (string, error) {
	return c.submit(ctx, "portrait", map[string]any{"subject": subject})
}

// SubmitAnimation submits an animation job for a portrait reference sized to
// the target duration.
func (c *Client) SubmitAnimation(ctx context.Context, portraitURI string, durationSec float64) (string, error) {
	return c.submit(ctx, "animate", map[string]any{
		"portrait_url": portraitURI,
		"duration_sec": durationSec,
	})
}

// SubmitLipSync submits a lip-sync job pairing an animated clip with
// narration audio.
func (c *Client) SubmitLipSync(ctx context.Context, clipURI, audioURI string) (string, error) {
	return c.submit(ctx, "lipsync", map[string]any{
		"clip_url":  clipURI,
		"audio_url": audioURI,
	})
}

// SubmitGradient submits a duration-matched abstract motion background job.
func (c *Client) SubmitGradient(ctx context.Context, durationSec float64) (string, error) {
	return c.submit(ctx, "gradient", map[string]any{"duration_sec": durationSec})
}

// Await polls the job until terminal and returns the result URI on success.
func (c *Client) Await(ctx context.Context, jobID string) (string, error) {
	describe := func(ctx context.Context, id string) (jobs.Job, error) {
		record, err := c.getJob(ctx, id)
		if err != nil {
			return jobs.Job{}, err
		}
		job := jobs.Job{ID: id, Result: record.ResultURL, Detail: record.Error}
		switch record.Status {
		case "completed":
			job.Status = jobs.StatusSucceeded
		case "error", "failed":
			job.Status = jobs.StatusFailed
		case "processing", "running":
			job.Status = jobs.StatusRunning
		default:
			job.Status = jobs.StatusPending
		}
		return job, nil
	}

	job, err := jobs.Await(ctx, jobID, describe, c.pollOpts)
	if err != nil {
		return "", err
	}
	if job.Result == "" {
		return "", services.Wrap(services.ErrJobFailed, "visuals", "await job "+jobID, "no result url on completed job", nil)
	}
	return job.Result, nil
}

// Download fetches the artifact at uri into destPath.
func (c *Client) Download(ctx context.Context, uri, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "visuals", "download", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "visuals", "download", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "visuals", "download",
			fmt.Sprintf("http %d for %s", resp.StatusCode, uri), nil)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return services.Wrap(services.ErrTransient, "visuals", "download", destPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return services.Wrap(services.ErrTransient, "visuals", "download", destPath, err)
	}
	return nil
}

type jobRecord struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
	Error     string `json:"error"`
}

func (c *Client) submit(ctx context.Context, kind string, params map[string]any) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "visuals", "submit "+kind, "api key required", nil)
	}
	body := map[string]any{"kind": kind}
	for k, v := range params {
		body[k] = v
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "visuals", "submit "+kind, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/jobs", bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "visuals", "submit "+kind, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var record jobRecord
	if err := c.doJSON(req, &record); err != nil {
		return "", services.Wrap(services.ErrTransient, "visuals", "submit "+kind, "submission failed", err)
	}
	if record.ID == "" {
		return "", services.Wrap(services.ErrTransient, "visuals", "submit "+kind, "no job id in response", nil)
	}
	return record.ID, nil
}

func (c *Client) getJob(ctx context.Context, id string) (jobRecord, error) {
	var record jobRecord
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/jobs/"+id, nil)
	if err != nil {
		return record, fmt.Errorf("visuals describe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if err := c.doJSON(req, &record); err != nil {
		return record, fmt.Errorf("visuals describe: %w", err)
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
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
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
