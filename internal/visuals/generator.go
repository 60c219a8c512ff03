// Package visuals produces exactly one visual artifact per window through a
// linear fallback chain: portrait, animate, lip-sync, gradient. Each tier is
// tried at most once and a failed tier degrades to the next; only exhaustion
// of the gradient tier fails the window.
package visuals

import (
	"context"
	"log/slog"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Kind classifies how an artifact was produced.
type Kind string

const (
	// KindSynthesized marks a talking-head clip (lip-synced or not).
	KindSynthesized Kind = "synthesized"
	// KindFallback marks a gradient background clip.
	KindFallback Kind = "fallback"
)

// Artifact is the visual output for one window. DurationSec always matches
// the window's measured narration duration, since every generation job is
// parameterized with that value before submission.
type Artifact struct {
	Path        string
	DurationSec float64
	Kind        Kind
}

// Service is the remote generation surface the chain drives. Satisfied by
// the genvid client.
type Service interface {
	UploadAsset(ctx context.Context, path string) (string, error)
	SubmitPortrait(ctx context.Context, subject string) (string, error)
	SubmitAnimation(ctx context.Context, portraitURI string, durationSec float64) (string, error)
	SubmitLipSync(ctx context.Context, clipURI, audioURI string) (string, error)
	SubmitGradient(ctx context.Context, durationSec float64) (string, error)
	Await(ctx context.Context, jobID string) (string, error)
	Download(ctx context.Context, uri, destPath string) error
}

// Request describes one window's visual generation inputs.
type Request struct {
	// Subject steers portrait generation, typically the script title.
	Subject string
	// AudioPath is the narration artifact used by the lip-sync tier.
	AudioPath string
	// DurationSec is the measured narration duration. Every submitted job is
	// sized from this value, never from an estimate.
	DurationSec float64
	// OutputPath is where the final clip is written.
	OutputPath string
}

// Prober measures media durations. Satisfied by *ffprobe.Inspector.
type Prober interface {
	DurationSeconds(ctx context.Context, path string) (float64, error)
}

// Generator runs the fallback chain.
type Generator struct {
	service Service
	// enabled gates the synthesized tiers; when false requests go straight
	// to the gradient fallback.
	enabled      bool
	probe        Prober
	toleranceSec float64
	logger       *slog.Logger
}

// Option customizes Generator construction.
type Option func(*Generator)

// WithDurationCheck probes each downloaded clip and warns when its duration
// drifts from the requested value by more than toleranceSec. The check never
// fails a window; remote renderers routinely land within a fraction of a
// second of the requested length.
func WithDurationCheck(probe Prober, toleranceSec float64) Option {
	return func(g *Generator) {
		g.probe = probe
		g.toleranceSec = toleranceSec
	}
}

// NewGenerator constructs a Generator.
func NewGenerator(service Service, enabled bool, logger *slog.Logger, opts ...Option) (*Generator, error) {
	if service == nil {
		return nil, services.Wrap(services.ErrConfiguration, "visuals", "new", "generation service required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	generator := &Generator{service: service, enabled: enabled, logger: logger}
	for _, opt := range opts {
		opt(generator)
	}
	return generator, nil
}

// Generate produces the window's visual artifact. It returns an error only
// when the gradient tier itself fails; every earlier failure degrades to the
// next tier.
func (g *Generator) Generate(ctx context.Context, req Request) (Artifact, error) {
	if strings.TrimSpace(req.OutputPath) == "" {
		return Artifact{}, services.Wrap(services.ErrVisualGeneration, "visuals", "generate", "output path required", nil)
	}
	if req.DurationSec <= 0 {
		return Artifact{}, services.Wrap(services.ErrVisualGeneration, "visuals", "generate", "measured duration required", nil)
	}

	if !g.enabled {
		return g.gradient(ctx, req)
	}

	portraitURI, err := g.runJob(ctx, func() (string, error) {
		return g.service.SubmitPortrait(ctx, req.Subject)
	})
	if err != nil {
		g.logger.Warn("portrait tier failed, using gradient fallback", logging.Error(err))
		return g.gradient(ctx, req)
	}

	clipURI, err := g.runJob(ctx, func() (string, error) {
		return g.service.SubmitAnimation(ctx, portraitURI, req.DurationSec)
	})
	if err != nil {
		g.logger.Warn("animate tier failed, using gradient fallback", logging.Error(err))
		return g.gradient(ctx, req)
	}

	syncedURI, err := g.lipSync(ctx, clipURI, req.AudioPath)
	if err != nil {
		// Lip-sync is an enhancement: keep the animated clip rather than
		// degrading all the way to the gradient.
		g.logger.Warn("lip-sync tier failed, keeping animated clip", logging.Error(err))
		syncedURI = clipURI
	}

	if err := g.service.Download(ctx, syncedURI, req.OutputPath); err != nil {
		g.logger.Warn("clip download failed, using gradient fallback", logging.Error(err))
		return g.gradient(ctx, req)
	}
	g.checkDuration(ctx, req)
	return Artifact{Path: req.OutputPath, DurationSec: req.DurationSec, Kind: KindSynthesized}, nil
}

func (g *Generator) checkDuration(ctx context.Context, req Request) {
	if g.probe == nil {
		return
	}
	measured, err := g.probe.DurationSeconds(ctx, req.OutputPath)
	if err != nil {
		g.logger.Warn("could not measure downloaded clip", logging.Error(err))
		return
	}
	drift := measured - req.DurationSec
	if drift < 0 {
		drift = -drift
	}
	if drift > g.toleranceSec {
		g.logger.Warn("clip duration drifts from narration",
			logging.Float64("requested_sec", req.DurationSec),
			logging.Float64("measured_sec", measured))
	}
}

func (g *Generator) lipSync(ctx context.Context, clipURI, audioPath string) (string, error) {
	audioURI, err := g.service.UploadAsset(ctx, audioPath)
	if err != nil {
		return "", err
	}
	return g.runJob(ctx, func() (string, error) {
		return g.service.SubmitLipSync(ctx, clipURI, audioURI)
	})
}

func (g *Generator) gradient(ctx context.Context, req Request) (Artifact, error) {
	uri, err := g.runJob(ctx, func() (string, error) {
		return g.service.SubmitGradient(ctx, req.DurationSec)
	})
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrVisualGeneration, "visuals", "gradient", "fallback tier exhausted", err)
	}
	if err := g.service.Download(ctx, uri, req.OutputPath); err != nil {
		return Artifact{}, services.Wrap(services.ErrVisualGeneration, "visuals", "gradient", "download fallback clip", err)
	}
	g.checkDuration(ctx, req)
	return Artifact{Path: req.OutputPath, DurationSec: req.DurationSec, Kind: KindFallback}, nil
}

func (g *Generator) runJob(ctx context.Context, submit func() (string, error)) (string, error) {
	jobID, err := submit()
	if err != nil {
		return "", err
	}
	return g.service.Await(ctx, jobID)
}
