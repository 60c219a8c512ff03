package script

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
)

// Unit is the structured narration derived from one content window.
type Unit struct {
	Title                string
	Hook                 string
	Narration            string
	CallToAction         string
	Keywords             []string
	EstimatedDurationSec float64
}

// Completer issues a JSON-only chat completion. Satisfied by *llm.Client.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Deriver turns content windows into narration units via the configured model.
type Deriver struct {
	client Completer
	logger *slog.Logger
}

// NewDeriver constructs a Deriver backed by the given completion client.
func NewDeriver(client Completer, logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deriver{client: client, logger: logger}
}

// Derive requests narration units for the window text. The model payload is
// accepted as a single unit, a list of units, or units nested under a
// "transcripts" or "structure" container key. A payload that matches none of
// those shapes, or that yields no unit with narration text, fails with a
// schema error carrying a snippet of the raw payload.
func (d *Deriver) Derive(ctx context.Context, windowText string) ([]Unit, error) {
	windowText = strings.TrimSpace(windowText)
	if windowText == "" {
		return nil, services.Wrap(services.ErrSchema, "script", "derive", "window text required", nil)
	}

	payload, err := d.client.CompleteJSON(ctx, narrationSystemPrompt, buildUserPrompt(windowText))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "script", "derive", "completion request failed", err)
	}

	units, err := ParseUnits(payload)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("derived narration units",
		logging.Int("units", len(units)),
		logging.String(logging.FieldStage, "script"))
	return units, nil
}

type wireUnit struct {
	Title                string   `json:"title"`
	Hook                 string   `json:"hook"`
	Narration            string   `json:"narration"`
	CTA                  string   `json:"cta"`
	Keywords             []string `json:"keywords"`
	EstimatedDurationSec float64  `json:"estimated_duration_sec"`
}

type wireEnvelope struct {
	wireUnit
	Transcripts []wireUnit `json:"transcripts"`
	Structure   []wireUnit `json:"structure"`
}

// ParseUnits decodes a model payload into narration units. Decoding attempts
// the payload as-is first, then one sanitized pass (code fences stripped,
// outer JSON extracted); it never guesses beyond those two interpretations.
func ParseUnits(payload string) ([]Unit, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrSchema, "script", "parse", "empty payload", nil)
	}

	units, strictErr := decodeShapes([]byte(trimmed))
	if strictErr != nil {
		var raw json.RawMessage
		if err := llm.DecodeJSON(trimmed, &raw); err != nil {
			return nil, services.Wrap(services.ErrSchema, "script", "parse", snippet(trimmed), err)
		}
		var fallbackErr error
		units, fallbackErr = decodeShapes(raw)
		if fallbackErr != nil {
			return nil, services.Wrap(services.ErrSchema, "script", "parse", snippet(trimmed), fallbackErr)
		}
	}

	valid := make([]Unit, 0, len(units))
	for _, unit := range units {
		unit = normalizeUnit(unit)
		if unit.Narration == "" {
			continue
		}
		valid = append(valid, unit)
	}
	if len(valid) == 0 {
		return nil, services.Wrap(services.ErrSchema, "script", "parse",
			"no unit with narration text in payload: "+snippet(trimmed), nil)
	}
	return valid, nil
}

func decodeShapes(data []byte) ([]Unit, error) {
	var list []wireUnit
	if err := json.Unmarshal(data, &list); err == nil {
		return convertUnits(list), nil
	}

	var envelope wireEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	switch {
	case len(envelope.Transcripts) > 0:
		return convertUnits(envelope.Transcripts), nil
	case len(envelope.Structure) > 0:
		return convertUnits(envelope.Structure), nil
	default:
		return convertUnits([]wireUnit{envelope.wireUnit}), nil
	}
}

func convertUnits(wire []wireUnit) []Unit {
	units := make([]Unit, 0, len(wire))
	for _, w := range wire {
		units = append(units, Unit{
			Title:                strings.TrimSpace(w.Title),
			Hook:                 strings.TrimSpace(w.Hook),
			Narration:            strings.TrimSpace(w.Narration),
			CallToAction:         strings.TrimSpace(w.CTA),
			Keywords:             w.Keywords,
			EstimatedDurationSec: w.EstimatedDurationSec,
		})
	}
	return units
}

func normalizeUnit(unit Unit) Unit {
	if unit.Title == "" {
		unit.Title = "Untitled"
	}
	unit.Keywords = dedupeKeywords(unit.Keywords)
	if unit.EstimatedDurationSec < 0 {
		unit.EstimatedDurationSec = 0
	}
	return unit
}

func dedupeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		key := strings.ToLower(keyword)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, keyword)
	}
	sort.Strings(out)
	return out
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
