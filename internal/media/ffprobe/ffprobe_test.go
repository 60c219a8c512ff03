package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "8.2"},
			{CodecType: "video", Duration: "9.75"},
		},
	}
	if result.DurationSeconds() != 9.75 {
		t.Fatalf("expected stream fallback 9.75, got %v", result.DurationSeconds())
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if got := result.DurationSeconds(); got != 0 {
		t.Fatalf("expected 0 for unparseable duration, got %v", got)
	}
	if !math.IsNaN(parseFloat("bad")) {
		t.Fatal("expected NaN for unparseable value")
	}
}

func TestInspectorUsesRunner(t *testing.T) {
	payload := []byte(`{"format":{"duration":"6.5","format_name":"mp3"},"streams":[{"codec_type":"audio","channels":1}]}`)
	var gotBinary string
	var gotArgs []string
	inspector := &Inspector{
		Binary: "/opt/bin/ffprobe",
		Run: func(_ context.Context, binary string, args ...string) ([]byte, error) {
			gotBinary = binary
			gotArgs = args
			return payload, nil
		},
	}

	duration, err := inspector.DurationSeconds(context.Background(), "/tmp/narration.mp3")
	if err != nil {
		t.Fatalf("DurationSeconds returned error: %v", err)
	}
	if duration != 6.5 {
		t.Fatalf("unexpected duration %v", duration)
	}
	if gotBinary != "/opt/bin/ffprobe" {
		t.Fatalf("unexpected binary %q", gotBinary)
	}
	if gotArgs[len(gotArgs)-1] != "/tmp/narration.mp3" {
		t.Fatalf("expected path as final arg, got %v", gotArgs)
	}
}

func TestInspectorPropagatesRunnerError(t *testing.T) {
	inspector := &Inspector{
		Run: func(context.Context, string, ...string) ([]byte, error) {
			return []byte("No such file or directory"), errors.New("exit status 1")
		},
	}
	if _, err := inspector.Inspect(context.Background(), "/missing.mp3"); err == nil {
		t.Fatal("expected error from failed probe")
	}
}

func TestInspectorRejectsEmptyPath(t *testing.T) {
	inspector := New("")
	if _, err := inspector.Inspect(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDurationSecondsRejectsZeroDuration(t *testing.T) {
	inspector := &Inspector{
		Run: func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"format":{},"streams":[]}`), nil
		},
	}
	if _, err := inspector.DurationSeconds(context.Background(), "/tmp/a.mp3"); err == nil {
		t.Fatal("expected error when no duration is reported")
	}
}
