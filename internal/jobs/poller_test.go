package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/services"
)

// fakeClock advances on every sleep so deadline checks are deterministic.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func testOptions(c *fakeClock, timeout, interval time.Duration) Options {
	return Options{Timeout: timeout, PollInterval: interval}.WithClock(c.Now, c.Sleep)
}

func TestAwaitSucceedsAfterPolls(t *testing.T) {
	clock := newFakeClock()
	states := []Status{StatusPending, StatusRunning, StatusSucceeded}
	calls := 0
	describe := func(_ context.Context, jobID string) (Job, error) {
		if jobID != "job-1" {
			t.Fatalf("unexpected job id %q", jobID)
		}
		job := Job{ID: jobID, Status: states[calls]}
		if job.Status == StatusSucceeded {
			job.Result = "https://cdn.example/clip.mp4"
		}
		calls++
		return job, nil
	}

	job, err := Await(context.Background(), "job-1", describe, testOptions(clock, time.Minute, 5*time.Second))
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if job.Result != "https://cdn.example/clip.mp4" {
		t.Fatalf("unexpected result %q", job.Result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 describe calls, got %d", calls)
	}
	if len(clock.sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(clock.sleeps))
	}
	for _, d := range clock.sleeps {
		if d != 5*time.Second {
			t.Fatalf("expected fixed 5s interval, slept %s", d)
		}
	}
}

func TestAwaitTimesOutWhileRunning(t *testing.T) {
	clock := newFakeClock()
	describe := func(context.Context, string) (Job, error) {
		return Job{ID: "job-2", Status: StatusRunning}, nil
	}

	_, err := Await(context.Background(), "job-2", describe, testOptions(clock, 10*time.Second, 4*time.Second))
	if !errors.Is(err, services.ErrJobTimeout) {
		t.Fatalf("expected job timeout, got %v", err)
	}
	// Describe at t=0, 4, 8; at 12s past deadline, no further poll.
	if len(clock.sleeps) != 3 {
		t.Fatalf("expected 3 sleeps before timeout, got %d", len(clock.sleeps))
	}
}

func TestAwaitReportsFailureDetail(t *testing.T) {
	clock := newFakeClock()
	describe := func(context.Context, string) (Job, error) {
		return Job{ID: "job-3", Status: StatusFailed, Detail: "face not detected"}, nil
	}

	_, err := Await(context.Background(), "job-3", describe, testOptions(clock, time.Minute, time.Second))
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("expected job failed, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "face not detected") {
		t.Fatalf("expected failure detail in error, got %q", got)
	}
}

func TestAwaitToleratesDescribeErrorsUntilDeadline(t *testing.T) {
	clock := newFakeClock()
	transport := errors.New("connection reset")
	calls := 0
	describe := func(context.Context, string) (Job, error) {
		calls++
		if calls < 3 {
			return Job{}, transport
		}
		return Job{ID: "job-4", Status: StatusSucceeded, Result: "out.mp4"}, nil
	}

	job, err := Await(context.Background(), "job-4", describe, testOptions(clock, time.Minute, 2*time.Second))
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if job.Result != "out.mp4" {
		t.Fatalf("unexpected result %q", job.Result)
	}
}

func TestAwaitAttachesLastDescribeErrorToTimeout(t *testing.T) {
	clock := newFakeClock()
	transport := errors.New("upstream 502")
	describe := func(context.Context, string) (Job, error) {
		return Job{}, transport
	}

	_, err := Await(context.Background(), "job-5", describe, testOptions(clock, 5*time.Second, 2*time.Second))
	if !errors.Is(err, services.ErrJobTimeout) {
		t.Fatalf("expected job timeout, got %v", err)
	}
	if !errors.Is(err, transport) {
		t.Fatalf("expected transport error attached, got %v", err)
	}
}

func TestAwaitStopsOnCancellation(t *testing.T) {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	describe := func(context.Context, string) (Job, error) {
		calls++
		cancel()
		return Job{ID: "job-6", Status: StatusRunning}, nil
	}

	_, err := Await(ctx, "job-6", describe, Options{Timeout: time.Minute, PollInterval: time.Second}.WithClock(clock.Now,
		func(ctx context.Context, _ time.Duration) error { return ctx.Err() }))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single describe call, got %d", calls)
	}
}

func TestAwaitValidatesOptions(t *testing.T) {
	describe := func(context.Context, string) (Job, error) {
		return Job{Status: StatusSucceeded}, nil
	}
	cases := []struct {
		name  string
		jobID string
		opts  Options
	}{
		{name: "missing job id", jobID: " ", opts: Options{Timeout: time.Minute, PollInterval: time.Second}},
		{name: "zero timeout", jobID: "j", opts: Options{PollInterval: time.Second}},
		{name: "zero interval", jobID: "j", opts: Options{Timeout: time.Minute}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Await(context.Background(), tc.jobID, describe, tc.opts)
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
