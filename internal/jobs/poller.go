package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelsmith/internal/services"
)

// Status represents the lifecycle of a remote generation job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is the observed state of a remote generation job.
type Job struct {
	ID     string
	Status Status
	// Result is the artifact URI reported on success.
	Result string
	// Detail carries the service's failure explanation, when present.
	Detail string
}

// DescribeFunc fetches the current state of a job from the remote service.
type DescribeFunc func(ctx context.Context, jobID string) (Job, error)

// Options controls the polling loop.
type Options struct {
	// Timeout bounds the total wait, measured from the first describe call.
	Timeout time.Duration
	// PollInterval is the fixed delay between describe calls.
	PollInterval time.Duration

	// now and sleep are test hooks; nil selects the real clock.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// WithClock overrides time observation and sleeping (used in tests).
func (o Options) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Options {
	o.now = now
	o.sleep = sleep
	return o
}

// Await polls describe until the job reaches a terminal state, the deadline
// passes, or ctx is cancelled.
//
// On StatusSucceeded the terminal job is returned. StatusFailed yields a
// services.ErrJobFailed carrying the job's detail. A deadline reached while
// the job is still pending or running yields services.ErrJobTimeout. On
// cancellation the poller stops issuing describe calls and returns ctx's
// error; the remote job is left to finish on its own, since upstream exposes
// no cancellation.
//
// Transport errors from describe do not abort the wait: the job may still
// complete, so polling continues until the deadline, and the last describe
// error is attached to the timeout for diagnostics.
func Await(ctx context.Context, jobID string, describe DescribeFunc, opts Options) (Job, error) {
	if describe == nil {
		return Job{}, services.Wrap(services.ErrConfiguration, "jobs", "await", "describe function required", nil)
	}
	if strings.TrimSpace(jobID) == "" {
		return Job{}, services.Wrap(services.ErrConfiguration, "jobs", "await", "job id required", nil)
	}
	if opts.Timeout <= 0 || opts.PollInterval <= 0 {
		return Job{}, services.Wrap(services.ErrConfiguration, "jobs", "await",
			fmt.Sprintf("timeout %s and poll interval %s must be positive", opts.Timeout, opts.PollInterval), nil)
	}

	now := opts.now
	if now == nil {
		now = time.Now
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	deadline := now().Add(opts.Timeout)
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		job, err := describe(ctx, jobID)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Job{}, err
			}
			lastErr = err
		case job.Status == StatusSucceeded:
			return job, nil
		case job.Status == StatusFailed:
			detail := strings.TrimSpace(job.Detail)
			if detail == "" {
				detail = "remote service reported failure"
			}
			return Job{}, services.Wrap(services.ErrJobFailed, "jobs", "await job "+jobID, detail, nil)
		}

		if !now().Before(deadline) {
			return Job{}, services.Wrap(services.ErrJobTimeout, "jobs", "await job "+jobID,
				fmt.Sprintf("no terminal state within %s", opts.Timeout), lastErr)
		}
		if err := sleep(ctx, opts.PollInterval); err != nil {
			return Job{}, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
