package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ghazisdi/followsync/graph"
)

// Outcome is the result of one unfollow attempt.
type Outcome struct {
	Entity      graph.Entity `json:"entity"`
	Succeeded   bool         `json:"succeeded"`
	ErrorDetail string       `json:"errorDetail,omitempty"`
}

// SchedulerOptions control the pacing between consecutive mutation calls.
// The delay is drawn uniformly from [MinDelay, MaxDelay] to keep the call
// cadence irregular; it is a policy knob, not a correctness requirement, and
// both may be zero for tests.
type SchedulerOptions struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

func DefaultSchedulerOptions() *SchedulerOptions {
	return &SchedulerOptions{
		MinDelay: 4 * time.Second,
		MaxDelay: 6 * time.Second,
	}
}

// Scheduler issues one unfollow call per target, strictly sequentially and in
// input order. A single target failing is recorded and does not abort the
// run; there is no retry of a failed target within a run.
type Scheduler struct {
	client graph.Client
	opts   *SchedulerOptions
	log    *slog.Logger

	// OnOutcome, if set, is called after each target resolves.
	OnOutcome func(Outcome)
}

func NewScheduler(client graph.Client, opts *SchedulerOptions) *Scheduler {
	if opts == nil {
		opts = DefaultSchedulerOptions()
	}
	return &Scheduler{
		client: client,
		opts:   opts,
		log:    slog.Default().With("system", "scheduler"),
	}
}

// Run processes targets until done or cancelled. Cancellation takes effect
// before the next call; outcomes already produced remain valid and already
// applied mutations are never rolled back.
func (s *Scheduler) Run(ctx context.Context, targets []graph.Entity) []Outcome {
	outcomes := make([]Outcome, 0, len(targets))

	for i, target := range targets {
		if i > 0 && !s.pause(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		outcome := s.unfollow(ctx, target)
		outcomes = append(outcomes, outcome)
		if !outcome.Succeeded {
			s.log.Warn("unfollow failed", "username", target.Username, "id", target.ID, "detail", outcome.ErrorDetail)
		}
		if s.OnOutcome != nil {
			s.OnOutcome(outcome)
		}
	}
	return outcomes
}

func (s *Scheduler) unfollow(ctx context.Context, target graph.Entity) Outcome {
	res, err := s.client.MutateEdge(ctx, target.ID, graph.ActionUnfollow)
	if err != nil {
		unfollowsProcessed.WithLabelValues("error").Inc()
		return Outcome{Entity: target, ErrorDetail: err.Error()}
	}
	if !res.Succeeded {
		unfollowsProcessed.WithLabelValues("rejected").Inc()
		return Outcome{Entity: target, ErrorDetail: res.Diagnostic}
	}
	unfollowsProcessed.WithLabelValues("success").Inc()
	return Outcome{Entity: target, Succeeded: true}
}

// pause sleeps for a random duration in [MinDelay, MaxDelay], returning false
// if the context is cancelled before the delay elapses.
func (s *Scheduler) pause(ctx context.Context) bool {
	delay := s.opts.MinDelay
	if jitter := s.opts.MaxDelay - s.opts.MinDelay; jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(jitter) + 1))
	}
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
