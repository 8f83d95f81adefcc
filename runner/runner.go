// Package runner drives check passes over all configured trackers:
// sync, engine run, prioritization and notification, with per-tracker
// failure isolation.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/propwatch/propwatch/analyze"
	"github.com/propwatch/propwatch/metrics"
	"github.com/propwatch/propwatch/notify"
	"github.com/propwatch/propwatch/proposal"
	"github.com/propwatch/propwatch/proposal/engine"
)

// Tracker run outcomes recorded per check pass.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Syncer is the external git collaborator.
type Syncer interface {
	Sync(ctx context.Context, repoURL, branch string) (string, error)
}

// Result summarizes one check pass over all trackers.
type Result struct {
	// Events are all detected events across trackers, in tracker order.
	Events []proposal.ProposalEvent
	// Notified are the high-priority events handed to the notifier.
	Notified []proposal.ProposalEvent
	// Statuses maps tracker id to its run outcome.
	Statuses map[string]string
}

// StatusCounts returns (success, failed, skipped) totals.
func (r Result) StatusCounts() (int, int, int) {
	var success, failed, skipped int
	for _, s := range r.Statuses {
		switch s {
		case StatusSuccess:
			success++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return success, failed, skipped
}

// Runner executes check passes.
type Runner struct {
	engine      *engine.Engine
	syncer      Syncer
	notifier    notify.Notifier
	analyzer    analyze.Analyzer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
	priority    []proposal.EventKind
}

// Option configures a Runner.
type Option func(*Runner)

// WithNotifier sets the notification channel for high-priority events.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithAnalyzer sets the best-effort event summarizer.
func WithAnalyzer(a analyze.Analyzer) Option {
	return func(r *Runner) { r.analyzer = a }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithConcurrency bounds parallel tracker checks.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithPriorityKinds overrides the high-priority event subset.
func WithPriorityKinds(kinds []proposal.EventKind) Option {
	return func(r *Runner) { r.priority = kinds }
}

// New creates a runner around the engine and git collaborator.
func New(eng *engine.Engine, syncer Syncer, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		engine:      eng,
		syncer:      syncer,
		analyzer:    analyze.Disabled{},
		logger:      logger,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckAll runs every enabled tracker once. Trackers are independent:
// they run on a bounded worker pool and one tracker's failure never
// blocks the others. Failed trackers are retried on the next pass.
func (r *Runner) CheckAll(ctx context.Context, trackers []proposal.Tracker) Result {
	start := time.Now()
	result := Result{Statuses: make(map[string]string, len(trackers))}

	type outcome struct {
		tracker proposal.Tracker
		events  []proposal.ProposalEvent
		err     error
	}

	work := make(chan proposal.Tracker)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range work {
				events, err := r.checkOne(ctx, t)
				outcomes <- outcome{tracker: t, events: events, err: err}
			}
		}()
	}

	go func() {
		for _, t := range trackers {
			if !t.Enabled {
				outcomes <- outcome{tracker: t, err: errSkipped}
				continue
			}
			work <- t
		}
		close(work)
		wg.Wait()
		close(outcomes)
	}()

	// Collect per-tracker outcomes; event order across trackers does
	// not matter for correctness, each tracker's own events stay
	// ordered by proposal number.
	for o := range outcomes {
		switch {
		case o.err == errSkipped:
			result.Statuses[o.tracker.ID] = StatusSkipped
		case o.err != nil:
			result.Statuses[o.tracker.ID] = StatusFailed
			r.logger.Warn("tracker check failed",
				slog.String("tracker", o.tracker.Key()),
				slog.String("error", o.err.Error()))
			r.countRun(o.tracker.ID, StatusFailed)
		default:
			result.Statuses[o.tracker.ID] = StatusSuccess
			result.Events = append(result.Events, o.events...)
			r.countRun(o.tracker.ID, StatusSuccess)
			for _, ev := range o.events {
				if r.metrics != nil {
					r.metrics.EventsTotal.WithLabelValues(o.tracker.ID, string(ev.Kind)).Inc()
				}
			}
		}
	}

	result.Notified = proposal.Prioritize(result.Events, r.priority)
	r.deliver(ctx, result.Notified)

	if r.metrics != nil {
		r.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}
	return result
}

var errSkipped = fmt.Errorf("tracker disabled")

func (r *Runner) checkOne(ctx context.Context, tracker proposal.Tracker) ([]proposal.ProposalEvent, error) {
	workdir, err := r.syncer.Sync(ctx, tracker.RepoURL, tracker.Branch)
	if err != nil {
		return nil, err
	}
	return r.engine.Run(ctx, tracker, workdir)
}

// deliver summarizes and notifies high-priority events. Both steps are
// best-effort: events are already durable by the time this runs.
func (r *Runner) deliver(ctx context.Context, events []proposal.ProposalEvent) {
	if r.notifier == nil || len(events) == 0 {
		return
	}

	analyses := make(map[string]*analyze.Analysis, len(events))
	for _, ev := range events {
		a, err := r.analyzer.Summarize(ctx, ev)
		if err != nil {
			r.logger.Warn("event analysis failed",
				slog.String("event", ev.ID), slog.String("error", err.Error()))
			continue
		}
		if a != nil {
			analyses[ev.ID] = a
		}
	}

	if err := r.notifier.Notify(ctx, events, analyses); err != nil {
		r.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}

func (r *Runner) countRun(trackerID, status string) {
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(trackerID, status).Inc()
	}
}

// Schedule runs CheckAll on the given cron expression until ctx is
// cancelled. The first pass runs immediately.
func (r *Runner) Schedule(ctx context.Context, spec string, trackers []proposal.Tracker) error {
	r.CheckAll(ctx, trackers)

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		res := r.CheckAll(ctx, trackers)
		success, failed, skipped := res.StatusCounts()
		r.logger.Info("scheduled check complete",
			slog.Int("events", len(res.Events)),
			slog.Int("success", success),
			slog.Int("failed", failed),
			slog.Int("skipped", skipped))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}
