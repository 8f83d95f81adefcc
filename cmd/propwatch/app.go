package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/propwatch/propwatch/config"
	"github.com/propwatch/propwatch/gitsync"
	"github.com/propwatch/propwatch/metrics"
	"github.com/propwatch/propwatch/notify"
	"github.com/propwatch/propwatch/proposal"
	"github.com/propwatch/propwatch/proposal/engine"
	"github.com/propwatch/propwatch/runner"
	"github.com/propwatch/propwatch/storage"
	"github.com/propwatch/propwatch/watchmode"
)

// App wires together the components for one invocation.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *storage.Store
	engine  *engine.Engine
	metrics *metrics.Metrics

	natsPub *notify.NATSPublisher
}

// newApp loads config and opens storage.
func newApp(configPath string, logger *slog.Logger) (*App, error) {
	cfg, err := config.NewLoader(logger).Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := storage.Open(filepath.Join(cfg.DataDir, "propwatch.db"))
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		engine: engine.New(store, logger),
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.natsPub != nil {
		a.natsPub.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}

// newRunner assembles the check runner with the configured channels.
func (a *App) newRunner() (*runner.Runner, error) {
	channels := []notify.Notifier{notify.NewConsole()}
	if a.cfg.NATS.URL != "" {
		pub, err := notify.NewNATSPublisher(a.cfg.NATS.URL, a.cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		a.natsPub = pub
		channels = append(channels, pub)
	}

	opts := []runner.Option{
		runner.WithNotifier(&notify.Multi{Channels: channels, Logger: a.logger}),
		runner.WithConcurrency(a.cfg.Concurrency),
		runner.WithPriorityKinds(a.cfg.Priority()),
	}
	if a.cfg.Metrics.Addr != "" {
		a.metrics = metrics.New()
		opts = append(opts, runner.WithMetrics(a.metrics))
	}

	timeout, err := time.ParseDuration(a.cfg.SyncTimeout)
	if err != nil {
		timeout = 5 * time.Minute
	}
	git := gitsync.NewClient(filepath.Join(a.cfg.DataDir, "repos"), timeout, a.logger)

	return runner.New(a.engine, git, a.logger, opts...), nil
}

func checkCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check all enabled trackers once (or on the configured schedule)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*logLevel)
			app, err := newApp(*configPath, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			r, err := app.newRunner()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if app.metrics != nil {
				go func() {
					if err := app.metrics.Serve(ctx, app.cfg.Metrics.Addr, logger); err != nil {
						logger.Warn("metrics server failed", slog.String("error", err.Error()))
					}
				}()
			}

			trackers := app.cfg.ProposalTrackers()
			if app.cfg.Schedule != "" {
				return r.Schedule(ctx, app.cfg.Schedule, trackers)
			}

			result := r.CheckAll(ctx, trackers)
			success, failed, skipped := result.StatusCounts()
			logger.Info("check complete",
				slog.Int("events", len(result.Events)),
				slog.Int("notified", len(result.Notified)),
				slog.Int("success", success),
				slog.Int("failed", failed),
				slog.Int("skipped", skipped))
			if failed > 0 {
				return fmt.Errorf("%d tracker(s) failed", failed)
			}
			return nil
		},
	}
}

func watchCmd(configPath, logLevel *string) *cobra.Command {
	var trackerID string
	cmd := &cobra.Command{
		Use:   "watch <workdir>",
		Short: "Watch a local working tree and re-check on changes (no git sync)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*logLevel)
			app, err := newApp(*configPath, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			var tracker *proposal.Tracker
			for _, t := range app.cfg.ProposalTrackers() {
				if t.ID == trackerID {
					tracker = &t
					break
				}
			}
			if tracker == nil {
				return fmt.Errorf("unknown tracker id %q", trackerID)
			}

			ctx, cancel := signalContext()
			defer cancel()

			console := notify.NewConsole()
			w := watchmode.New(app.engine, *tracker, args[0], logger)
			return w.Run(ctx, func(events []proposal.ProposalEvent) {
				_ = console.Notify(ctx, events, nil)
			})
		},
	}
	cmd.Flags().StringVar(&trackerID, "tracker", "", "Tracker id from the config to run against the tree")
	_ = cmd.MarkFlagRequired("tracker")
	return cmd
}

func trackersCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "trackers",
		Short: "List configured trackers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*logLevel)
			app, err := newApp(*configPath, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			for _, t := range app.cfg.ProposalTrackers() {
				state := "enabled"
				if !t.Enabled {
					state = "disabled"
				}
				fmt.Printf("%-14s %-11s %-9s %s\n", t.ID, t.Type, state, t.RepoURL)
			}
			return nil
		},
	}
}

func eventsCmd(configPath, logLevel *string) *cobra.Command {
	var limit int
	var trackerID string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print recent proposal events",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*logLevel)
			app, err := newApp(*configPath, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			var events []proposal.ProposalEvent
			if trackerID != "" {
				events, err = app.store.EventsForTracker(ctx, trackerID, limit)
			} else {
				events, err = app.store.RecentEvents(ctx, limit)
			}
			if err != nil {
				return err
			}

			for _, ev := range events {
				fmt.Printf("%s  %-11s %-16s #%-6d %s\n",
					ev.DetectedAt.Format(time.RFC3339), ev.TrackerType, ev.Kind, ev.ProposalNumber, ev.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum events to print")
	cmd.Flags().StringVar(&trackerID, "tracker", "", "Restrict to one tracker id")
	return cmd
}
