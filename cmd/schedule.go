package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/store"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Rebuild the ledger periodically on a cron schedule",
	Long:  "Runs in the foreground and rebuilds the ledger on schedule.cron until interrupted. Overlapping runs are skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if v, _ := cmd.Flags().GetString("cron"); v != "" {
			cfg.Schedule.Cron = v
		}
		st, err := openStore(ctx, "schedule")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runNow, _ := cmd.Flags().GetBool("now")
		c, err := newScheduler(ctx, st, cfg.Schedule.Cron, cfg.Schedule.Timezone)
		if err != nil {
			return err
		}
		if runNow {
			scheduledRebuild(ctx, st)
		}

		c.Start()
		zap.L().Info("schedule: started",
			zap.String("cron", cfg.Schedule.Cron),
			zap.String("timezone", cfg.Schedule.Timezone),
		)
		<-ctx.Done()
		<-c.Stop().Done()
		zap.L().Info("schedule: stopped")
		return nil
	},
}

func init() {
	scheduleCmd.Flags().String("cron", "", "cron spec (overrides schedule.cron)")
	scheduleCmd.Flags().Bool("now", false, "rebuild once immediately before waiting for the schedule")
	rootCmd.AddCommand(scheduleCmd)
}

// newScheduler registers a ledger rebuild on spec in timezone tz.
func newScheduler(ctx context.Context, st store.Store, spec, tz string) (*cron.Cron, error) {
	loc := time.Local
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, eris.Wrapf(err, "schedule: load timezone %q", tz)
		}
		loc = l
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() { scheduledRebuild(ctx, st) }); err != nil {
		return nil, eris.Wrapf(err, "schedule: invalid cron spec %q", spec)
	}
	return c, nil
}

func scheduledRebuild(ctx context.Context, st store.Store) {
	log := zap.L().With(zap.String("component", "schedule"))
	if ctx.Err() != nil {
		return
	}
	res, err := runRebuild(ctx, st)
	if err != nil {
		log.Error("schedule: rebuild failed", zap.Error(err))
	} else {
		log.Info("schedule: rebuild complete",
			zap.String("version", res.Version.ID),
			zap.Int("customers", res.Version.Customers),
			zap.Int("lines", res.Version.Lines),
		)
	}

	if _, _, err := newChecker(st).Check(ctx); err != nil {
		log.Warn("schedule: health check failed", zap.Error(err))
	}
}
