package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule проверяет cron-выражение (пять полей или @every/@hourly и т.п.).
func ValidateSchedule(spec string) error {
	if _, err := scheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// RunSchedule выполняет job по расписанию до отмены ctx.
// Запуск пропускается, если предыдущий еще не завершился.
func RunSchedule(ctx context.Context, spec string, log *slog.Logger, job func(ctx context.Context)) error {
	if err := ValidateSchedule(spec); err != nil {
		return err
	}
	cronLog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelWarn))
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	log.Info("Scheduler started", slog.String("component", "scheduler"), slog.String("schedule", spec))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("Scheduler stopped", slog.String("component", "scheduler"))
	return nil
}
