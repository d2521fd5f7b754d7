package notify

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/errsight/errsight/internal/store"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// RunDigestLoop fires the daily digest on the given cron schedule until
// the context is cancelled. An unparsable expression disables the loop.
func (d *Dispatcher) RunDigestLoop(ctx context.Context, logs *store.Logs, expr string) {
	next := nextCronDuration(expr)
	if next <= 0 {
		log.Printf("notify: digest disabled, bad cron expression %q", expr)
		return
	}
	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.fireDigest(ctx, logs)
			if next := nextCronDuration(expr); next > 0 {
				timer.Reset(next)
			}
		}
	}
}

// fireDigest builds and posts a single digest.
func (d *Dispatcher) fireDigest(ctx context.Context, logs *store.Logs) {
	rep, err := BuildDailyDigest(ctx, logs)
	if err != nil {
		log.Printf("notify: digest build failed: %v", err)
		return
	}
	if rep == nil {
		return
	}
	d.Digest(ctx, rep)
}
