package server

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepTimeout = 5 * time.Minute

// Sweep marks past-due invoices overdue and expires stale quotations.
func (a *App) Sweep(ctx context.Context, now time.Time) error {
	overdue, err := a.Invoices.MarkOverdue(ctx, now)
	expired, expErr := a.Quotations.ExpireDue(ctx, now)
	if err = errors.Join(err, expErr); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"overdue": overdue, "expired": expired}).Info("sweep finished")
	return nil
}

// ScheduleSweeps registers Sweep on c. An empty spec leaves c untouched.
func (a *App) ScheduleSweeps(c *cron.Cron, spec string) error {
	if spec == "" {
		return nil
	}
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := a.Sweep(ctx, time.Now()); err != nil {
			a.log.WithError(err).Error("billing sweep failed")
		}
	})
	return err
}
