package cron

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

type MailStats interface {
	StateCounts(ctx context.Context, since time.Time) ([]models.MailStateCount, error)
}

type Notifier interface {
	NotifyInfo(title string, message string, context map[string]string) error
}

// JobManager holds all available cron jobs
type JobManager struct {
	logger   *zap.SugaredLogger
	mails    MailStats
	notifier Notifier
	now      func() time.Time
}

func NewJobManager(logger *zap.SugaredLogger, mails MailStats, notifier Notifier) *JobManager {
	return &JobManager{
		logger:   logger,
		mails:    mails,
		notifier: notifier,
		now:      time.Now,
	}
}

// DispatchSummary reports how many wizard mails reached each state during the last window.
func (j *JobManager) DispatchSummary(window time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		since := j.now().Add(-window)
		counts, err := j.mails.StateCounts(ctx, since)
		if err != nil {
			j.logger.Errorw("error loading mail state counts", "error", err)
			return
		}

		var total int64
		fields := make(map[string]string, len(counts))
		for _, c := range counts {
			total += c.Count
			fields[c.State] = strconv.FormatInt(c.Count, 10)
		}

		j.logger.Infow("mail dispatch summary", "since", since, "total", total, "states", fields)

		if total == 0 {
			return
		}

		message := fmt.Sprintf("%d mails created since %s", total, since.Format(time.RFC3339))
		if err := j.notifier.NotifyInfo("Mail wizard summary", message, fields); err != nil {
			j.logger.Errorw("error sending summary notification", "error", err)
		}
	}
}
