package cron

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler runs the service's periodic jobs
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.SugaredLogger
	jobs      []Job
}

// Job represents a scheduled job
type Job struct {
	Name     string
	Schedule string
	Task     func()
	JobID    string
}

// NewScheduler creates a scheduler evaluating cron expressions in timezone.
func NewScheduler(logger *zap.SugaredLogger, timezone string) *Scheduler {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warnw("failed to load timezone, using UTC", "timezone", timezone, "error", err)
		location = time.UTC
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(location),
		gocron.WithLogger(gocron.NewLogger(gocron.LogLevelInfo)),
	)
	if err != nil {
		logger.Fatalw("failed to create scheduler", "error", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger,
		jobs:      make([]Job, 0),
	}
}

// Start registers the queued jobs and starts the scheduler
func (s *Scheduler) Start() {
	s.registerJobs()

	s.scheduler.Start()
	s.logger.Info("Scheduler started")
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Errorw("scheduler shutdown failed", "error", err)
		return
	}
	s.logger.Info("Scheduler stopped")
}

// registerJobs adds all queued jobs to gocron. A job that panics is logged and keeps its schedule.
func (s *Scheduler) registerJobs() {
	for i, job := range s.jobs {
		s.logger.Infow("registering job", "job", job.Name, "schedule", job.Schedule)

		task := func() {
			startTime := time.Now()

			defer func() {
				if r := recover(); r != nil {
					s.logger.Errorw("job panicked", "job", job.Name, "panic", r)
				}
			}()

			job.Task()

			s.logger.Infow("job completed", "job", job.Name, "duration", time.Since(startTime))
		}

		j, err := s.scheduler.NewJob(
			gocron.CronJob(job.Schedule, false),
			gocron.NewTask(task),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Errorw("failed to schedule job", "job", job.Name, "error", err)
			continue
		}

		s.jobs[i].JobID = j.ID().String()
	}
}

// AddJob queues a job with a five field cron expression; it is registered on Start
func (s *Scheduler) AddJob(name string, schedule string, task func()) {
	s.jobs = append(s.jobs, Job{
		Name:     name,
		Schedule: schedule,
		Task:     task,
	})
}
