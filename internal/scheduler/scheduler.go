// Package scheduler triggers the load chain once a day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"starload/internal/etl"
)

// DefaultAt is the daily trigger time.
const DefaultAt = "01:00"

// ErrRunning is returned by RunNow while another run is in progress.
var ErrRunning = errors.New("scheduler: run already in progress")

// Chain runs a list of jobs; *etl.Runner implements it.
type Chain interface {
	Run(ctx context.Context, jobs []etl.Job) (etl.Report, error)
}

type Config struct {
	// At is the local time of day, "HH:MM" or "HH:MM:SS".
	At       string
	Location *time.Location
	Jobs     []etl.Job

	// OnReport receives every finished report, e.g. to flush metrics.
	OnReport func(etl.Report, error)
}

// Service runs Chain daily. Runs never overlap: a trigger that fires while
// a run is in progress is skipped.
type Service struct {
	scheduler *gocron.Scheduler
	chain     Chain
	config    Config
	log       logrus.FieldLogger

	syncMutex          sync.Mutex
	syncRunning        bool
	lastRunStartedAt   time.Time
	lastRunCompletedAt time.Time
}

func NewService(chain Chain, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.At == "" {
		cfg.At = DefaultAt
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		scheduler: gocron.NewScheduler(cfg.Location),
		chain:     chain,
		config:    cfg,
		log:       log.WithField("component", "scheduler"),
	}
}

// Start schedules the daily run and returns. Canceling ctx stops the
// scheduler.
func (s *Service) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(1).Day().At(s.config.At).Do(func() {
		if _, err := s.RunNow(ctx); err != nil && !errors.Is(err, ErrRunning) {
			s.log.WithError(err).Error("scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: schedule daily run at %q: %w", s.config.At, err)
	}

	s.scheduler.StartAsync()
	_, next := s.scheduler.NextRun()
	s.log.WithFields(logrus.Fields{"at": s.config.At, "next_run": next}).Info("daily run scheduled")

	go func() {
		<-ctx.Done()
		s.log.Info("stopping scheduler")
		s.scheduler.Stop()
	}()
	return nil
}

// NextRun returns the time of the next scheduled run.
func (s *Service) NextRun() time.Time {
	_, t := s.scheduler.NextRun()
	return t
}

// Running reports whether the scheduler loop is active.
func (s *Service) Running() bool { return s.scheduler.IsRunning() }

// RunNow runs the chain once, synchronously. It returns ErrRunning without
// running when a run is already in progress.
func (s *Service) RunNow(ctx context.Context) (etl.Report, error) {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		s.log.Warn("run already in progress, skipping")
		return etl.Report{}, ErrRunning
	}
	s.syncRunning = true
	s.lastRunStartedAt = time.Now()
	s.syncMutex.Unlock()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.lastRunCompletedAt = time.Now()
		s.syncMutex.Unlock()
	}()

	s.log.Info("starting run")
	rep, err := s.chain.Run(ctx, s.config.Jobs)
	if err == nil {
		err = rep.Err()
	}
	if s.config.OnReport != nil {
		s.config.OnReport(rep, err)
	}

	fields := logrus.Fields{"run_id": rep.RunID.String(), "duration": rep.Duration()}
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("run finished with errors")
		return rep, err
	}
	s.log.WithFields(fields).Info("run finished")
	return rep, nil
}

// LastRun returns when the most recent run started and completed.
func (s *Service) LastRun() (started, completed time.Time) {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()
	return s.lastRunStartedAt, s.lastRunCompletedAt
}
