// Package scheduler triggers polling cycles on a fixed interval.
//
// Triggers funnel through a single worker goroutine, so cycles can
// never run concurrently from here; a trigger arriving while one is
// already pending is dropped (the next tick covers the same baseline).
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "appwatch/pkg/logx"
)

type Config struct {
	// Timezone is an IANA TZ name, e.g. "Asia/Jakarta". Empty means local.
	Timezone string
}

// Job runs one polling cycle.
type Job func(ctx context.Context)

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	c       *cron.Cron
	entryID cron.EntryID
	every   time.Duration
	job     Job

	queue  chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, cfg: cfg}
}

// Start launches the cron loop and the single trigger worker.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	// Capacity 1: at most one pending trigger; extras are dropped.
	s.queue = make(chan struct{}, 1)

	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithLocation(loc))

	if s.every > 0 {
		s.addEntryLocked()
	}

	s.wg.Add(1)
	go s.worker(ctx)
	s.c.Start()
	s.log.Info("scheduler started", logx.String("tz", loc.String()))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Schedule installs (or replaces) the interval and job. Safe to call
// before Start and again on config reload.
func (s *Service) Schedule(every time.Duration, job Job) error {
	if every <= 0 {
		return errors.New("scheduler: interval must be > 0")
	}
	if job == nil {
		return errors.New("scheduler: job is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.every = every
	s.job = job
	if s.c == nil {
		// Not started yet; Start will register the entry.
		return nil
	}
	if s.entryID != 0 {
		s.c.Remove(s.entryID)
		s.entryID = 0
	}
	return s.addEntryLocked()
}

func (s *Service) addEntryLocked() error {
	spec := fmt.Sprintf("@every %s", s.every.String())
	id, err := s.c.AddFunc(spec, s.enqueue)
	if err != nil {
		return fmt.Errorf("scheduler: add %q: %w", spec, err)
	}
	s.entryID = id
	s.log.Info("cycle scheduled", logx.Duration("every", s.every))
	return nil
}

// TriggerNow enqueues an immediate cycle (used for the run at process
// start). Dropped if a trigger is already pending.
func (s *Service) TriggerNow() { s.enqueue() }

func (s *Service) enqueue() {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		return
	}
	select {
	case q <- struct{}{}:
	default:
		s.log.Warn("cycle trigger dropped; one already pending")
	}
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	s.mu.Lock()
	q := s.queue
	stop := s.stopCh
	s.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-q:
			s.mu.Lock()
			job := s.job
			s.mu.Unlock()
			if job != nil {
				job(ctx)
			}
		}
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
