// Package sweeper periodically reconciles session state with the clock: it
// announces sessions that are about to start and marks sessions whose meeting
// never started as no-shows.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/realtime"
)

// Defaults applied by Config.normalize.
const (
	DefaultSpec           = "* * * * *"
	DefaultReminderLead   = 10 * time.Minute
	DefaultNoShowLookback = 24 * time.Hour
)

// Store is the subset of the session store the sweeper needs.
type Store interface {
	ListSessionsBetween(ctx context.Context, from, to time.Time) ([]domain.Session, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (domain.Session, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}

// Publisher receives the events produced by a sweep.
type Publisher interface {
	Publish(ctx context.Context, event realtime.Event)
}

// Config controls the schedule and the windows a sweep inspects.
type Config struct {
	// Spec is a standard five-field cron expression.
	Spec string
	// ReminderLead is how far ahead of the start a starting-soon event is sent.
	ReminderLead time.Duration
	// NoShowLookback bounds how far back ended sessions are reconciled.
	NoShowLookback time.Duration
}

func (c Config) normalize() Config {
	if c.Spec == "" {
		c.Spec = DefaultSpec
	}
	if c.ReminderLead <= 0 {
		c.ReminderLead = DefaultReminderLead
	}
	if c.NoShowLookback <= 0 {
		c.NoShowLookback = DefaultNoShowLookback
	}
	return c
}

// Result summarizes one sweep.
type Result struct {
	Inspected int
	Reminded  int
	NoShows   int
}

// Sweeper runs Sweep on a cron schedule.
type Sweeper struct {
	store     Store
	publisher Publisher
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New validates cfg.Spec and constructs a Sweeper.
func New(store Store, publisher Publisher, cfg Config, now func() time.Time, logger *slog.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("sweeper: store is required")
	}
	cfg = cfg.normalize()
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("sweeper: invalid cron spec %q: %w", cfg.Spec, err)
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       now,
		logger:    logger.With("component", "sweeper"),
	}, nil
}

// Start schedules sweeps until ctx is cancelled or Stop is called. Overlapping
// runs are skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("sweeper: already started")
	}

	cronLogger := slogCronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(s.cfg.Spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.ErrorContext(ctx, "sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("sweeper: schedule: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.InfoContext(ctx, "sweeper started", "spec", s.cfg.Spec, "reminder_lead", s.cfg.ReminderLead.String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// Sweep inspects sessions near the current instant once.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	sessions, err := s.store.ListSessionsBetween(ctx, now.Add(-s.cfg.NoShowLookback), now.Add(s.cfg.ReminderLead))
	if err != nil {
		return Result{}, fmt.Errorf("sweeper: list sessions: %w", err)
	}

	result := Result{Inspected: len(sessions)}
	var errs []error
	for _, session := range sessions {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if !pending(session) {
			continue
		}

		switch {
		case startsSoon(session, now, s.cfg.ReminderLead):
			sent, err := s.remind(ctx, session, now)
			if err != nil {
				errs = append(errs, err)
			} else if sent {
				result.Reminded++
			}
		case !session.EndUTC.After(now):
			marked, err := s.markNoShow(ctx, session, now)
			if err != nil {
				errs = append(errs, err)
			} else if marked {
				result.NoShows++
			}
		}
	}

	if result.Reminded > 0 || result.NoShows > 0 {
		s.logger.InfoContext(ctx, "sweep completed", "inspected", result.Inspected, "reminded", result.Reminded, "no_shows", result.NoShows)
	}
	return result, errors.Join(errs...)
}

func (s *Sweeper) remind(ctx context.Context, session domain.Session, now time.Time) (bool, error) {
	if err := s.store.MarkReminderSent(ctx, session.ID, now); err != nil {
		if errors.Is(err, persistence.ErrStaleState) {
			return false, nil
		}
		return false, fmt.Errorf("sweeper: mark reminder %s: %w", session.ID, err)
	}
	s.publish(ctx, realtime.SessionEvent(realtime.EventSessionStartingSoon, session, now))
	return true, nil
}

func (s *Sweeper) markNoShow(ctx context.Context, session domain.Session, now time.Time) (bool, error) {
	updated, err := s.store.UpdateStatus(ctx, session.ID, domain.StatusScheduled, domain.StatusNoShow, now)
	if err != nil {
		if errors.Is(err, persistence.ErrStaleState) {
			return false, nil
		}
		return false, fmt.Errorf("sweeper: mark no-show %s: %w", session.ID, err)
	}
	s.logger.InfoContext(ctx, "session marked no-show", "session_id", session.ID)
	s.publish(ctx, realtime.SessionEvent(realtime.EventSessionStatusChanged, updated, now))
	return true, nil
}

func (s *Sweeper) publish(ctx context.Context, event realtime.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, event)
	}
}

// pending reports whether the session is booked and its meeting never began.
func pending(session domain.Session) bool {
	if session.Status != domain.StatusScheduled {
		return false
	}
	return session.MeetingStatus == "" || session.MeetingStatus == domain.MeetingNotStarted
}

func startsSoon(session domain.Session, now time.Time, lead time.Duration) bool {
	return !session.StartUTC.Before(now) && session.StartUTC.Before(now.Add(lead))
}

// slogCronLogger adapts slog to the cron logger interface.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
