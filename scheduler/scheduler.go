// Package scheduler periodically revalidates linked workspaces so the
// registry does not keep advertising teams the backend has dropped.
package scheduler

import (
	"context"
	"fmt"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/robfig/cron/v3"

	"SlackConnect/backend"
	"SlackConnect/db"
	"SlackConnect/utils"
	"SlackConnect/viewmodel"
)

const validateTimeout = 10 * time.Second

var log = utils.Log.New("pkg", "scheduler")

type Registry interface {
	ListConnected(ctx context.Context) ([]db.TeamConnection, error)
	MarkDisconnected(ctx context.Context, teamID string) error
	MarkValidated(ctx context.Context, teamID string, at time.Time) error
}

type Validator interface {
	Validate(ctx context.Context, teamID string) (*backend.Response, error)
}

type Scheduler struct {
	cron      *cron.Cron
	registry  Registry
	validator Validator
	now       func() time.Time
}

// New registers the revalidation job on schedule (standard cron or @every).
func New(schedule string, registry Registry, validator Validator) (*Scheduler, error) {
	logger := cronLogger{log}
	s := &Scheduler{
		cron:      cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		registry:  registry,
		validator: validator,
		now:       time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid revalidate schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	log.Info("Scheduler started")
	s.cron.Start()
}

// Stop halts the cron and returns a context that is done once the running
// job, if any, has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run() {
	s.processRevalidation(context.Background(), s.now())
}

func (s *Scheduler) processRevalidation(ctx context.Context, now time.Time) {
	teams, err := s.registry.ListConnected(ctx)
	if err != nil {
		log.Error("Failed to list connected teams", "err", err)
		return
	}

	for _, team := range teams {
		s.revalidate(ctx, team.TeamID, now)
	}
}

func (s *Scheduler) revalidate(ctx context.Context, teamID string, now time.Time) {
	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	resp, err := s.validator.Validate(ctx, teamID)
	switch {
	case backend.Rejected(err) || (err == nil && !viewmodel.Valid(resp.Body)):
		log.Info("Team no longer valid, marking disconnected", "team", teamID)
		if err := s.registry.MarkDisconnected(ctx, teamID); err != nil {
			log.Error("Failed to mark team disconnected", "team", teamID, "err", err)
		}
	case err != nil:
		log.Warn("Could not revalidate team", "team", teamID, "err", err)
	default:
		if err := s.registry.MarkValidated(ctx, teamID, now); err != nil {
			log.Error("Failed to record validation", "team", teamID, "err", err)
		}
	}
}

// cronLogger adapts log15 to cron.Logger.
type cronLogger struct {
	l log15.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "err", err)...)
}
