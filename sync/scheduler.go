// ABOUTME: Re-arms the next sync run after each orchestrator run
// ABOUTME: Success waits the sync interval, transient failures back off exponentially
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/harperreed/peoplesync/models"
)

// RescheduleRequest arms the next run of one integration.
type RescheduleRequest struct {
	IntegrationID string
	UserID        string
	Delay         time.Duration
	IsInitialSync bool
	// Attempts counts consecutive transient failures so far.
	Attempts int
}

// Rescheduler is the scheduling contract the caller fulfills after a run.
type Rescheduler interface {
	Reschedule(ctx context.Context, req RescheduleRequest) error
}

// TriggerStore persists armed triggers.
type TriggerStore interface {
	Arm(ctx context.Context, trigger *models.Trigger) error
	Disarm(ctx context.Context, integrationID string) error
}

// TriggerRescheduler arms triggers in a TriggerStore.
type TriggerRescheduler struct {
	triggers TriggerStore
	now      func() time.Time
}

// NewTriggerRescheduler creates a rescheduler over a trigger store.
func NewTriggerRescheduler(triggers TriggerStore) *TriggerRescheduler {
	return &TriggerRescheduler{triggers: triggers, now: time.Now}
}

// Reschedule replaces the integration's trigger with one due after req.Delay.
func (s *TriggerRescheduler) Reschedule(ctx context.Context, req RescheduleRequest) error {
	payload, err := RunRequest{
		IntegrationID: req.IntegrationID,
		UserID:        req.UserID,
		IsInitialSync: req.IsInitialSync,
	}.Payload()
	if err != nil {
		return err
	}

	trigger := &models.Trigger{
		IntegrationID: req.IntegrationID,
		UserID:        req.UserID,
		RunAt:         s.now().Add(req.Delay),
		Payload:       payload,
		Attempts:      req.Attempts,
	}
	if err := s.triggers.Arm(ctx, trigger); err != nil {
		return fmt.Errorf("failed to arm trigger: %w", err)
	}
	return nil
}

// Disarm removes any pending trigger for the integration.
func (s *TriggerRescheduler) Disarm(ctx context.Context, integrationID string) error {
	if err := s.triggers.Disarm(ctx, integrationID); err != nil {
		return fmt.Errorf("failed to disarm trigger: %w", err)
	}
	return nil
}

// Policy decides when the next run happens.
type Policy struct {
	Interval       time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// PolicyFromConfig builds a Policy from the sync configuration.
func PolicyFromConfig(cfg *Config) Policy {
	return Policy{
		Interval:       cfg.SyncInterval,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
	}
}

// NextDelay returns the delay before the next run and whether one should be
// armed at all. attempts is the number of consecutive transient failures
// including this one.
func (p Policy) NextDelay(res *Result, attempts int) (time.Duration, bool) {
	switch {
	case res == nil:
		return 0, false
	case res.Success:
		return p.Interval, true
	case !res.EnabledAfterRun:
		return 0, false
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BackoffInitial
	b.MaxInterval = p.BackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()

	if attempts < 1 {
		attempts = 1
	}
	delay := b.InitialInterval
	for i := 0; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay, true
}

// AfterRun applies the policy to a finished run: re-arm on success or
// transient failure, disarm when the integration was disabled.
func AfterRun(ctx context.Context, s *TriggerRescheduler, p Policy, req RunRequest, res *Result, prevAttempts int) error {
	attempts := 0
	if res != nil && !res.Success {
		attempts = prevAttempts + 1
	}

	delay, ok := p.NextDelay(res, attempts)
	if !ok {
		return s.Disarm(ctx, req.IntegrationID)
	}

	return s.Reschedule(ctx, RescheduleRequest{
		IntegrationID: req.IntegrationID,
		UserID:        req.UserID,
		Delay:         delay,
		// An initial sync that persisted a page resumes from its cursor instead
		IsInitialSync: req.IsInitialSync && res != nil && !res.Success && res.Pages == 0,
		Attempts:      attempts,
	})
}
