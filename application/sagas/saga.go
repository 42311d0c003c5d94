// Package sagas runs multi-step writes whose completed steps are undone
// when a later step fails.
package sagas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step is a single step in a saga. Compensate, when set, reverses Execute
// and runs only if a later step fails.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	MaxRetries int
	RetryDelay time.Duration
}

// State represents the current state of a saga execution
type State string

const (
	StatePending      State = "PENDING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateFailed       State = "FAILED"
	StateCompensating State = "COMPENSATING"
	StateCompensated  State = "COMPENSATED"
)

// Saga orchestrates a series of steps with compensation logic
type Saga struct {
	id          string
	name        string
	steps       []Step
	state       State
	currentStep int
	logger      *zap.Logger
}

// New creates a new saga instance
func New(name string, logger *zap.Logger) *Saga {
	return &Saga{
		id:     uuid.NewString(),
		name:   name,
		state:  StatePending,
		logger: logger,
	}
}

// AddStep adds a step to the saga
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the steps in order. On failure the completed steps are
// compensated in reverse and the step error is returned wrapped.
func (s *Saga) Execute(ctx context.Context) error {
	s.state = StateRunning
	s.logger.Debug("Starting saga",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("total_steps", len(s.steps)),
	)

	for i, step := range s.steps {
		s.currentStep = i

		if err := s.executeStepWithRetry(ctx, step); err != nil {
			s.state = StateFailed
			s.logger.Warn("Saga step failed",
				zap.String("saga_id", s.id),
				zap.String("saga_name", s.name),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)

			// Compensation must run even when the caller has gone away.
			if compErr := s.compensate(context.WithoutCancel(ctx), s.steps[:i]); compErr != nil {
				s.state = StateFailed
				s.logger.Error("Saga compensation failed",
					zap.String("saga_id", s.id),
					zap.String("saga_name", s.name),
					zap.Error(compErr),
				)
				return fmt.Errorf("%s failed at %s and compensation failed: %w", s.name, step.Name, errors.Join(err, compErr))
			}
			s.state = StateCompensated
			return fmt.Errorf("%s failed at %s: %w", s.name, step.Name, err)
		}
	}

	s.state = StateCompleted
	s.logger.Debug("Saga completed",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
	)
	return nil
}

func (s *Saga) executeStepWithRetry(ctx context.Context, step Step) error {
	attempts := step.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(step.RetryDelay):
			}
		}
		if lastErr = step.Execute(ctx); lastErr == nil {
			return nil
		}
	}
	if attempts > 1 {
		return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
	}
	return lastErr
}

// compensate undoes done in reverse order. Every compensation runs; the
// failures are joined.
func (s *Saga) compensate(ctx context.Context, done []Step) error {
	s.state = StateCompensating

	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		if done[i].Compensate == nil {
			continue
		}
		if err := done[i].Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", done[i].Name, err))
		}
	}
	return errors.Join(errs...)
}

// State returns the current state of the saga
func (s *Saga) State() State {
	return s.state
}

// ID returns the saga ID
func (s *Saga) ID() string {
	return s.id
}

// CurrentStep returns the index of the step running or last run
func (s *Saga) CurrentStep() int {
	return s.currentStep
}

// Builder provides a fluent interface for building sagas
type Builder struct {
	saga *Saga
}

// NewBuilder creates a new saga builder
func NewBuilder(name string, logger *zap.Logger) *Builder {
	return &Builder{saga: New(name, logger)}
}

// WithStep adds a step that needs no compensation
func (b *Builder) WithStep(name string, execute func(context.Context) error) *Builder {
	b.saga.AddStep(Step{Name: name, Execute: execute})
	return b
}

// WithCompensableStep adds a step with compensation logic
func (b *Builder) WithCompensableStep(name string, execute, compensate func(context.Context) error) *Builder {
	b.saga.AddStep(Step{Name: name, Execute: execute, Compensate: compensate})
	return b
}

// WithRetryableStep adds a step that is retried before the saga gives up
func (b *Builder) WithRetryableStep(name string, execute func(context.Context) error, maxRetries int, retryDelay time.Duration) *Builder {
	b.saga.AddStep(Step{Name: name, Execute: execute, MaxRetries: maxRetries, RetryDelay: retryDelay})
	return b
}

// Build returns the constructed saga
func (b *Builder) Build() *Saga {
	return b.saga
}
