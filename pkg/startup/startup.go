// Package startup starts the run's external dependencies in dependency order
// and retries with a Fibonacci backoff.
package startup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is an external system the run needs before it can publish.
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Status int

const (
	StatusPending Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

// Retry calls fn up to maxAttempts times, waiting unit, unit, 2*unit, 3*unit,
// 5*unit... between attempts. It returns the last error, or ctx.Err() when
// the context ends while waiting.
func Retry(ctx context.Context, logger ectologger.Logger, name string, maxAttempts int, unit time.Duration, fn func(ctx context.Context, attempt int) error) error {
	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		log := logger.WithContext(ctx).WithFields(map[string]any{
			"operation": name,
			"attempt":   attempt,
		})
		log.WithError(lastErr).Errorf("%s attempt %d failed", name, attempt)

		if attempt >= maxAttempts {
			break
		}

		wait := time.Duration(a) * unit
		log.Infof("Retrying %s in %s (attempt %d/%d)", name, wait, attempt, maxAttempts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		a, b = b, a+b
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, maxAttempts, lastErr)
}

// Startup tracks a set of dependencies.
type Startup struct {
	dependencies map[string]Dependency
	statuses     map[string]Status
	logger       ectologger.Logger
	maxAttempts  int
	unit         time.Duration
}

func NewStartup(logger ectologger.Logger, maxAttempts int, unit time.Duration) *Startup {
	return &Startup{
		logger:       logger,
		dependencies: make(map[string]Dependency),
		statuses:     make(map[string]Status),
		maxAttempts:  maxAttempts,
		unit:         unit,
	}
}

func (s *Startup) AddDependency(dependency Dependency) {
	s.dependencies[dependency.GetName()] = dependency
}

// Status returns the status of the named dependency.
func (s *Startup) Status(name string) Status {
	return s.statuses[name]
}

// Start starts every dependency, each after the ones it depends on. The
// whole set is retried until all are started or attempts run out.
func (s *Startup) Start(ctx context.Context) error {
	return Retry(ctx, s.logger, "startup", s.maxAttempts, s.unit, func(ctx context.Context, attempt int) error {
		s.logger.WithContext(ctx).WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)
		for _, name := range s.names() {
			if err := s.startDependency(ctx, s.dependencies[name], nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Startup) startDependency(ctx context.Context, dependency Dependency, path []string) error {
	name := dependency.GetName()
	if s.statuses[name] == StatusStarted {
		return nil
	}
	for _, p := range path {
		if p == name {
			return fmt.Errorf("dependency cycle at '%s'", name)
		}
	}

	for _, dependencyName := range dependency.DependsOn() {
		dep, ok := s.dependencies[dependencyName]
		if !ok {
			return fmt.Errorf("dependency '%s' of '%s' is not registered", dependencyName, name)
		}
		if err := s.startDependency(ctx, dep, append(path, name)); err != nil {
			return err
		}
	}

	log := s.logger.WithContext(ctx).WithField("dependency", name)
	log.Infof("Starting dependency '%s'", name)
	s.statuses[name] = StatusPending
	if err := dependency.Start(ctx); err != nil {
		s.statuses[name] = StatusFailed
		log.WithError(err).Errorf("Failed to start dependency '%s'", name)
		return err
	}
	s.statuses[name] = StatusStarted
	return nil
}

// Stop stops the started dependencies in reverse name order, continuing past
// failures, and returns the first error.
func (s *Startup) Stop(ctx context.Context) error {
	names := s.names()
	var firstErr error
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if s.statuses[name] != StatusStarted {
			continue
		}
		log := s.logger.WithContext(ctx).WithField("dependency", name)
		log.Infof("Stopping dependency '%s'", name)
		if err := s.dependencies[name].Stop(ctx); err != nil {
			log.WithError(err).Errorf("Failed to stop dependency '%s'", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[name] = StatusStopped
	}
	return firstErr
}

func (s *Startup) names() []string {
	names := make([]string, 0, len(s.dependencies))
	for name := range s.dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
