package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	startErrs []error
	stopErr   error
	order     *[]string
	starts    int
}

func (d *fakeDependency) GetName() string { return d.name }
func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Start(_ context.Context) error {
	d.starts++
	if len(d.startErrs) > 0 {
		err := d.startErrs[0]
		d.startErrs = d.startErrs[1:]
		if err != nil {
			return err
		}
	}
	*d.order = append(*d.order, d.name)
	return nil
}

func (d *fakeDependency) Stop(_ context.Context) error { return d.stopErr }

func newLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup(t *testing.T) {
	t.Run("should start dependencies after the ones they depend on", func(t *testing.T) {
		var order []string
		s := NewStartup(newLogger(), 1, time.Millisecond)
		s.AddDependency(&fakeDependency{name: "a-publisher", dependsOn: []string{"z-store"}, order: &order})
		s.AddDependency(&fakeDependency{name: "z-store", order: &order})

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, []string{"z-store", "a-publisher"}, order)
		assert.Equal(t, StatusStarted, s.Status("a-publisher"))
	})

	t.Run("should retry a failing dependency", func(t *testing.T) {
		var order []string
		dep := &fakeDependency{name: "db", startErrs: []error{errors.New("refused")}, order: &order}
		s := NewStartup(newLogger(), 3, time.Millisecond)
		s.AddDependency(dep)

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, 2, dep.starts)
	})

	t.Run("should fail on an unregistered dependency", func(t *testing.T) {
		var order []string
		s := NewStartup(newLogger(), 1, time.Millisecond)
		s.AddDependency(&fakeDependency{name: "graph", dependsOn: []string{"missing"}, order: &order})

		assert.Error(t, s.Start(context.Background()))
	})

	t.Run("should detect a cycle", func(t *testing.T) {
		var order []string
		s := NewStartup(newLogger(), 1, time.Millisecond)
		s.AddDependency(&fakeDependency{name: "a", dependsOn: []string{"b"}, order: &order})
		s.AddDependency(&fakeDependency{name: "b", dependsOn: []string{"a"}, order: &order})

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("should stop started dependencies and return the first error", func(t *testing.T) {
		var order []string
		s := NewStartup(newLogger(), 1, time.Millisecond)
		s.AddDependency(&fakeDependency{name: "a", order: &order, stopErr: errors.New("busy")})
		s.AddDependency(&fakeDependency{name: "b", order: &order})
		require.NoError(t, s.Start(context.Background()))

		err := s.Stop(context.Background())
		assert.EqualError(t, err, "busy")
		assert.Equal(t, StatusStopped, s.Status("b"))
		assert.Equal(t, StatusStarted, s.Status("a"))
	})
}

func TestRetry(t *testing.T) {
	t.Run("should give up after the last attempt", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), newLogger(), "op", 3, time.Millisecond, func(_ context.Context, _ int) error {
			calls++
			return errors.New("down")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "after 3 attempts")
	})

	t.Run("should stop waiting when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		err := Retry(ctx, newLogger(), "op", 5, time.Hour, func(_ context.Context, _ int) error {
			cancel()
			return errors.New("down")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
