package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todosync/internal/remote"
)

func newTestExecutor() *Executor {
	return New(Config{BaseDelay: time.Millisecond}, zerolog.Nop())
}

func TestDo_SucceedsFirstTime(t *testing.T) {
	calls := 0
	err := newTestExecutor().Do(context.Background(), "list lists", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := newTestExecutor().Do(context.Background(), "list lists", func(context.Context) error {
		calls++
		if calls < 3 {
			return remote.Wrap("list lists", 503, errors.New("unavailable"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	want := remote.Wrap("create list", 502, errors.New("bad gateway"))
	err := newTestExecutor().Do(context.Background(), "create list", func(context.Context) error {
		calls++
		return want
	})
	require.Error(t, err)
	assert.Equal(t, DefaultAttempts, calls)
	assert.Same(t, want, err)
}

func TestDo_TerminalErrorNotRetried(t *testing.T) {
	calls := 0
	want := remote.Wrap("create list", 400, errors.New("rejected"))
	err := newTestExecutor().Do(context.Background(), "create list", func(context.Context) error {
		calls++
		return want
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, want, err)
}

func TestDo_TerminalOnLastAttemptIsUnwrapped(t *testing.T) {
	calls := 0
	terminal := remote.Wrap("update list", 409, errors.New("conflict"))
	err := newTestExecutor().Do(context.Background(), "update list", func(context.Context) error {
		calls++
		if calls < DefaultAttempts {
			return remote.Wrap("update list", 500, errors.New("oops"))
		}
		return terminal
	})
	assert.Equal(t, DefaultAttempts, calls)
	assert.Same(t, terminal, err)
}

func TestDo_DelaysDouble(t *testing.T) {
	exec := New(Config{BaseDelay: 20 * time.Millisecond}, zerolog.Nop())
	var stamps []time.Time
	_ = exec.Do(context.Background(), "list lists", func(context.Context) error {
		stamps = append(stamps, time.Now())
		return remote.Wrap("list lists", 500, errors.New("oops"))
	})
	require.Len(t, stamps, 3)

	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)
	assert.GreaterOrEqual(t, second, 40*time.Millisecond)
}

func TestDo_CancelledWhileWaiting(t *testing.T) {
	exec := New(Config{BaseDelay: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- exec.Do(ctx, "list lists", func(context.Context) error {
			calls++
			return remote.Wrap("list lists", 503, errors.New("unavailable"))
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestValue_ReturnsResult(t *testing.T) {
	calls := 0
	got, err := Value(context.Background(), newTestExecutor(), "create list", func(context.Context) (remote.List, error) {
		calls++
		if calls == 1 {
			return remote.List{}, remote.Wrap("create list", 0, context.DeadlineExceeded)
		}
		return remote.List{ID: "r1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, 2, calls)
}

func TestNew_CustomClassifier(t *testing.T) {
	exec := New(Config{BaseDelay: time.Millisecond, Attempts: 5, Transient: func(error) bool { return true }}, zerolog.Nop())
	calls := 0
	_ = exec.Do(context.Background(), "x", func(context.Context) error {
		calls++
		return errors.New("anything")
	})
	assert.Equal(t, 5, calls)
}
