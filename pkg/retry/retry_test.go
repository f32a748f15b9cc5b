package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	got, err := Do(context.Background(), Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, Sleeper: sleeper},
		func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, sleeper.delays[i], want[i])
		}
	}
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleeper: sleeper},
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("still down")
		})

	if err == nil || err.Error() != "still down" {
		t.Errorf("err = %v, want 'still down'", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(sleeper.delays) != 2 {
		t.Errorf("expected no sleep after the final attempt, got %d sleeps", len(sleeper.delays))
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	_, err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Sleeper:     &recordingSleeper{},
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("err = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Second},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("boom")
		})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
