package store

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/room"
)

// RetryPolicy bounds how hard Retrying tries
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy tries four times over roughly a second and a half
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 4, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Retrying retries a failing Store with exponential backoff
type Retrying struct {
	inner  room.Store
	policy RetryPolicy
	clock  quartz.Clock
	logger *log.Logger
}

// NewRetrying wraps inner. A nil clock uses the wall clock.
func NewRetrying(inner room.Store, policy RetryPolicy, clock quartz.Clock, logger *log.Logger) *Retrying {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	return &Retrying{inner: inner, policy: policy, clock: clock, logger: logger.WithPrefix("store")}
}

func (r *Retrying) do(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := r.policy.BaseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= r.policy.Attempts {
			return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempt, err)
		}
		r.logger.Debug("Store call failed, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)

		timer := r.clock.NewTimer(delay, "store", "retry")
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), err)
		case <-timer.C:
		}
		delay = min(delay*2, r.policy.MaxDelay)
	}
}

func (r *Retrying) RecordGameResult(ctx context.Context, roomID, gameType string, result game.Result) error {
	return r.do(ctx, "record game result", func(ctx context.Context) error {
		return r.inner.RecordGameResult(ctx, roomID, gameType, result)
	})
}

func (r *Retrying) AdjustUserCoins(ctx context.Context, userID string, delta int, description string) error {
	return r.do(ctx, "adjust coins", func(ctx context.Context) error {
		return r.inner.AdjustUserCoins(ctx, userID, delta, description)
	})
}

func (r *Retrying) SaveRoom(ctx context.Context, snap room.Snapshot) error {
	return r.do(ctx, "save room", func(ctx context.Context) error {
		return r.inner.SaveRoom(ctx, snap)
	})
}

func (r *Retrying) LoadRooms(ctx context.Context) ([]room.Snapshot, error) {
	var snaps []room.Snapshot
	err := r.do(ctx, "load rooms", func(ctx context.Context) error {
		var err error
		snaps, err = r.inner.LoadRooms(ctx)
		return err
	})
	return snaps, err
}

func (r *Retrying) DeleteRoom(ctx context.Context, roomID string) error {
	return r.do(ctx, "delete room", func(ctx context.Context) error {
		return r.inner.DeleteRoom(ctx, roomID)
	})
}
