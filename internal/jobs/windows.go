package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/metrics"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
)

// WindowJob recomputes which stake window of every game session is active.
type WindowJob struct {
	store *store.Store
	now   func() time.Time
	log   *logger.Logger
}

var _ Job = (*WindowJob)(nil)

// NewWindowJob creates the job. A nil now uses the wall clock.
func NewWindowJob(st *store.Store, now func() time.Time, log *logger.Logger) *WindowJob {
	if now == nil {
		now = time.Now
	}

	return &WindowJob{
		store: st,
		now:   now,
		log:   log.WithComponent(common.ComponentWindowJob),
	}
}

func (j *WindowJob) Name() string {
	return common.ComponentWindowJob
}

// Run updates every session. A failing session is logged and skipped.
func (j *WindowJob) Run(ctx context.Context) error {
	now := j.now()

	var sessions []*store.GameSession
	err := j.store.View(ctx, func(tx *store.Tx) error {
		var err error
		sessions, err = tx.ListGameSessions()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list game sessions: %w", err)
	}

	updated, failed := 0, 0
	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}

		changed, err := j.UpdateSession(ctx, s.Address, now)
		if err != nil {
			failed++
			metrics.ErrorsInc(common.ComponentWindowJob, "error")
			j.log.Errorw("failed to update stake windows", "session", s.Address, "error", err)
			continue
		}
		if changed {
			updated++
			SessionsUpdated.Inc()
		}
	}

	j.log.Debugw("stake windows updated",
		"sessions", len(sessions), "changed", updated, "failed", failed, "now", now.Unix())

	return nil
}

// UpdateSession writes the window flags and current window index of one session at now.
// The session is read inside the transaction. It reports whether anything changed.
func (j *WindowJob) UpdateSession(ctx context.Context, address string, now time.Time) (bool, error) {
	ts := uint64(max(now.Unix(), 0)) //nolint:gosec

	changed := false
	err := j.store.WithTx(ctx, func(tx *store.Tx) error {
		tx.At(ts)

		s, err := tx.GetGameSession(address)
		if err != nil {
			return err
		}

		windows, err := tx.ListStakeWindows(address)
		if err != nil {
			return err
		}

		state := windowStates(windows, ts, s.Active())
		for _, w := range windows {
			if w.IsActive == state.active[w.WindowIndex] {
				continue
			}
			if err := tx.SetWindowActive(address, w.WindowIndex, state.active[w.WindowIndex]); err != nil {
				return err
			}
			changed = true
		}

		if s.Active() && s.CurrentWindowIndex != state.current {
			if err := tx.SetCurrentWindowIndex(address, state.current); err != nil {
				return err
			}
			changed = true
		}

		return nil
	})

	return changed, err
}

type windowState struct {
	active  map[uint64]bool
	current uint64
}

// windowStates marks a window active when start <= now < end. The current index is the
// active window, else the last window that has ended, else 0. A suspended or finished
// session has no active window.
func windowStates(windows []*store.StakeWindow, now uint64, sessionActive bool) windowState {
	state := windowState{active: make(map[uint64]bool, len(windows))}
	if !sessionActive {
		return state
	}

	var (
		found     bool
		lastEnded uint64
		anyEnded  bool
	)
	for _, w := range windows {
		isActive := w.StartTime <= now && now < w.EndTime
		state.active[w.WindowIndex] = isActive

		if isActive && !found {
			state.current = w.WindowIndex
			found = true
		}
		if w.EndTime <= now && (!anyEnded || w.WindowIndex > lastEnded) {
			lastEnded = w.WindowIndex
			anyEnded = true
		}
	}

	if !found && anyEnded {
		state.current = lastEnded
	}

	return state
}
