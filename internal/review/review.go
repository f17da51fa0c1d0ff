// Package review implements the spaced-repetition scheduler layered on
// top of internal/store's review_items/review_state/review_config
// tables. Session numbers, not wall-clock dates, drive due-ness; §6's
// rating multipliers decide how far a note's next session moves.
package review

import (
	"context"
	"math"

	"github.com/flint-note/flint/internal/ferr"
	"github.com/flint-note/flint/internal/store"
)

// ratingMultiplier maps a 1-3 rating to the interval multiplier applied
// on a successful review. A rating of 4 retires the note instead of
// rescheduling it.
var ratingMultiplier = map[int]float64{
	1: 0.5,
	2: 1.5,
	3: 2.5,
}

// Scheduler wraps a *store.Store with the review-session business rules.
type Scheduler struct {
	store *store.Store
}

func New(s *store.Store) *Scheduler {
	return &Scheduler{store: s}
}

// Enable starts spaced repetition for a note, scheduling its first
// review at the next session.
func (s *Scheduler) Enable(ctx context.Context, noteID string) error {
	current, err := s.store.CurrentSessionNumber(ctx)
	if err != nil {
		return err
	}
	return s.store.EnableReview(ctx, noteID, current+1, 1)
}

// Disable stops spaced repetition without discarding history.
func (s *Scheduler) Disable(ctx context.Context, noteID string) error {
	return s.store.DisableReview(ctx, noteID)
}

// Due returns the note IDs due for review in the current session,
// capped at the configured session size.
func (s *Scheduler) Due(ctx context.Context) ([]string, error) {
	cfg, err := s.store.GetSchedulerConfig(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.store.CurrentSessionNumber(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.GetNotesForReview(ctx, current)
	if err != nil {
		return nil, err
	}
	if len(ids) > cfg.SessionSize {
		ids = ids[:cfg.SessionSize]
	}
	return ids, nil
}

// Rate records the outcome of reviewing a note. Ratings 1-3 reschedule
// the note using the interval multiplier; rating 4 retires it
// (status "retired", never surfaced by Due again). Out-of-range ratings
// are a validation error.
func (s *Scheduler) Rate(ctx context.Context, noteID string, rating int, prompt, response, feedback, now string) error {
	if rating < 1 || rating > 4 {
		return ferr.Newf(ferr.Validation, "rating must be 1-4, got %d", rating)
	}

	item, err := s.store.GetReviewItem(ctx, noteID)
	if err != nil {
		return err
	}
	cfg, err := s.store.GetSchedulerConfig(ctx)
	if err != nil {
		return err
	}
	currentSession, err := s.store.CurrentSessionNumber(ctx)
	if err != nil {
		return err
	}

	item.ReviewHistory = append(item.ReviewHistory, store.ReviewHistoryEntry{
		Date:          now,
		SessionNumber: currentSession,
		Rating:        rating,
		Prompt:        prompt,
		Response:      response,
		Feedback:      feedback,
	})
	item.ReviewCount++
	item.LastReviewed = now

	if rating == 4 {
		item.Status = "retired"
		item.Enabled = false
		return s.store.SaveReviewResult(ctx, item)
	}

	interval := nextInterval(item.CurrentInterval, rating, cfg.MaxIntervalSessions)
	item.CurrentInterval = interval
	item.NextSessionNumber = currentSession + interval
	item.Status = "active"
	return s.store.SaveReviewResult(ctx, item)
}

// nextInterval applies the rating multiplier and clamps the result into
// [1, maxSessions], rounding to the nearest whole session per §6.
func nextInterval(current, rating, maxSessions int) int {
	mult, ok := ratingMultiplier[rating]
	if !ok {
		mult = 1.0
	}
	next := int(math.Round(float64(current) * mult))
	if next < 1 {
		next = 1
	}
	if maxSessions > 0 && next > maxSessions {
		next = maxSessions
	}
	return next
}

// AdvanceSession increments the shared session counter, typically
// called once per review-session boundary by the CLI/daemon driving
// the vault.
func (s *Scheduler) AdvanceSession(ctx context.Context) (int, error) {
	return s.store.IncrementSessionNumber(ctx)
}
