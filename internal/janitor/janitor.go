// Package janitor runs the periodic consistency pass over open entries.
// It closes duplicate open entries for the same slot (legacy data from
// before the unique index) and flags entries left open past the stale
// threshold. Stale entries are reported, never auto-closed: only a person
// knows when the crew actually left.
package janitor

import (
	"context"
	"time"

	"crewtime/internal/attendance"
	"crewtime/internal/events"
	"crewtime/internal/model"

	"github.com/rs/zerolog"
)

// Store is the subset of the record store the janitor needs.
type Store interface {
	ListOpen(ctx context.Context) ([]model.Entry, error)
	CompleteEntry(ctx context.Context, id string, checkOut time.Time, minutes int) error
}

// Janitor runs the consistency pass.
type Janitor struct {
	store      Store
	bus        *events.Bus
	clock      attendance.Clock
	staleAfter time.Duration
	interval   time.Duration
	logger     zerolog.Logger
}

func New(store Store, bus *events.Bus, clock attendance.Clock, staleAfter, interval time.Duration, logger zerolog.Logger) *Janitor {
	if clock == nil {
		clock = attendance.SystemClock()
	}
	return &Janitor{
		store:      store,
		bus:        bus,
		clock:      clock,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger.With().Str("component", "janitor").Logger(),
	}
}

// Run executes passes on the configured interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info().Dur("interval", j.interval).Dur("stale_after", j.staleAfter).Msg("janitor started")
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("janitor stopped")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error().Err(err).Msg("janitor pass failed")
			}
		}
	}
}

// RunOnce performs a single pass: duplicate closure first, then stale
// detection over what remains open.
func (j *Janitor) RunOnce(ctx context.Context) error {
	open, err := j.store.ListOpen(ctx)
	if err != nil {
		return err
	}

	remaining := j.closeDuplicates(ctx, open)
	j.flagStale(remaining)
	return nil
}

// closeDuplicates keeps the newest open entry per slot and closes the rest,
// crediting each closed entry with time up to now. Returns the survivors.
func (j *Janitor) closeDuplicates(ctx context.Context, open []model.Entry) []model.Entry {
	now := j.clock.Now()

	newest := make(map[string]*model.Entry, len(open))
	for i := range open {
		e := &open[i]
		key := slotKey(e)
		if cur, ok := newest[key]; !ok || e.CheckIn.After(cur.CheckIn) {
			newest[key] = e
		}
	}

	var remaining []model.Entry
	for i := range open {
		e := &open[i]
		if newest[slotKey(e)] == e {
			remaining = append(remaining, *e)
			continue
		}

		minutes := model.ElapsedMinutes(e.CheckIn, now)
		if err := j.store.CompleteEntry(ctx, e.ID, now, minutes); err != nil {
			j.logger.Error().Err(err).Str("entry_id", e.ID).Msg("close duplicate failed")
			continue
		}
		j.logger.Warn().
			Str("entry_id", e.ID).
			Str("hall", string(e.Hall)).
			Str("role", string(e.Role)).
			Str("date", e.Date).
			Msg("closed duplicate open entry")
	}
	return remaining
}

func (j *Janitor) flagStale(open []model.Entry) {
	now := j.clock.Now()
	for i := range open {
		e := &open[i]
		age := now.Sub(e.CheckIn)
		if age < j.staleAfter {
			continue
		}

		j.logger.Warn().
			Str("entry_id", e.ID).
			Str("hall", string(e.Hall)).
			Str("role", string(e.Role)).
			Str("date", e.Date).
			Dur("age", age).
			Msg("entry open past stale threshold")

		if j.bus != nil {
			j.bus.Publish(events.Event{
				Type: events.TypeStaleEntry,
				Attendance: events.AttendancePayload{
					EntryID:     e.ID,
					Hall:        string(e.Hall),
					Role:        string(e.Role),
					Date:        e.Date,
					MemberNames: e.MemberNames,
					At:          e.CheckIn,
				},
			})
		}
	}
}

func slotKey(e *model.Entry) string {
	return e.Date + "/" + string(e.Hall) + "/" + string(e.Role)
}
