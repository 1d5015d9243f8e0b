// Package attendance implements the check-in/check-out reconciliation for
// one (hall, role, shift-date) slot.
package attendance

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"crewtime/internal/db"
	"crewtime/internal/events"
	"crewtime/internal/metrics"
	"crewtime/internal/model"
	"crewtime/internal/names"

	"github.com/rs/zerolog"
)

// Store is the record-store surface the reconciler needs.
type Store interface {
	FindOpen(ctx context.Context, date string, hall model.Hall, role model.Role) (*model.Entry, error)
	CreateOpen(ctx context.Context, e *model.Entry) error
	CompleteEntry(ctx context.Context, id string, checkOut time.Time, minutes int) error
	UpdateMembers(ctx context.Context, id string, memberNames []string) error
	UpdateCheckIn(ctx context.Context, id string, checkIn time.Time) error
	ListOpen(ctx context.Context) ([]model.Entry, error)
	ListActiveMembers(ctx context.Context, role model.Role) ([]model.Member, error)
	EnsureMember(ctx context.Context, role model.Role, name string) (bool, error)
}

// Options configures a Service.
type Options struct {
	Clock    Clock
	Location *time.Location
	// RolloverHour follows the config convention: 0 means unset and gets
	// DefaultRolloverHour, NoRollover (-1) disables rolling.
	RolloverHour int
	AdminPIN     string
	Bus          *events.Bus
}

// Service is the attendance reconciler.
type Service struct {
	store        Store
	clock        Clock
	loc          *time.Location
	rolloverHour int
	adminPIN     string
	bus          *events.Bus
	logger       zerolog.Logger
}

// NewService wires a reconciler over the store.
func NewService(store Store, opts Options, logger zerolog.Logger) *Service {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RolloverHour == 0 {
		opts.RolloverHour = DefaultRolloverHour
	}
	return &Service{
		store:        store,
		clock:        opts.Clock,
		loc:          opts.Location,
		rolloverHour: opts.RolloverHour,
		adminPIN:     opts.AdminPIN,
		bus:          opts.Bus,
		logger:       logger.With().Str("component", "attendance").Logger(),
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}

// Now returns the current instant in the venue timezone.
func (s *Service) Now() time.Time {
	return s.now()
}

// currentOpen locates the in-progress entry the kiosk is operating on. The
// plain calendar date is tried first; during the rollover window (>= the
// rollover hour) a freshly created entry already carries tomorrow's shift
// date, so that is tried as well.
func (s *Service) currentOpen(ctx context.Context, hall model.Hall, role model.Role) (*model.Entry, error) {
	now := s.now()
	today := now.Format(DateFormat)

	open, err := s.store.FindOpen(ctx, today, hall, role)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return open, nil
	}

	if rolled := ShiftDate(now, s.rolloverHour); rolled != today {
		return s.store.FindOpen(ctx, rolled, hall, role)
	}
	return nil, nil
}

// CheckIn opens a new entry for the slot. Free-typed names not yet on the
// active roster are registered as members first; the shift date is resolved
// from the current instant. A slot that is already open is a conflict and
// nothing is written.
func (s *Service) CheckIn(ctx context.Context, hall model.Hall, role model.Role, rawNames []string) (*model.Entry, error) {
	memberNames := names.Dedupe(trimNonEmpty(rawNames))
	if len(memberNames) == 0 {
		return nil, ErrNoMembers
	}

	now := s.now()
	date := ShiftDate(now, s.rolloverHour)

	// Re-fetch right before deciding, through the same two-date lookup the
	// rest of the reconciler uses: during the rollover window a new entry
	// carries tomorrow's date, but an entry opened earlier today still owns
	// the physical slot. The unique index is the backstop for same-date
	// races only.
	open, err := s.currentOpen(ctx, hall, role)
	if err != nil {
		return nil, fmt.Errorf("locate open entry: %w", err)
	}
	if open != nil {
		metrics.IncCheckInConflict()
		return nil, ErrAlreadyOpen
	}

	for _, name := range memberNames {
		created, err := s.store.EnsureMember(ctx, role, name)
		if err != nil {
			return nil, fmt.Errorf("register member %q: %w", name, err)
		}
		if created {
			s.logger.Info().Str("name", name).Str("role", string(role)).Msg("new member registered at check-in")
		}
	}

	entry := &model.Entry{
		Hall:        hall,
		Role:        role,
		MemberNames: memberNames,
		Date:        date,
		CheckIn:     now,
		Status:      model.StatusInProgress,
	}
	if err := s.store.CreateOpen(ctx, entry); err != nil {
		if isOpenConflict(err) {
			metrics.IncCheckInConflict()
			return nil, ErrAlreadyOpen
		}
		return nil, fmt.Errorf("create entry: %w", err)
	}

	metrics.IncCheckIn(string(hall), string(role))
	s.publish(events.TypeCheckedIn, entry, now, 0)
	s.logger.Info().
		Str("hall", string(hall)).
		Str("role", string(role)).
		Str("date", date).
		Int("members", len(memberNames)).
		Msg("checked in")
	return entry, nil
}

// CheckOut closes the slot's open entry, computing worked minutes from its
// stored check-in to now.
func (s *Service) CheckOut(ctx context.Context, hall model.Hall, role model.Role) (*model.Entry, error) {
	open, err := s.currentOpen(ctx, hall, role)
	if err != nil {
		return nil, fmt.Errorf("locate open entry: %w", err)
	}
	if open == nil {
		return nil, ErrNoOpenEntry
	}

	now := s.now()
	minutes := model.ElapsedMinutes(open.CheckIn, now)
	if err := s.store.CompleteEntry(ctx, open.ID, now, minutes); err != nil {
		return nil, fmt.Errorf("complete entry: %w", err)
	}

	checkOut := now
	open.CheckOut = &checkOut
	open.Minutes = &minutes
	open.Status = model.StatusDone

	metrics.IncCheckOut(string(hall), string(role))
	s.publish(events.TypeCheckedOut, open, now, minutes)
	s.logger.Info().
		Str("hall", string(hall)).
		Str("role", string(role)).
		Int("minutes", minutes).
		Msg("checked out")
	return open, nil
}

// ToggleMember adds name to the open entry's member list if absent under
// normalization, removes it if present. The list may not end up empty.
func (s *Service) ToggleMember(ctx context.Context, hall model.Hall, role model.Role, name string) (*model.Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNoMembers
	}

	open, err := s.currentOpen(ctx, hall, role)
	if err != nil {
		return nil, fmt.Errorf("locate open entry: %w", err)
	}
	if open == nil {
		return nil, ErrNoOpenEntry
	}

	var updated []string
	if names.ContainsNormalized(open.MemberNames, name) {
		updated = names.Remove(open.MemberNames, name)
		if len(updated) == 0 {
			return nil, ErrNoMembers
		}
	} else {
		if _, err := s.store.EnsureMember(ctx, role, name); err != nil {
			return nil, fmt.Errorf("register member %q: %w", name, err)
		}
		updated = append(append([]string{}, open.MemberNames...), name)
	}

	if err := s.store.UpdateMembers(ctx, open.ID, updated); err != nil {
		return nil, fmt.Errorf("update members: %w", err)
	}
	open.MemberNames = updated
	return open, nil
}

// CorrectCheckInTime overwrites the hour and minute of the open entry's
// check-in, keeping its calendar date. Gated by the shared admin PIN; the
// comparison is constant-time, but this remains a single shared secret, not
// per-user authorization.
func (s *Service) CorrectCheckInTime(ctx context.Context, hall model.Hall, role model.Role, hour, minute int, pin string) (*model.Entry, error) {
	if subtle.ConstantTimeCompare([]byte(pin), []byte(s.adminPIN)) != 1 {
		metrics.IncPINFailure()
		return nil, ErrWrongPIN
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid time %02d:%02d", hour, minute)
	}

	open, err := s.currentOpen(ctx, hall, role)
	if err != nil {
		return nil, fmt.Errorf("locate open entry: %w", err)
	}
	if open == nil {
		return nil, ErrNoOpenEntry
	}

	orig := open.CheckIn.In(s.loc)
	corrected := time.Date(orig.Year(), orig.Month(), orig.Day(), hour, minute, 0, 0, s.loc)
	if err := s.store.UpdateCheckIn(ctx, open.ID, corrected); err != nil {
		return nil, fmt.Errorf("update check-in: %w", err)
	}
	open.CheckIn = corrected

	s.logger.Info().
		Str("hall", string(hall)).
		Str("role", string(role)).
		Str("check_in", corrected.Format("15:04")).
		Msg("check-in time corrected")
	return open, nil
}

// Snapshot returns the slot's open entry, or nil when closed.
func (s *Service) Snapshot(ctx context.Context, hall model.Hall, role model.Role) (*model.Entry, error) {
	return s.currentOpen(ctx, hall, role)
}

// BoardSlot is one cell of the kiosk status board.
type BoardSlot struct {
	Hall  model.Hall   `json:"hall"`
	Role  model.Role   `json:"role"`
	Open  bool         `json:"open"`
	Entry *model.Entry `json:"entry,omitempty"`
}

// Board returns the status of every (hall, role) slot.
func (s *Service) Board(ctx context.Context) ([]BoardSlot, error) {
	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open entries: %w", err)
	}

	bySlot := make(map[string]*model.Entry, len(open))
	for i := range open {
		e := &open[i]
		bySlot[string(e.Hall)+"/"+string(e.Role)] = e
	}

	board := make([]BoardSlot, 0, len(model.Halls)*len(model.Roles))
	for _, hall := range model.Halls {
		for _, role := range model.Roles {
			slot := BoardSlot{Hall: hall, Role: role}
			if e, ok := bySlot[string(hall)+"/"+string(role)]; ok {
				slot.Open = true
				slot.Entry = e
			}
			board = append(board, slot)
		}
	}
	return board, nil
}

// Roster returns the active member roster for a role.
func (s *Service) Roster(ctx context.Context, role model.Role) ([]model.Member, error) {
	return s.store.ListActiveMembers(ctx, role)
}

func (s *Service) publish(eventType string, e *model.Entry, at time.Time, minutes int) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Type: eventType,
		Attendance: events.AttendancePayload{
			EntryID:     e.ID,
			Hall:        string(e.Hall),
			Role:        string(e.Role),
			Date:        e.Date,
			MemberNames: e.MemberNames,
			At:          at,
			Minutes:     minutes,
		},
	})
}

func trimNonEmpty(list []string) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// isOpenConflict reports whether the store rejected the insert because the
// slot already has an open entry.
func isOpenConflict(err error) bool {
	return errors.Is(err, db.ErrOpenExists)
}
