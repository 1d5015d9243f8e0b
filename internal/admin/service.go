// Package admin implements the review surface: month listings, record
// overrides and export preparation. It deliberately bypasses the attendance
// state machine — an administrator may edit any record regardless of status.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crewtime/internal/db"
	"crewtime/internal/model"

	"github.com/rs/zerolog"
)

// Store is the record-store surface the admin service needs.
type Store interface {
	ListRange(ctx context.Context, from, to string) ([]model.Entry, error)
	GetEntry(ctx context.Context, id string) (*model.Entry, error)
	PatchEntry(ctx context.Context, id string, p db.EntryPatch) error
}

// Service serves the admin review surface.
type Service struct {
	store  Store
	loc    *time.Location
	logger zerolog.Logger
}

func NewService(store Store, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:  store,
		loc:    loc,
		logger: logger.With().Str("component", "admin").Logger(),
	}
}

// MonthRange resolves a YYYY-MM string to its first/last shift dates and a
// display title such as 2026年3月.
func MonthRange(month string, loc *time.Location) (from, to, title string, err error) {
	start, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid month %q: expected YYYY-MM", month)
	}
	end := start.AddDate(0, 1, -1)
	return start.Format("2006-01-02"), end.Format("2006-01-02"),
		fmt.Sprintf("%d年%d月", start.Year(), int(start.Month())), nil
}

// Listing is one month of records plus the summary the admin page shows.
type Listing struct {
	Title        string        `json:"title"`
	Rows         []model.Entry `json:"rows"`
	TotalMinutes int           `json:"totalMinutes"`
}

// List returns a month's entries ordered by date, optionally narrowed to one
// hall and/or role. Filtering happens after the range query, mirroring how
// the store is actually indexed.
func (s *Service) List(ctx context.Context, month string, hallFilter, roleFilter string) (*Listing, error) {
	from, to, title, err := MonthRange(month, s.loc)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	filtered := rows[:0]
	for _, r := range rows {
		if hallFilter != "" && string(r.Hall) != hallFilter {
			continue
		}
		if roleFilter != "" && string(r.Role) != roleFilter {
			continue
		}
		filtered = append(filtered, r)
	}

	total := 0
	for _, r := range filtered {
		if r.Minutes != nil {
			total += *r.Minutes
		}
	}

	return &Listing{Title: title, Rows: filtered, TotalMinutes: total}, nil
}

// UpdateRequest is the administrative override. Nil fields stay untouched.
// Times are wall-clock HH:MM applied on the record's own shift date.
type UpdateRequest struct {
	MemberNames []string
	CheckIn     *string
	CheckOut    *string
	Memo        *string
}

// Update merges the request into a record. When the result has both a
// check-in and a check-out, minutes are recomputed so the record stays
// internally consistent after manual time edits.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*model.Entry, error) {
	current, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := db.EntryPatch{MemberNames: splitMembers(req.MemberNames), Memo: req.Memo}

	checkIn := current.CheckIn
	if req.CheckIn != nil {
		t, err := s.timeOnDate(current.Date, *req.CheckIn)
		if err != nil {
			return nil, err
		}
		checkIn = t
		patch.CheckIn = &t
	}

	checkOut := current.CheckOut
	if req.CheckOut != nil {
		t, err := s.timeOnDate(current.Date, *req.CheckOut)
		if err != nil {
			return nil, err
		}
		checkOut = &t
		patch.CheckOut = &t
	}

	if checkOut != nil && (req.CheckIn != nil || req.CheckOut != nil) {
		m := model.ElapsedMinutes(checkIn, *checkOut)
		patch.Minutes = &m
	}

	if err := s.store.PatchEntry(ctx, id, patch); err != nil {
		return nil, err
	}

	s.logger.Info().Str("entry_id", id).Msg("record updated by admin")
	return s.store.GetEntry(ctx, id)
}

// splitMembers flattens the edit form's 、-separated input. A nil result
// keeps the stored list untouched.
func splitMembers(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, field := range in {
		for _, name := range strings.Split(field, "、") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func (s *Service) timeOnDate(date, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected HH:MM", hhmm)
	}
	return t, nil
}
