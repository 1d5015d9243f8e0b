package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crewtime/internal/model"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// CreateOpen inserts a new in-progress entry and assigns its ID. The partial
// unique index rejects a second open entry for the same slot; that surfaces
// as ErrOpenExists.
func (db *DB) CreateOpen(ctx context.Context, e *model.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	namesJSON, err := json.Marshal(e.MemberNames)
	if err != nil {
		return fmt.Errorf("marshal member names: %w", err)
	}

	now := time.Now()
	_, err = db.ExecContext(ctx, `
		INSERT INTO entries (id, hall, role, member_names, date, check_in, status, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Hall, e.Role, string(namesJSON), e.Date, e.CheckIn,
		model.StatusInProgress, e.Memo, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrOpenExists
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	e.Status = model.StatusInProgress
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

const entryColumns = `id, hall, role, member_names, date, check_in, check_out, minutes, status, memo, created_at, updated_at`

// FindOpen returns the in-progress entry for (date, hall, role), or nil when
// the slot is closed. More than one match is a consistency error and is
// surfaced, never silently resolved to the first row.
func (db *DB) FindOpen(ctx context.Context, date string, hall model.Hall, role model.Role) (*model.Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE date = ? AND hall = ? AND role = ? AND status = ?
		ORDER BY check_in DESC`,
		date, hall, role, model.StatusInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("query open entry: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(entries) {
	case 0:
		return nil, nil
	case 1:
		return &entries[0], nil
	default:
		return nil, ErrMultipleOpen
	}
}

// GetEntry returns one entry by ID.
func (db *DB) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// CompleteEntry transitions an entry to DONE, recording check-out and minutes.
func (db *DB) CompleteEntry(ctx context.Context, id string, checkOut time.Time, minutes int) error {
	res, err := db.ExecContext(ctx, `
		UPDATE entries
		SET check_out = ?, minutes = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		checkOut, minutes, model.StatusDone, time.Now(), id, model.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("complete entry: %w", err)
	}
	return requireRow(res)
}

// UpdateMembers replaces the member list of an open entry and re-asserts
// IN_PROGRESS, guarding against a concurrent checkout overwriting status.
func (db *DB) UpdateMembers(ctx context.Context, id string, memberNames []string) error {
	namesJSON, err := json.Marshal(memberNames)
	if err != nil {
		return fmt.Errorf("marshal member names: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE entries
		SET member_names = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		string(namesJSON), model.StatusInProgress, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update members: %w", err)
	}
	return requireRow(res)
}

// UpdateCheckIn overwrites check-in of an open entry and re-asserts
// IN_PROGRESS. Callers are responsible for preserving the calendar date.
func (db *DB) UpdateCheckIn(ctx context.Context, id string, checkIn time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE entries
		SET check_in = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		checkIn, model.StatusInProgress, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update check-in: %w", err)
	}
	return requireRow(res)
}

// EntryPatch is a partial field set for the administrative override. Nil
// fields are left untouched. There is no state-machine guard here: the
// admin surface edits records regardless of status.
type EntryPatch struct {
	MemberNames []string
	CheckIn     *time.Time
	CheckOut    *time.Time
	Minutes     *int
	Memo        *string
}

// PatchEntry merges the patch into an entry.
func (db *DB) PatchEntry(ctx context.Context, id string, p EntryPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}

	if p.MemberNames != nil {
		namesJSON, err := json.Marshal(p.MemberNames)
		if err != nil {
			return fmt.Errorf("marshal member names: %w", err)
		}
		sets = append(sets, "member_names = ?")
		args = append(args, string(namesJSON))
	}
	if p.CheckIn != nil {
		sets = append(sets, "check_in = ?")
		args = append(args, *p.CheckIn)
	}
	if p.CheckOut != nil {
		sets = append(sets, "check_out = ?")
		args = append(args, *p.CheckOut)
	}
	if p.Minutes != nil {
		sets = append(sets, "minutes = ?")
		args = append(args, *p.Minutes)
	}
	if p.Memo != nil {
		sets = append(sets, "memo = ?")
		args = append(args, *p.Memo)
	}

	args = append(args, id)
	res, err := db.ExecContext(ctx,
		"UPDATE entries SET "+joinSets(sets)+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("patch entry: %w", err)
	}
	return requireRow(res)
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

// ListRange returns entries with date in [from, to], ordered by date.
func (db *DB) ListRange(ctx context.Context, from, to string) ([]model.Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE date >= ? AND date <= ?
		ORDER BY date, check_in`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListOpen returns all in-progress entries ordered by hall, for the kiosk
// status board and for janitor passes.
func (db *DB) ListOpen(ctx context.Context) ([]model.Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE status = ?
		ORDER BY hall, role, check_in`,
		model.StatusInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("query open entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func collectEntries(rows *sql.Rows) ([]model.Entry, error) {
	var entries []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.Entry, error) {
	var (
		e         model.Entry
		namesJSON string
		checkOut  sql.NullTime
		minutes   sql.NullInt64
	)
	err := row.Scan(
		&e.ID, &e.Hall, &e.Role, &namesJSON, &e.Date, &e.CheckIn,
		&checkOut, &minutes, &e.Status, &e.Memo, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(namesJSON), &e.MemberNames); err != nil {
		return nil, fmt.Errorf("unmarshal member names for %s: %w", e.ID, err)
	}
	if checkOut.Valid {
		t := checkOut.Time
		e.CheckOut = &t
	}
	if minutes.Valid {
		m := int(minutes.Int64)
		e.Minutes = &m
	}
	return &e, nil
}
