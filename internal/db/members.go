package db

import (
	"context"
	"fmt"
	"time"

	"crewtime/internal/model"
	"crewtime/internal/names"

	"github.com/google/uuid"
)

// ListActiveMembers returns the active roster for a role, ordered by name.
func (db *DB) ListActiveMembers(ctx context.Context, role model.Role) ([]model.Member, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, role, active, created_at, updated_at
		FROM members
		WHERE role = ? AND active = 1
		ORDER BY name`,
		role,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// EnsureMember registers a free-typed name on the roster if no member of the
// role already matches it under normalization. Returns true when a new
// member was created. The unique (role, name_key) index makes a concurrent
// duplicate registration collapse into a no-op.
func (db *DB) EnsureMember(ctx context.Context, role model.Role, name string) (bool, error) {
	key := names.Normalize(name)
	if key == "" {
		return false, nil
	}

	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO members (id, name, name_key, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(role, name_key) DO NOTHING`,
		uuid.NewString(), name, key, role, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("ensure member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeactivateMember hides a member from the kiosk roster. Members are never
// physically deleted.
func (db *DB) DeactivateMember(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE members SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("deactivate member: %w", err)
	}
	return requireRow(res)
}
