package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kritdbb/DobyHR/internal/ir"
)

const userColumns = `id, name, surname, image, coins, angel_coins, base_str, base_def, base_luk, start_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (ir.User, error) {
	var u ir.User
	var start sql.NullTime
	if err := row.Scan(&u.ID, &u.Name, &u.Surname, &u.Image, &u.Coins, &u.Mana,
		&u.BaseStr, &u.BaseDef, &u.BaseLuk, &start); err != nil {
		return ir.User{}, err
	}
	if start.Valid {
		t := start.Time
		u.StartDate = &t
	}
	return u, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]ir.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []ir.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UserByID returns one user or ErrNotFound.
func (s *Store) UserByID(ctx context.Context, id int64) (ir.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ir.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// CreateUser inserts a user. A zero ID lets SQLite assign one.
func (s *Store) CreateUser(ctx context.Context, u ir.User) (int64, error) {
	var id any
	if u.ID != 0 {
		id = u.ID
	}
	var start any
	if u.StartDate != nil {
		start = u.StartDate.UTC().Format(time.DateOnly)
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users
		(id, name, surname, image, coins, angel_coins, base_str, base_def, base_luk, start_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, u.Name, u.Surname, u.Image, u.Coins, u.Mana, u.BaseStr, u.BaseDef, u.BaseLuk, start)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return result.LastInsertId()
}

// PresentCheckinTimes returns the timestamps of the user's check-ins with
// status "present", newest first.
func (s *Store) PresentCheckinTimes(ctx context.Context, userID int64) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp FROM attendance
		WHERE user_id = ? AND status = 'present'
		ORDER BY timestamp DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("checkin times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("checkin times: scan: %w", err)
		}
		times = append(times, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("checkin times: %w", err)
	}
	return times, nil
}
