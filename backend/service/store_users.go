package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AnTengye/bettertender/backend/model"
)

const userColumns = "id, email, full_name, password_hash, role, is_active, created_at"

// InsertUser stores u and sets its ID
func (q *Queries) InsertUser(ctx context.Context, u *model.User) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO users (email, full_name, password_hash, role, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.Email, u.FullName, u.PasswordHash, string(u.Role), u.IsActive, formatTime(u.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	return nil
}

// GetUser loads a user by id
func (q *Queries) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByEmail loads a user by email
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// CountUsers returns the number of registered users
func (q *Queries) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u         model.User
		role      string
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &role, &u.IsActive, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = model.Role(role)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}
