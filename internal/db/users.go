package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// UpsertUser inserts a user or replaces the email and timezone of an existing one.
// created_at is kept from the first insert.
func UpsertUser(ctx context.Context, db *sql.DB, u *task.User) error {
	query := `
		INSERT INTO users (id, email, timezone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			timezone = excluded.timezone
	`
	if _, err := db.ExecContext(ctx, query, u.ID, u.Email, u.Timezone, u.CreatedAt.Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetUser retrieves a user by id.
func GetUser(ctx context.Context, db *sql.DB, id string) (*task.User, error) {
	row := db.QueryRowContext(ctx, `SELECT id, email, timezone, created_at FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("user", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return u, nil
}

// ListUsers returns every registered user ordered by id.
func ListUsers(ctx context.Context, db *sql.DB) ([]task.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, email, timezone, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var users []task.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return users, nil
}

func scanUser(row rowScanner) (*task.User, error) {
	var (
		u         task.User
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Timezone, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

// InsertTranscript stores the raw text of a submission.
func InsertTranscript(ctx context.Context, db *sql.DB, tr *task.Transcript) error {
	query := `INSERT INTO transcripts (id, user_id, text, source, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, tr.ID, tr.UserID, tr.Text, string(tr.Source), tr.CreatedAt.Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListTranscripts returns the user's most recent transcripts, newest first.
func ListTranscripts(ctx context.Context, db *sql.DB, userID string, limit, offset int) ([]task.Transcript, error) {
	query := `
		SELECT id, user_id, text, source, created_at
		FROM transcripts
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []task.Transcript
	for rows.Next() {
		var (
			tr        task.Transcript
			source    string
			createdAt int64
		)
		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.Text, &source, &createdAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		tr.Source = task.TranscriptSource(source)
		tr.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}
