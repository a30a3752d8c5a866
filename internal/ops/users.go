package ops

import (
	"context"
	"database/sql"
	"net/mail"
	"strings"
	"time"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
)

// RegisterUserInput contains parameters for the RegisterUser operation.
type RegisterUserInput struct {
	ID       string
	Email    string
	Timezone string // IANA zone; universal-time tokens are rejected
}

// RegisterUser creates a user or updates their email and timezone.
func RegisterUser(ctx context.Context, database *sql.DB, input RegisterUserInput) (*task.User, error) {
	id, err := requireUser(input.ID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(input.Email)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return nil, errors.NewInvalidRequest("email is not a valid address: " + email)
		}
		email = addr.Address
	}

	zone, err := timezone.New(input.Timezone)
	if err != nil {
		return nil, err
	}

	u := &task.User{
		ID:        id,
		Email:     email,
		Timezone:  zone.Zone(),
		CreatedAt: time.Unix(time.Now().Unix(), 0),
	}
	if err := db.UpsertUser(ctx, database, u); err != nil {
		return nil, err
	}
	return db.GetUser(ctx, database, id)
}

// GetUser retrieves a registered user.
func GetUser(ctx context.Context, database *sql.DB, id string) (*task.User, error) {
	id, err := requireUser(id)
	if err != nil {
		return nil, err
	}
	return db.GetUser(ctx, database, id)
}

// ListUsers returns every registered user.
func ListUsers(ctx context.Context, database *sql.DB) ([]task.User, error) {
	return db.ListUsers(ctx, database)
}

// ResolveUser returns the registered user, or an unregistered profile with no
// email and defaultZone when the id is unknown. A non-empty zone overrides the
// recorded timezone for this call only.
func ResolveUser(ctx context.Context, database *sql.DB, id, zone, defaultZone string) (*task.User, error) {
	id, err := requireUser(id)
	if err != nil {
		return nil, err
	}
	u, err := db.GetUser(ctx, database, id)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		u = &task.User{ID: id, Timezone: defaultZone}
	}
	if z := strings.TrimSpace(zone); z != "" {
		u.Timezone = z
	}
	return u, nil
}
