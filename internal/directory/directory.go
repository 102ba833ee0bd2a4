// Package directory manages the user records consulted by the scheduler
// and the login flow.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"hospadmin/internal/models"
	"hospadmin/internal/store"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrBadPassword  = errors.New("wrong password")
	ErrDuplicateID  = errors.New("user id already exists")
)

// Directory is a thin service over the user records.
type Directory struct {
	store  store.RecordStore
	logger zerolog.Logger
}

// New creates a directory over the given user store.
func New(st store.RecordStore, logger zerolog.Logger) *Directory {
	return &Directory{
		store:  st,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

func (d *Directory) load(ctx context.Context) ([]models.User, error) {
	records, err := d.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := make([]models.User, 0, len(records))
	for _, rec := range records {
		u, err := models.UserFromRow(rec)
		if err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (d *Directory) save(ctx context.Context, users []models.User) error {
	records := make([]store.Record, len(users))
	for i, u := range users {
		records[i] = u.Row()
	}
	if err := d.store.Save(ctx, records); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// LookupRole returns the role of the user with the given id.
func (d *Directory) LookupRole(ctx context.Context, id string) (models.Role, error) {
	u, err := d.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// Get returns the user by id.
func (d *Directory) Get(ctx context.Context, id string) (models.User, error) {
	users, err := d.load(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%s: %w", id, ErrUserNotFound)
}

// Authenticate checks the stored password for the user. The record files
// hold passwords in the clear; there is no security model here.
func (d *Directory) Authenticate(ctx context.Context, id, password string) (models.User, error) {
	u, err := d.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if u.Password != password {
		d.logger.Warn().Str("user_id", id).Msg("failed login attempt")
		return models.User{}, fmt.Errorf("%s: %w", id, ErrBadPassword)
	}
	return u, nil
}

// ListByRole returns every user with the given role, in file order.
func (d *Directory) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// Create appends a new user record.
func (d *Directory) Create(ctx context.Context, user models.User) error {
	users, err := d.load(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID == user.ID {
			return fmt.Errorf("%s: %w", user.ID, ErrDuplicateID)
		}
	}
	users = append(users, user)
	if err := d.save(ctx, users); err != nil {
		return err
	}
	d.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user created")
	return nil
}

// Update overwrites the user record with the same id.
func (d *Directory) Update(ctx context.Context, user models.User) error {
	users, err := d.load(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == user.ID {
			users[i] = user
			return d.save(ctx, users)
		}
	}
	return fmt.Errorf("%s: %w", user.ID, ErrUserNotFound)
}

// Delete removes the user record.
func (d *Directory) Delete(ctx context.Context, id string) error {
	users, err := d.load(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == id {
			users = append(users[:i], users[i+1:]...)
			if err := d.save(ctx, users); err != nil {
				return err
			}
			d.logger.Info().Str("user_id", id).Msg("user deleted")
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, ErrUserNotFound)
}
