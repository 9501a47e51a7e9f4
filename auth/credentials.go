package auth

import (
	"context"
	"errors"
	"strings"

	"evite/db"
	"evite/models"
)

type UserStore interface {
	UserLoader
	CreateUser(ctx context.Context, u *models.User) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Credentials registers accounts and verifies passwords.
type Credentials struct {
	users UserStore
}

func NewCredentials(users UserStore) *Credentials {
	return &Credentials{users: users}
}

// Register creates an account. Duplicate usernames are reported before
// duplicate emails.
func (c *Credentials) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, models.ErrMissingFields
	}

	hash, err := db.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: username, Email: email, PasswordHash: hash}
	if err := c.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Verify returns the user when password matches the stored hash.
func (c *Credentials) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := c.users.UserByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	// Timing attack mitigation: always check password
	targetHash := db.DummyHash
	if user != nil {
		targetHash = user.PasswordHash
	}
	match := db.CheckPasswordHash(password, targetHash)

	if user == nil || !match {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}
