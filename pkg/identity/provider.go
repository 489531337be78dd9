package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExternalProfile is the verified profile handed back by a third-party
// identity handshake (Google, Discord, Facebook). The handshake itself is an
// external collaborator; only the resulting profile-to-account exchange lives
// here.
type ExternalProfile struct {
	Provider    string
	Email       string
	DisplayName string
}

// Provider exchanges a verified external profile for an internal account.
// Every third-party integration is a variant behind this one interface.
type Provider interface {
	ExchangeExternalProfile(ctx context.Context, profile ExternalProfile) (*User, error)
}

// UserProvider implements Provider on the Users store: find-or-create keyed
// by normalized email.
type UserProvider struct {
	users *Users
}

func NewUserProvider(users *Users) *UserProvider {
	return &UserProvider{users: users}
}

func (p *UserProvider) ExchangeExternalProfile(ctx context.Context, profile ExternalProfile) (*User, error) {
	if profile.Email == "" || profile.Provider == "" {
		return nil, fmt.Errorf("external profile missing provider or email")
	}

	user, err := p.users.FindByEmail(ctx, normalizeEmail(profile.Email))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	displayName := profile.DisplayName
	if displayName == "" {
		displayName = profile.Email
	}

	user = &User{
		ID:          uuid.New().String(),
		Email:       normalizeEmail(profile.Email),
		DisplayName: displayName,
		Provider:    profile.Provider,
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.users.insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
