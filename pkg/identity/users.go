package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

const bcryptCost = 10

// User is a registered account. PasswordHash is empty for accounts created
// through an external identity provider.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Provider     string // "local" or the external provider name
	CreatedAt    time.Time
}

// Users persists accounts in sqlite.
type Users struct {
	db *sql.DB
}

func NewUsers(db *sql.DB) (*Users, error) {
	u := &Users{db: db}
	if err := u.migrate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *Users) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT 'local',
		created_at INTEGER NOT NULL
	);`
	_, err := u.db.ExecContext(context.Background(), query)
	return err
}

// Signup registers a local account with a bcrypt-hashed password.
func (u *Users) Signup(ctx context.Context, email, password, displayName string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" || displayName == "" {
		return nil, ErrInvalidCredentials
	}

	if _, err := u.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Provider:     "local",
		CreatedAt:    time.Now().UTC(),
	}
	if err := u.insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies a local account's password.
func (u *Users) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := u.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindByEmail looks up an account by its normalized email.
func (u *Users) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := u.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, provider, created_at
		FROM users WHERE email = ?`, email)

	var user User
	var createdAt int64
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Provider, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, nil
}

func (u *Users) insert(ctx context.Context, user *User) error {
	_, err := u.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.Provider, user.CreatedAt.UnixNano())
	if err != nil {
		// Two concurrent registrations can both pass the lookup; the
		// unique index is the authority on duplicates.
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
