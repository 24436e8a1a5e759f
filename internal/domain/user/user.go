// Package user holds the account model. Accounts are provisioned by an
// operator with a single API token; there is no self-service signup.
package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means no account matches the lookup.
	ErrNotFound = errors.New("user: not found")
	// ErrInvalidCredentials means the e-mail/token pair did not check out.
	// Callers get one error for both a missing account and a wrong token.
	ErrInvalidCredentials = errors.New("user: invalid credentials")
)

// User is one provisioned account. TokenHash is the bcrypt hash of the API
// token handed out at seeding time; the plaintext is never stored.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	TokenHash   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
