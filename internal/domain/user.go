// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen   = 255
	MaxUsernameLen = 64
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUserIDInvalid   = errors.New("user id must look like @localpart:server")
)

// UserID is a federated user identifier such as "@alice:example.org".
type UserID string

type User struct {
	ID       UserID `json:"user_id"`
	Username string `json:"username"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// An empty username falls back to the localpart of the id.
func NewUser(id UserID, username string) (*User, error) {
	if err := ValidateUserID(id); err != nil {
		return nil, err
	}
	if username == "" {
		username = id.Localpart()
	}
	u := &User{ID: id}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}

func ValidateUserID(id UserID) error {
	s := string(id)
	if len(s) < 4 || len(s) > MaxUserIDLen || s[0] != '@' || !strings.Contains(s[1:], ":") {
		return ErrUserIDInvalid
	}
	return nil
}

// Localpart returns "alice" for "@alice:example.org".
func (id UserID) Localpart() string {
	s := strings.TrimPrefix(string(id), "@")
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}
