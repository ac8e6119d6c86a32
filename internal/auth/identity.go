// Package auth verifies bearer tokens issued by the external identity
// provider and turns them into an Identity the handlers pass explicitly to
// the services.
package auth

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID      snowflake.ID
	Email       string
	DisplayName string
}

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")
)
