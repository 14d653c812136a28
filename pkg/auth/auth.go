package auth

import (
	"context"

	"github.com/pkg/errors"
)

// TokenProvider yields a bearer token for the management API.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Session is an explicit credential object. Callers invoke Login only when
// Active reports no usable session; a failed Login is fatal for the run.
type Session interface {
	TokenProvider
	Active(ctx context.Context) bool
	Login(ctx context.Context) error
}

// StaticToken is a pre-acquired bearer token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("empty static token")
	}
	return string(t), nil
}

func (t StaticToken) Active(context.Context) bool {
	return t != ""
}

func (t StaticToken) Login(context.Context) error {
	if t == "" {
		return errors.New("no token to log in with")
	}
	return nil
}
