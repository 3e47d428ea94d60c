package auth

import (
	"context"
	"errors"
)

var ErrSessionExpired = errors.New("session expired")

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	IsLogged(ctx context.Context, token string) (bool, error)
	UserID(ctx context.Context, token string) (string, error)
}
