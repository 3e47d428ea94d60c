package auth

import "context"

// LoginTestChecker is a Checker with canned token -> user mappings,
// used in handler unit tests instead of a real redis.
type LoginTestChecker struct {
	LoggedSessions map[string]string
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		LoggedSessions: make(map[string]string),
	}
}

func (tc *LoginTestChecker) IsLogged(_ context.Context, token string) (bool, error) {
	_, ok := tc.LoggedSessions[token]
	return ok, nil
}

func (tc *LoginTestChecker) UserID(_ context.Context, token string) (string, error) {
	userID, ok := tc.LoggedSessions[token]
	if !ok {
		return "", ErrSessionExpired
	}
	return userID, nil
}
