package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

func (lc *LoginChecker) IsLogged(ctx context.Context, token string) (bool, error) {
	_, err := lc.UserID(ctx, token)
	if err != nil {
		if err == ErrSessionExpired {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UserID resolves the user behind a session token, enforcing the TTL.
func (lc *LoginChecker) UserID(ctx context.Context, token string) (string, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := lc.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return "", err
	}

	userID, createdAt, err := parseSessionValue(cmd.Val())
	if err != nil {
		return "", err
	}

	if time.Since(createdAt) > lc.ttl {
		return "", ErrSessionExpired
	}

	return userID, nil
}
