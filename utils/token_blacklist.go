package utils

import (
	"context"
	"sync"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

var (
	blacklist   = map[string]time.Time{}
	blacklistMu sync.RWMutex
)

// BlacklistToken revokes a token until its natural expiration.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if token == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	blacklistMu.Lock()
	blacklist[token] = expiresAt
	blacklistMu.Unlock()
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, blacklistPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
	}
	blacklistMu.RLock()
	expiresAt, ok := blacklist[token]
	blacklistMu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().After(expiresAt) {
		blacklistMu.Lock()
		delete(blacklist, token)
		blacklistMu.Unlock()
		return false
	}
	return true
}

// PruneBlacklist drops expired in-memory entries.
func PruneBlacklist() int {
	now := time.Now()
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	n := 0
	for token, exp := range blacklist {
		if now.After(exp) {
			delete(blacklist, token)
			n++
		}
	}
	return n
}
