package utils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const statePrefix = "oauth:state:"

var (
	stateStore   = map[string]time.Time{}
	stateStoreMu sync.Mutex
)

// NewState creates and stores a single-use OAuth state token.
func NewState(ttl time.Duration) string {
	state := uuid.NewString()
	SaveState(state, ttl)
	return state
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, statePrefix+state, "1", ttl).Err(); err == nil {
			return
		}
	}
	stateStoreMu.Lock()
	stateStore[state] = time.Now().Add(ttl)
	stateStoreMu.Unlock()
}

// ConsumeState validates and removes a state token.
func ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, statePrefix+state).Result(); err == nil && v != "" {
			return true
		}
	}
	stateStoreMu.Lock()
	expiresAt, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	return ok && time.Now().Before(expiresAt)
}

// PruneStates drops expired in-memory state tokens.
func PruneStates() int {
	now := time.Now()
	stateStoreMu.Lock()
	defer stateStoreMu.Unlock()
	n := 0
	for s, exp := range stateStore {
		if now.After(exp) {
			delete(stateStore, s)
			n++
		}
	}
	return n
}
