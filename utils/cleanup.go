package utils

import (
	"context"
	"time"
)

// StartJanitor launches a background goroutine that periodically prunes expired
// in-memory revocations and OAuth states. It stops when ctx is done.
func StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tokens := PruneBlacklist()
				states := PruneStates()
				if tokens+states > 0 {
					L().Sugar().Debugf("janitor pruned tokens=%d states=%d", tokens, states)
				}
			}
		}
	}()
}
