package controller

import (
	"context"
	"fmt"

	"instrupro-backend/internal/cache"
)

// ChangeSource publishes writes to cache keys made by other processes.
type ChangeSource interface {
	Subscribe(key string) (<-chan cache.Change, func())
}

// observe calls reload for every change of key until ctx is done or the
// source closes the subscription. It returns once the goroutine is running.
func observe(ctx context.Context, src ChangeSource, key string, reload func(cache.Change)) {
	changes, unsubscribe := src.Subscribe(key)
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				reload(change)
			}
		}
	}()
}

func wrapRemote(err error) error {
	return fmt.Errorf("%w: %w", ErrRemote, err)
}
