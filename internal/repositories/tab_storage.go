package repositories

import (
	"context"
	"errors"
	"time"
)

// TabStorage is key/value storage partitioned by tab scope, the server side
// counterpart of a browser's per-tab session storage. Idle time is measured
// from the last write or touch of a scope.
type TabStorage interface {
	GetItem(ctx context.Context, scope, key string) (string, bool, error)
	SetItem(ctx context.Context, scope, key, value string) error
	RemoveItem(ctx context.Context, scope, key string) error
	Clear(ctx context.Context, scope string) error
	// Touch restarts the idle clock of an existing scope without changing
	// its items. Unknown scopes are left alone.
	Touch(ctx context.Context, scope string) error
	// PurgeIdle drops every scope not written for longer than idle and
	// returns how many scopes were removed.
	PurgeIdle(ctx context.Context, idle time.Duration) (int, error)
}

var ErrEmptyScope = errors.New("tab scope is required")

func checkScope(scope string) error {
	if scope == "" {
		return ErrEmptyScope
	}
	return nil
}
