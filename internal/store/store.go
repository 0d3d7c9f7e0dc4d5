// Package store holds the single last-known session id per visitor scope.
//
// The slot is overwrite-only: it is never proactively cleared, the next
// session's id simply replaces the previous one. A stale id is tolerated
// because re-fetching a terminal session is idempotent and harmless.
package store

import "context"

// Store is the persisted-identifier slot. scope identifies one visitor tab.
type Store interface {
	// Get returns the stored session id for the scope, if any.
	Get(ctx context.Context, scope string) (string, bool, error)
	// Set overwrites the slot with a new session id.
	Set(ctx context.Context, scope, sessionID string) error
}
