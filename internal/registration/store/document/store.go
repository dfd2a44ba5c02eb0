// Package document implements the key-value document adapter. Each key holds
// an entire JSON document (the registration array, the app-config object, the
// campus guide); every write replaces the whole value. There are no partial
// updates, no transactions, and no optimistic concurrency token.
package document

import (
	"context"
	"encoding/json"
)

// Fixed keys for the three independent documents.
const (
	KeyRegistrations = "outing:registrations"
	KeyAppConfig     = "outing:app_config"
	KeyCampusGuide   = "outing:campus_guide"
)

// Store is the full-document replace contract over the backend.
//
// Get returns sentinel.ErrNotFound for an absent key and wraps transport
// failures in sentinel.ErrUnavailable so callers can tell the two apart.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, doc json.RawMessage) error
	Delete(ctx context.Context, key string) error
}
