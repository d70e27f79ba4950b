package credstore

import (
	"context"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/pkg/errors"
)

// ErrCorruptRecord is returned by Get when a stored record exists but cannot
// be decoded. Callers treat it as "no usable credential" and delete the record.
var ErrCorruptRecord = errors.New("credential record is corrupt")

// Record is the durable credential material for one application instance.
// It is the only state that outlives a session; sessions are rebuilt from it.
type Record struct {
	WebAuthnKey webauthn.Credential `json:"webAuthnKey"`
	DisplayName string              `json:"displayName"`
}

// Service persists and retrieves credential records by key.
//
// Get returns (nil, nil) for an absent record; only storage-layer failures
// and corrupt records produce errors. Delete is idempotent.
type Service interface {
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record) error
	Delete(ctx context.Context, key string) error
}

// Key returns the storage key for the given project id. One record is kept
// per application instance, not per chain.
func Key(projectID string) string {
	return "passlet:credential:" + projectID
}
