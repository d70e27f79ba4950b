package connector

import (
	"github.com/pkg/errors"
)

var (
	// ErrNoStoredCredential is returned by Reconnect when nothing is
	// persisted. Recoverable by a full Connect.
	ErrNoStoredCredential = errors.New("no stored credential")

	// ErrUnsupportedChain is returned when the requested chain is not in the
	// configured set. The existing session is left untouched.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrBuildFailed is returned when the smart account factory could not
	// construct the account/client pair.
	ErrBuildFailed = errors.New("failed to build smart account session")

	// ErrNotConnected is returned when an operation requiring an active
	// session is invoked while disconnected.
	ErrNotConnected = errors.New("not connected")

	// ErrTimeout is returned when a ceremony or bundler call exceeded its
	// configured deadline.
	ErrTimeout = errors.New("operation timed out")
)
