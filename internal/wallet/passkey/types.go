package passkey

import (
	"context"
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/pkg/errors"
	"github/passlet/go-wallet/internal/wallet/credstore"
)

var (
	// ErrUserRejected is returned when the user cancelled the naming prompt
	// or the platform authenticator ceremony.
	ErrUserRejected = errors.New("user rejected the passkey ceremony")

	// ErrAuthenticationFailed is returned when a login-mode assertion failed
	// for reasons other than user cancellation, e.g. no matching credential
	// exists on the device or relying party.
	ErrAuthenticationFailed = errors.New("passkey authentication failed")

	// ErrRegistrationFailed is returned when a registration ceremony failed
	// for reasons other than user cancellation.
	ErrRegistrationFailed = errors.New("passkey registration failed")
)

// Ceremony is the WebAuthn ceremony boundary. Implementations perform a
// login-mode assertion or a registration ceremony against the relying party
// and return the resulting credential material. Cancellations surface as
// errors matching ErrUserRejected.
type Ceremony interface {
	Login(ctx context.Context, displayName string) (*webauthn.Credential, error)
	Register(ctx context.Context, displayName string) (*webauthn.Credential, error)
}

// Authenticator is the platform-authenticator boundary used by the relying
// party client: it turns ceremony options into a signed authenticator
// response (in the browser this is navigator.credentials.create/get).
type Authenticator interface {
	Create(ctx context.Context, options *protocol.CredentialCreation) (json.RawMessage, error)
	Get(ctx context.Context, options *protocol.CredentialAssertion) (json.RawMessage, error)
}

// NamePrompt asks the user to confirm or edit the passkey display name
// before registration. Implementations return an error matching
// ErrUserRejected when the user cancels the prompt.
type NamePrompt interface {
	ConfirmName(ctx context.Context, suggested string) (string, error)
}

// AcceptSuggestedName is a NamePrompt for non-interactive setups. It keeps
// the suggested display name.
type AcceptSuggestedName struct{}

func (AcceptSuggestedName) ConfirmName(_ context.Context, suggested string) (string, error) {
	return suggested, nil
}

// Service creates or restores a WebAuthn credential and persists it in the
// credential store before returning it.
type Service interface {
	// Authenticate performs a login-mode assertion using the given display
	// name. An existing stored display name is preserved.
	Authenticate(ctx context.Context, displayName string) (*credstore.Record, error)

	// Register performs a registration ceremony, prompting the user to
	// confirm or edit the display name first. The (possibly edited) name is
	// always written.
	Register(ctx context.Context, displayName string) (*credstore.Record, error)

	// Obtain runs the authenticate-then-register strategy and reports
	// whether an existing credential was reused (true) or a new one was
	// registered (false).
	Obtain(ctx context.Context) (*credstore.Record, bool, error)
}
