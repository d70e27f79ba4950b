package test

import (
	"context"

	"github.com/go-webauthn/webauthn/webauthn"
	"github/passlet/go-wallet/internal/wallet/passkey"
)

// FakeCeremony is a scriptable passkey.Ceremony for tests.
type FakeCeremony struct {
	Credential    *webauthn.Credential
	LoginErr      error
	RegisterErr   error
	LoginCalls    int
	RegisterCalls int
}

// Login returns the scripted credential or error.
func (f *FakeCeremony) Login(_ context.Context, _ string) (*webauthn.Credential, error) {
	f.LoginCalls++
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}

	return f.Credential, nil
}

// Register returns the scripted credential or error.
func (f *FakeCeremony) Register(_ context.Context, _ string) (*webauthn.Credential, error) {
	f.RegisterCalls++
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}

	return f.Credential, nil
}

// FakePrompt is a scriptable passkey.NamePrompt for tests.
type FakePrompt struct {
	Name  string
	Err   error
	Calls int
}

// ConfirmName returns the scripted name or error, defaulting to the suggestion.
func (f *FakePrompt) ConfirmName(_ context.Context, suggested string) (string, error) {
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	if f.Name != "" {
		return f.Name, nil
	}

	return suggested, nil
}

// NewTestCredential returns credential material with a valid COSE P-256
// public key, usable by the smart account factory.
func NewTestCredential() *webauthn.Credential {
	return &webauthn.Credential{
		ID:        []byte("test-credential-id"),
		PublicKey: TestCOSEKey(),
	}
}

var _ passkey.Ceremony = (*FakeCeremony)(nil)
var _ passkey.NamePrompt = (*FakePrompt)(nil)
