package passkey_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/passlet/go-wallet/internal/config"
	"github/passlet/go-wallet/internal/test"
	"github/passlet/go-wallet/internal/wallet/credstore"
	"github/passlet/go-wallet/internal/wallet/passkey"
)

func testConfig() config.Connector {
	return config.Connector{
		ProjectID: "project-a",
		AppName:   "Passlet Demo",
	}
}

func TestObtainReusesExistingCredential(t *testing.T) {
	ctx := t.Context()
	store := credstore.NewMemoryStore()
	ceremony := &test.FakeCeremony{Credential: test.NewTestCredential()}
	prompt := &test.FakePrompt{}

	svc := passkey.NewService(testConfig(), store, ceremony, prompt)

	record, reused, err := svc.Obtain(ctx)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, 1, ceremony.LoginCalls)
	assert.Equal(t, 0, ceremony.RegisterCalls)
	assert.Equal(t, 0, prompt.Calls)
	assert.Equal(t, "Passlet Demo - Passkey", record.DisplayName)

	stored, err := store.Get(ctx, credstore.Key("project-a"))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, record.WebAuthnKey.ID, stored.WebAuthnKey.ID)
}

func TestObtainFallsBackToRegistration(t *testing.T) {
	ctx := t.Context()
	store := credstore.NewMemoryStore()
	ceremony := &test.FakeCeremony{
		Credential: test.NewTestCredential(),
		LoginErr:   errors.New("no credential on this device"),
	}
	prompt := &test.FakePrompt{Name: "My Wallet"}

	svc := passkey.NewService(testConfig(), store, ceremony, prompt)

	record, reused, err := svc.Obtain(ctx)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, 1, ceremony.LoginCalls)
	assert.Equal(t, 1, ceremony.RegisterCalls)
	assert.Equal(t, 1, prompt.Calls)

	// The register path always writes the user-edited name.
	assert.Equal(t, "My Wallet", record.DisplayName)
}

func TestRegisterCancelledPromptWritesNothing(t *testing.T) {
	ctx := t.Context()
	store := credstore.NewMemoryStore()
	ceremony := &test.FakeCeremony{Credential: test.NewTestCredential()}
	prompt := &test.FakePrompt{Err: passkey.ErrUserRejected}

	svc := passkey.NewService(testConfig(), store, ceremony, prompt)

	_, err := svc.Register(ctx, "Passlet Demo - Passkey")
	require.ErrorIs(t, err, passkey.ErrUserRejected)
	assert.Equal(t, 0, ceremony.RegisterCalls)
	assert.Equal(t, 0, store.Len())
}

func TestRegisterCancelledCeremonyWritesNothing(t *testing.T) {
	ctx := t.Context()
	store := credstore.NewMemoryStore()
	ceremony := &test.FakeCeremony{RegisterErr: passkey.ErrUserRejected}
	prompt := &test.FakePrompt{}

	svc := passkey.NewService(testConfig(), store, ceremony, prompt)

	_, err := svc.Register(ctx, "Passlet Demo - Passkey")
	require.ErrorIs(t, err, passkey.ErrUserRejected)
	assert.Equal(t, 0, store.Len())
}

func TestRegisterFailureIsDistinguishable(t *testing.T) {
	ctx := t.Context()
	store := credstore.NewMemoryStore()
	ceremony := &test.FakeCeremony{RegisterErr: errors.New("relying party unreachable")}
	prompt := &test.FakePrompt{}

	svc := passkey.NewService(testConfig(), store, ceremony, prompt)

	_, err := svc.Register(ctx, "Passlet Demo - Passkey")
	require.ErrorIs(t, err, passkey.ErrRegistrationFailed)
	assert.NotErrorIs(t, err, passkey.ErrUserRejected)
}

func TestAuthenticatePreservesStoredDisplayName(t *testing.T) {
	ctx := t.Context()
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, credstore.Key("project-a"), &credstore.Record{
		WebAuthnKey: *test.NewTestCredential(),
		DisplayName: "Name I Picked",
	}))

	ceremony := &test.FakeCeremony{Credential: test.NewTestCredential()}
	svc := passkey.NewService(testConfig(), store, ceremony, &test.FakePrompt{})

	record, err := svc.Authenticate(ctx, "Passlet Demo - Passkey")
	require.NoError(t, err)
	assert.Equal(t, "Name I Picked", record.DisplayName)
}

func TestAuthenticateFailureClassification(t *testing.T) {
	ctx := t.Context()
	ceremony := &test.FakeCeremony{LoginErr: errors.New("authenticator error")}
	svc := passkey.NewService(testConfig(), credstore.NewMemoryStore(), ceremony, &test.FakePrompt{})

	_, err := svc.Authenticate(ctx, "Passlet Demo - Passkey")
	require.ErrorIs(t, err, passkey.ErrAuthenticationFailed)
}
