package connector_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/passlet/go-wallet/internal/config"
	"github/passlet/go-wallet/internal/test"
	"github/passlet/go-wallet/internal/wallet/account"
	"github/passlet/go-wallet/internal/wallet/connector"
	"github/passlet/go-wallet/internal/wallet/credstore"
	"github/passlet/go-wallet/internal/wallet/passkey"
)

var testAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")

type fakeBuilder struct {
	address common.Address
	errs    []error
	calls   int
	chains  []account.ChainContext
}

func (b *fakeBuilder) Build(_ context.Context, _ *credstore.Record, chain account.ChainContext) (*account.Session, error) {
	b.calls++
	b.chains = append(b.chains, chain)

	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	return &account.Session{
		Account: &account.Account{Address: b.address},
		Client:  &account.Client{},
	}, nil
}

type recordedEvent struct {
	address common.Address
	chainID int64
}

type recordingEvents struct {
	connects    []recordedEvent
	changes     []recordedEvent
	disconnects []recordedEvent
}

func (e *recordingEvents) PublishConnect(_ context.Context, address common.Address, chainID int64) error {
	e.connects = append(e.connects, recordedEvent{address, chainID})
	return nil
}

func (e *recordingEvents) PublishChange(_ context.Context, address common.Address, chainID int64) error {
	e.changes = append(e.changes, recordedEvent{address, chainID})
	return nil
}

func (e *recordingEvents) PublishDisconnect(_ context.Context, address common.Address) error {
	e.disconnects = append(e.disconnects, recordedEvent{address: address})
	return nil
}

func testConfig() config.Connector {
	return config.Connector{
		ProjectID:       "project-a",
		AppName:         "Passlet Demo",
		CeremonyTimeout: time.Second,
		BundlerTimeout:  time.Second,
		Chains: []config.Chain{
			{ID: 11155111, Name: "Sepolia"},
			{ID: 84532, Name: "Base Sepolia"},
		},
	}
}

type fixture struct {
	connector *connector.Connector
	store     *credstore.MemoryStore
	builder   *fakeBuilder
	ceremony  *test.FakeCeremony
	prompt    *test.FakePrompt
	events    *recordingEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, credstore.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store *credstore.MemoryStore) *fixture {
	t.Helper()

	cfg := testConfig()
	ceremony := &test.FakeCeremony{Credential: test.NewTestCredential()}
	prompt := &test.FakePrompt{}
	builder := &fakeBuilder{address: testAddress}
	events := &recordingEvents{}

	passkeySvc := passkey.NewService(cfg, store, ceremony, prompt)

	return &fixture{
		connector: connector.New(cfg, store, passkeySvc, builder, events, nil),
		store:     store,
		builder:   builder,
		ceremony:  ceremony,
		prompt:    prompt,
		events:    events,
	}
}

func (f *fixture) storedRecord(t *testing.T) *credstore.Record {
	t.Helper()

	record, err := f.store.Get(t.Context(), credstore.Key("project-a"))
	require.NoError(t, err)

	return record
}

func TestConnectIsIdempotent(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	// Fresh device: only registration is available.
	fix.ceremony.LoginErr = errors.New("no credential")

	first, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)

	second, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fix.ceremony.RegisterCalls)
	assert.Equal(t, 1, fix.builder.calls)
	assert.Len(t, fix.events.connects, 1)
}

func TestConnectUsesStoredCredentialWithoutCeremony(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	require.NoError(t, fix.store.Set(ctx, credstore.Key("project-a"), &credstore.Record{
		WebAuthnKey: *test.NewTestCredential(),
		DisplayName: "Passlet Demo - Passkey",
	}))

	result, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testAddress}, result.Accounts)
	assert.Equal(t, int64(11155111), result.ChainID)
	assert.Equal(t, 0, fix.ceremony.LoginCalls)
	assert.Equal(t, 0, fix.ceremony.RegisterCalls)
}

func TestConnectUnsupportedChain(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	chainID := int64(999)
	_, err := fix.connector.Connect(ctx, &chainID)
	require.ErrorIs(t, err, connector.ErrUnsupportedChain)
	assert.Equal(t, 0, fix.builder.calls)
}

func TestConnectUserRejectedWritesNothing(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	fix.ceremony.LoginErr = errors.New("no credential")
	fix.prompt.Err = passkey.ErrUserRejected

	_, err := fix.connector.Connect(ctx, nil)
	require.ErrorIs(t, err, passkey.ErrUserRejected)
	assert.Nil(t, fix.storedRecord(t))
	assert.Empty(t, fix.connector.GetAccounts(ctx))
}

func TestConnectBuildFailureKeepsCredential(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	fix.ceremony.LoginErr = errors.New("no credential")
	fix.builder.errs = []error{errors.Wrap(account.ErrTransport, "bundler down")}

	_, err := fix.connector.Connect(ctx, nil)
	require.ErrorIs(t, err, connector.ErrBuildFailed)

	// The registered credential survives so the next attempt can retry
	// without a new ceremony.
	require.NotNil(t, fix.storedRecord(t))

	result, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testAddress}, result.Accounts)
	assert.Equal(t, 1, fix.ceremony.RegisterCalls)
}

func TestReconnectWithoutStoredCredential(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	_, err := fix.connector.Reconnect(ctx)
	require.ErrorIs(t, err, connector.ErrNoStoredCredential)
	assert.Equal(t, 0, fix.ceremony.LoginCalls)
	assert.Equal(t, 0, fix.ceremony.RegisterCalls)
}

func TestReconnectFailureDeletesStaleRecord(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	require.NoError(t, fix.store.Set(ctx, credstore.Key("project-a"), &credstore.Record{
		WebAuthnKey: *test.NewTestCredential(),
	}))
	fix.builder.errs = []error{errors.New("factory call reverted")}

	_, err := fix.connector.Reconnect(ctx)
	require.ErrorIs(t, err, connector.ErrBuildFailed)
	assert.Nil(t, fix.storedRecord(t))
}

func TestRoundTripPersistence(t *testing.T) {
	ctx := t.Context()
	store := credstore.NewMemoryStore()
	fix := newFixtureWithStore(t, store)

	fix.ceremony.LoginErr = errors.New("no credential")

	first, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)

	// A fresh connector instance sharing the same storage restores silently.
	restored := newFixtureWithStore(t, store)
	restored.connector.Setup(ctx)

	accounts := restored.connector.GetAccounts(ctx)
	require.Len(t, accounts, 1)
	assert.Equal(t, first.Accounts[0], accounts[0])
	assert.Equal(t, 0, restored.ceremony.LoginCalls)
	assert.Equal(t, 0, restored.ceremony.RegisterCalls)

	// Disconnect deletes the record; reconnect must not fall back to
	// interactive registration.
	require.NoError(t, restored.connector.Disconnect(ctx))

	_, err = restored.connector.Reconnect(ctx)
	require.ErrorIs(t, err, connector.ErrNoStoredCredential)
	assert.Equal(t, 0, restored.ceremony.RegisterCalls)
}

func TestSetupCorruptRecordSelfHeals(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	require.NoError(t, fix.store.SetRaw(ctx, credstore.Key("project-a"), []byte("garbage")))

	fix.connector.Setup(ctx)

	assert.Empty(t, fix.connector.GetAccounts(ctx))
	assert.Equal(t, 0, fix.store.Len())
	assert.False(t, fix.connector.IsAuthorized(ctx))
}

func TestSetupTransientFailureKeepsCredential(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	require.NoError(t, fix.store.Set(ctx, credstore.Key("project-a"), &credstore.Record{
		WebAuthnKey: *test.NewTestCredential(),
	}))
	fix.builder.errs = []error{errors.Wrap(account.ErrTransport, "bundler unreachable")}

	fix.connector.Setup(ctx)

	assert.Empty(t, fix.connector.GetAccounts(ctx))
	require.NotNil(t, fix.storedRecord(t))
}

func TestSetupNonTransientFailureDeletesCredential(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	require.NoError(t, fix.store.Set(ctx, credstore.Key("project-a"), &credstore.Record{
		WebAuthnKey: *test.NewTestCredential(),
	}))
	fix.builder.errs = []error{errors.Wrap(account.ErrBadCredential, "key is not EC2")}

	fix.connector.Setup(ctx)

	assert.Empty(t, fix.connector.GetAccounts(ctx))
	assert.Nil(t, fix.storedRecord(t))
}

func TestSwitchChainUnsupportedLeavesSessionUntouched(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	_, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)

	_, err = fix.connector.SwitchChain(ctx, 999)
	require.ErrorIs(t, err, connector.ErrUnsupportedChain)

	assert.Equal(t, []common.Address{testAddress}, fix.connector.GetAccounts(ctx))
	assert.Equal(t, int64(11155111), fix.connector.GetChainID(ctx))
	assert.Empty(t, fix.events.changes)
}

func TestSwitchChainRebuildsSession(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	_, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)

	chain, err := fix.connector.SwitchChain(ctx, 84532)
	require.NoError(t, err)
	assert.Equal(t, int64(84532), chain.ChainID)
	assert.Equal(t, int64(84532), fix.connector.GetChainID(ctx))

	// Counterfactual kernel addresses are chain-independent.
	assert.Equal(t, []common.Address{testAddress}, fix.connector.GetAccounts(ctx))

	require.Len(t, fix.events.changes, 1)
	assert.Equal(t, int64(84532), fix.events.changes[0].chainID)
}

func TestSwitchChainRebuildFailureDisconnects(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	_, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)

	fix.builder.errs = []error{errors.Wrap(account.ErrTransport, "bundler unreachable")}

	_, err = fix.connector.SwitchChain(ctx, 84532)
	require.ErrorIs(t, err, connector.ErrBuildFailed)

	// Never a stale session from the old chain.
	assert.Empty(t, fix.connector.GetAccounts(ctx))
	assert.Equal(t, int64(11155111), fix.connector.GetChainID(ctx))
}

func TestIsAuthorizedIsReadOnly(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	assert.False(t, fix.connector.IsAuthorized(ctx))

	require.NoError(t, fix.store.Set(ctx, credstore.Key("project-a"), &credstore.Record{
		WebAuthnKey: *test.NewTestCredential(),
	}))

	assert.True(t, fix.connector.IsAuthorized(ctx))
	assert.Equal(t, 0, fix.builder.calls)
	assert.Equal(t, 0, fix.ceremony.LoginCalls)
	assert.Empty(t, fix.connector.GetAccounts(ctx))
}

func TestFreshDeviceScenario(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	assert.False(t, fix.connector.IsAuthorized(ctx))

	fix.ceremony.LoginErr = errors.New("no credential on this device")

	result, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)

	record := fix.storedRecord(t)
	require.NotNil(t, record)
	assert.Equal(t, "Passlet Demo - Passkey", record.DisplayName)

	assert.Equal(t, []common.Address{testAddress}, result.Accounts)
	assert.Len(t, fix.connector.GetAccounts(ctx), 1)

	require.NoError(t, fix.connector.Disconnect(ctx))
	assert.Equal(t, 0, fix.store.Len())
	assert.False(t, fix.connector.IsAuthorized(ctx))
	require.Len(t, fix.events.disconnects, 1)
	assert.Equal(t, testAddress, fix.events.disconnects[0].address)
}

func TestCloseKeepsCredential(t *testing.T) {
	ctx := t.Context()
	fix := newFixture(t)

	_, err := fix.connector.Connect(ctx, nil)
	require.NoError(t, err)

	fix.connector.Close()

	assert.Empty(t, fix.connector.GetAccounts(ctx))
	require.NotNil(t, fix.storedRecord(t))

	_, err = fix.connector.Reconnect(ctx)
	require.NoError(t, err)
}

func TestDescriptor(t *testing.T) {
	fix := newFixture(t)

	descriptor := fix.connector.Descriptor()
	assert.Equal(t, "passlet", descriptor.ID)
	assert.Equal(t, "Passlet Demo", descriptor.Name)
	assert.Equal(t, "passkey", descriptor.Type)
}
