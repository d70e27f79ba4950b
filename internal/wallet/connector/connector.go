package connector

import (
	"context"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/passlet/go-wallet/internal/config"
	"github/passlet/go-wallet/internal/metrics"
	"github/passlet/go-wallet/internal/util"
	"github/passlet/go-wallet/internal/wallet/account"
	"github/passlet/go-wallet/internal/wallet/credstore"
	"github/passlet/go-wallet/internal/wallet/passkey"
	"github/passlet/go-wallet/internal/wallet/provider"
)

// Connector is the passkey wallet connector state machine. It owns the
// in-memory session and is the sole writer of the credential record; all
// session-mutating operations are serialized by its mutex.
type Connector struct {
	cfg     config.Connector
	store   credstore.Service
	passkey passkey.Service
	builder SessionBuilder
	events  Events
	metrics *metrics.Metrics

	mu      sync.Mutex
	session *account.Session
	record  *credstore.Record
	chain   account.ChainContext
}

// New creates a connector. events and m may be nil.
func New(cfg config.Connector, store credstore.Service, passkeySvc passkey.Service, builder SessionBuilder, events Events, m *metrics.Metrics) *Connector {
	if events == nil {
		events = NopEvents{}
	}

	return &Connector{
		cfg:     cfg,
		store:   store,
		passkey: passkeySvc,
		builder: builder,
		events:  events,
		metrics: m,
	}
}

// Descriptor returns the connector's static identity.
func (c *Connector) Descriptor() Descriptor {
	return Descriptor{
		ID:   "passlet",
		Name: c.cfg.AppName,
		Type: "passkey",
	}
}

func (c *Connector) key() string {
	return credstore.Key(c.cfg.ProjectID)
}

func (c *Connector) defaultChain() account.ChainContext {
	return account.ChainContextFromConfig(c.cfg.Chains[0])
}

func (c *Connector) resolveChain(chainID int64) (account.ChainContext, error) {
	chain, ok := c.cfg.ChainByID(chainID)
	if !ok {
		return account.ChainContext{}, errors.Wrapf(ErrUnsupportedChain, "chain %d is not configured", chainID)
	}

	return account.ChainContextFromConfig(chain), nil
}

// buildSession runs the factory under the bundler deadline and maps
// deadline errors to the timeout kind.
func (c *Connector) buildSession(ctx context.Context, record *credstore.Record, chain account.ChainContext) (*account.Session, error) {
	buildCtx, cancel := context.WithTimeout(ctx, c.cfg.BundlerTimeout)
	defer cancel()

	session, err := c.builder.Build(buildCtx, record, chain)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(ErrTimeout, err.Error())
		}
		return nil, err
	}

	return session, nil
}

func (c *Connector) currentResult() *ConnectResult {
	return &ConnectResult{
		Accounts: []common.Address{c.session.Account.Address},
		ChainID:  c.chain.ChainID,
	}
}

// Setup attempts a silent session restoration from the credential store. It
// is a best-effort background action: it never prompts and never returns an
// error. The stored record is only deleted when it is unreadable or the
// build failure points at the credential rather than the network.
func (c *Connector) Setup(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := util.LogFromContext(ctx)

	if c.session != nil {
		return
	}

	record, err := c.store.Get(ctx, c.key())
	if err != nil {
		log.Warn().Err(err).Msg("Stored credential is unreadable, clearing it")
		if delErr := c.store.Delete(ctx, c.key()); delErr != nil {
			log.Warn().Err(delErr).Msg("Failed to clear unreadable credential record")
		}
		return
	}
	if record == nil {
		return
	}

	chain := c.defaultChain()
	session, err := c.buildSession(ctx, record, chain)
	if err != nil {
		if account.IsTransient(err) || errors.Is(err, ErrTimeout) {
			// A flaky network must not cost the user their passkey binding;
			// the next explicit connect retries with the stored record.
			log.Info().Err(err).Msg("Silent restore hit a transient failure, keeping stored credential")
			return
		}

		log.Warn().Err(err).Msg("Silent restore failed, clearing stale credential")
		if delErr := c.store.Delete(ctx, c.key()); delErr != nil {
			log.Warn().Err(delErr).Msg("Failed to clear stale credential record")
		}
		return
	}

	c.session = session
	c.record = record
	c.chain = chain

	log.Info().Str("address", session.Account.Address.Hex()).Msg("Restored wallet session")
}

// Connect establishes a session, registering a new passkey if nothing is
// stored. Calling Connect while connected returns the existing session.
func (c *Connector) Connect(ctx context.Context, chainID *int64) (*ConnectResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := util.LogFromContext(ctx)

	if c.metrics != nil {
		c.metrics.ConnectAttempts.Inc()
	}

	if c.session != nil {
		return c.currentResult(), nil
	}

	chain := c.defaultChain()
	if chainID != nil {
		resolved, err := c.resolveChain(*chainID)
		if err != nil {
			return nil, err
		}
		chain = resolved
	}

	record, err := c.store.Get(ctx, c.key())
	if err != nil {
		// Storage failures mean "no credential available": fall back to
		// registration instead of crashing.
		log.Warn().Err(err).Msg("Failed to read credential store, falling back to registration")
		record = nil
	}

	if record == nil {
		ceremonyCtx, cancel := context.WithTimeout(ctx, c.cfg.CeremonyTimeout)
		obtained, reused, err := c.passkey.Obtain(ceremonyCtx)
		cancel()
		if err != nil {
			if c.metrics != nil {
				c.metrics.ConnectFailures.Inc()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, errors.Wrap(ErrTimeout, err.Error())
			}
			return nil, err
		}
		record = obtained
		log.Info().Bool("reused", reused).Msg("Obtained passkey credential")
	}

	session, err := c.buildSession(ctx, record, chain)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ConnectFailures.Inc()
		}
		// The stored credential is preserved so the next attempt can retry
		// without re-registering.
		return nil, wrapBuildFailure(err)
	}

	c.session = session
	c.record = record
	c.chain = chain

	c.emit(ctx, func() error {
		return c.events.PublishConnect(ctx, session.Account.Address, chain.ChainID)
	})

	return c.currentResult(), nil
}

// Disconnect discards the session and deletes the stored credential. The
// user must re-register on the next connect.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var address common.Address
	if c.session != nil {
		address = c.session.Account.Address
		c.session.Close()
	}
	c.session = nil
	c.record = nil

	if err := c.store.Delete(ctx, c.key()); err != nil {
		return errors.Wrap(err, "failed to delete credential record")
	}

	if c.metrics != nil {
		c.metrics.Disconnects.Inc()
	}

	c.emit(ctx, func() error {
		return c.events.PublishDisconnect(ctx, address)
	})

	return nil
}

// Reconnect restores a session from the stored credential without any
// interactive registration. A failed restore deletes the stale record.
func (c *Connector) Reconnect(ctx context.Context) (*ConnectResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := util.LogFromContext(ctx)

	if c.session != nil {
		return c.currentResult(), nil
	}

	record, err := c.store.Get(ctx, c.key())
	if err != nil {
		log.Warn().Err(err).Msg("Stored credential is unreadable, clearing it")
		if delErr := c.store.Delete(ctx, c.key()); delErr != nil {
			log.Warn().Err(delErr).Msg("Failed to clear unreadable credential record")
		}
		return nil, ErrNoStoredCredential
	}
	if record == nil {
		return nil, ErrNoStoredCredential
	}

	chain := c.defaultChain()
	session, err := c.buildSession(ctx, record, chain)
	if err != nil {
		log.Warn().Err(err).Msg("Reconnect failed, clearing stale credential")
		if delErr := c.store.Delete(ctx, c.key()); delErr != nil {
			log.Warn().Err(delErr).Msg("Failed to clear stale credential record")
		}
		return nil, wrapBuildFailure(err)
	}

	c.session = session
	c.record = record
	c.chain = chain

	c.emit(ctx, func() error {
		return c.events.PublishConnect(ctx, session.Account.Address, c.chain.ChainID)
	})

	return c.currentResult(), nil
}

// GetAccounts returns the current account address, or an empty list while
// disconnected.
func (c *Connector) GetAccounts(_ context.Context) []common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}

	return []common.Address{c.session.Account.Address}
}

// GetChainID returns the active session's chain, or the first configured
// chain while disconnected.
func (c *Connector) GetChainID(_ context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.cfg.Chains[0].ID
	}

	return c.chain.ChainID
}

// IsAuthorized reports whether a live session exists or a stored credential
// would let Reconnect succeed. It is a read-only probe and never builds a
// session.
func (c *Connector) IsAuthorized(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return true
	}

	record, err := c.store.Get(ctx, c.key())

	return err == nil && record != nil
}

// SwitchChain discards the current session and rebuilds it for the new
// chain. On rebuild failure the connector ends up disconnected; a stale
// session from the old chain is never left active.
func (c *Connector) SwitchChain(ctx context.Context, chainID int64) (account.ChainContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	chain, err := c.resolveChain(chainID)
	if err != nil {
		return account.ChainContext{}, err
	}

	record := c.record
	if record == nil {
		stored, err := c.store.Get(ctx, c.key())
		if err != nil || stored == nil {
			return account.ChainContext{}, ErrNoStoredCredential
		}
		record = stored
	}

	if c.session != nil {
		c.session.Close()
		c.session = nil
	}

	session, err := c.buildSession(ctx, record, chain)
	if err != nil {
		return account.ChainContext{}, wrapBuildFailure(err)
	}

	c.session = session
	c.record = record
	c.chain = chain

	if c.metrics != nil {
		c.metrics.ChainSwitches.WithLabelValues(strconv.FormatInt(chainID, 10)).Inc()
	}

	c.emit(ctx, func() error {
		return c.events.PublishChange(ctx, session.Account.Address, chainID)
	})

	return chain, nil
}

// CurrentSession returns the live session for request dispatching.
func (c *Connector) CurrentSession() (*account.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, ErrNotConnected
	}

	return c.session, nil
}

// Close releases the live session without touching the stored credential.
// Unlike Disconnect it leaves the wallet reconnectable, used on shutdown.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.Close()
		c.session = nil
		c.record = nil
	}
}

// Provider returns the wallet JSON-RPC request handler bound to this
// connector.
func (c *Connector) Provider() *provider.Provider {
	return provider.New(c, c.metrics)
}

func (c *Connector) emit(ctx context.Context, publish func() error) {
	if err := publish(); err != nil {
		util.LogFromContext(ctx).Warn().Err(err).Msg("Failed to publish connector event")
	}
}

func wrapBuildFailure(err error) error {
	if errors.Is(err, ErrTimeout) {
		return err
	}

	return errors.Wrap(ErrBuildFailed, err.Error())
}
