package account

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/passlet/go-wallet/internal/config"
)

var (
	// ErrTransport marks bundler/paymaster/node transport failures. These are
	// transient: the stored credential is still usable and the next build
	// attempt may succeed.
	ErrTransport = errors.New("account transport failure")

	// ErrBadCredential marks credential material that cannot produce a
	// validator (truncated or non-P-256 COSE key). Not transient.
	ErrBadCredential = errors.New("credential material is malformed")
)

// IsTransient reports whether a build failure was caused by an unreachable
// or failing transport rather than by the credential itself.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport)
}

// RPCCaller is the JSON-RPC transport consumed by the client and builder.
// *rpc.Client satisfies it.
type RPCCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
	Close()
}

// DialFunc opens a JSON-RPC transport for a URL.
type DialFunc func(ctx context.Context, url string) (RPCCaller, error)

// Signer produces a WebAuthn-backed signature over a 32-byte digest. The
// signature scheme itself (P-256 assertion encoding) is owned by the
// collaborator SDK behind this boundary.
type Signer interface {
	SignDigest(ctx context.Context, digest common.Hash) ([]byte, error)
}

// ChainContext is the active chain id plus its bundler/paymaster/node
// endpoints, selected from the configured chain table.
type ChainContext struct {
	ChainID      int64
	Name         string
	BundlerURL   string
	PaymasterURL string
	RPCURL       string
}

// ChainContextFromConfig converts a configured chain into a ChainContext.
func ChainContextFromConfig(c config.Chain) ChainContext {
	return ChainContext{
		ChainID:      c.ID,
		Name:         c.Name,
		BundlerURL:   c.BundlerURL,
		PaymasterURL: c.PaymasterURL,
		RPCURL:       c.RPCURL,
	}
}

// Account is a kernel-style smart contract account bound to a WebAuthn
// validator. The address is the CREATE2 counterfactual address reported by
// the kernel factory and is independent of the chain the account is used on.
type Account struct {
	Address  common.Address
	InitData []byte      // validator init data passed to createAccount
	Salt     common.Hash // derived from the credential id
	Deployed bool
	chainID  *big.Int
}

// ChainID returns the chain the account was built against.
func (a *Account) ChainID() *big.Int {
	return new(big.Int).Set(a.chainID)
}

// Session is a complete account + client pair. Both are constructed together
// by the builder and invalidated together by the connector; a client never
// exists without its account.
type Session struct {
	Account *Account
	Client  *Client
}

// Close releases the session's transports.
func (s *Session) Close() {
	if s.Client != nil {
		s.Client.Close()
	}
}
