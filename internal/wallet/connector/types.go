package connector

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github/passlet/go-wallet/internal/wallet/account"
	"github/passlet/go-wallet/internal/wallet/credstore"
)

// Descriptor is the connector's static identity toward the host wallet
// framework.
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ConnectResult is returned by Connect and Reconnect.
type ConnectResult struct {
	Accounts []common.Address `json:"accounts"`
	ChainID  int64            `json:"chainId"`
}

// SessionBuilder constructs a complete session from credential material and
// a chain context. *account.Builder satisfies it.
type SessionBuilder interface {
	Build(ctx context.Context, record *credstore.Record, chain account.ChainContext) (*account.Session, error)
}

// Events receives the connector's lifecycle notifications. Publish failures
// are logged by the connector, never surfaced to callers.
type Events interface {
	PublishConnect(ctx context.Context, address common.Address, chainID int64) error
	PublishChange(ctx context.Context, address common.Address, chainID int64) error
	PublishDisconnect(ctx context.Context, address common.Address) error
}

// NopEvents discards all lifecycle notifications.
type NopEvents struct{}

func (NopEvents) PublishConnect(context.Context, common.Address, int64) error { return nil }
func (NopEvents) PublishChange(context.Context, common.Address, int64) error  { return nil }
func (NopEvents) PublishDisconnect(context.Context, common.Address) error     { return nil }
