// Package provider dispatches generic wallet JSON-RPC requests onto the
// active smart account session.
package provider

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github/passlet/go-wallet/internal/metrics"
	"github/passlet/go-wallet/internal/util"
	"github/passlet/go-wallet/internal/wallet/account"
)

// ErrMethodNotSupported is returned for methods this dispatcher does not
// handle.
var ErrMethodNotSupported = errors.New("method not supported")

// Wallet is the connector surface the provider dispatches onto.
type Wallet interface {
	CurrentSession() (*account.Session, error)
	GetAccounts(ctx context.Context) []common.Address
	GetChainID(ctx context.Context) int64
	SwitchChain(ctx context.Context, chainID int64) (account.ChainContext, error)
}

// Provider handles wallet JSON-RPC-shaped requests.
type Provider struct {
	wallet  Wallet
	metrics *metrics.Metrics
}

// New creates a provider bound to a wallet. m may be nil.
func New(wallet Wallet, m *metrics.Metrics) *Provider {
	return &Provider{wallet: wallet, metrics: m}
}

// SendTransactionParams is the transaction object accepted by
// eth_sendTransaction.
type SendTransactionParams struct {
	From  *common.Address `json:"from,omitempty"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

type switchChainParams struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

// Request dispatches a wallet JSON-RPC request. params is the JSON-encoded
// positional parameter array.
func (p *Provider) Request(ctx context.Context, method string, params json.RawMessage) (any, error) {
	log := util.LogFromContext(ctx)

	switch method {
	case "eth_sendTransaction":
		return p.sendTransaction(ctx, params)

	case "eth_accounts", "eth_requestAccounts":
		accounts := p.wallet.GetAccounts(ctx)
		result := make([]string, 0, len(accounts))
		for _, addr := range accounts {
			result = append(result, addr.Hex())
		}
		return result, nil

	case "eth_chainId":
		return hexutil.EncodeUint64(uint64(p.wallet.GetChainID(ctx))), nil

	case "personal_sign":
		return p.personalSign(ctx, params)

	case "wallet_switchEthereumChain":
		var args []switchChainParams
		if err := json.Unmarshal(params, &args); err != nil || len(args) != 1 {
			return nil, errors.New("wallet_switchEthereumChain requires a chainId parameter")
		}
		if _, err := p.wallet.SwitchChain(ctx, int64(args[0].ChainID)); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		log.Debug().Str("method", method).Msg("Unsupported wallet RPC method")
		return nil, errors.Wrap(ErrMethodNotSupported, method)
	}
}

func (p *Provider) sendTransaction(ctx context.Context, params json.RawMessage) (any, error) {
	var args []SendTransactionParams
	if err := json.Unmarshal(params, &args); err != nil || len(args) != 1 {
		return nil, errors.New("eth_sendTransaction requires a transaction parameter")
	}

	tx := args[0]
	if tx.To == nil {
		return nil, errors.New("eth_sendTransaction requires a to address")
	}

	session, err := p.wallet.CurrentSession()
	if err != nil {
		return nil, err
	}

	value := new(big.Int)
	if tx.Value != nil {
		value = tx.Value.ToInt()
	}

	txHash, err := session.Client.Execute(ctx, *tx.To, value, tx.Data)
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		chainID := strconv.FormatInt(session.Client.Chain().ChainID, 10)
		p.metrics.UserOpsSubmitted.WithLabelValues(chainID).Inc()
	}

	return txHash.Hex(), nil
}

func (p *Provider) personalSign(ctx context.Context, params json.RawMessage) (any, error) {
	var args []hexutil.Bytes
	if err := json.Unmarshal(params, &args); err != nil || len(args) < 1 {
		return nil, errors.New("personal_sign requires a message parameter")
	}

	session, err := p.wallet.CurrentSession()
	if err != nil {
		return nil, err
	}

	signature, err := session.Client.SignMessage(ctx, args[0])
	if err != nil {
		return nil, err
	}

	return hexutil.Encode(signature), nil
}
