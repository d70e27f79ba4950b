package account

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/pkg/errors"
	"github/passlet/go-wallet/internal/util"
	"github/passlet/go-wallet/internal/wallet/credstore"
)

// WebAuthnValidatorAddress is the on-chain validator module that verifies
// P-256 passkey assertions for kernel accounts.
var WebAuthnValidatorAddress = common.HexToAddress("0xbA45a2BFb8De3D24cA9D7F1B551E14dFF5d690Fd")

// Builder constructs complete account + client sessions from credential
// material and a chain context. Build is deterministic for the same inputs
// and never mutates the credential store.
type Builder struct {
	signer Signer
	dial   DialFunc

	pollInterval   time.Duration
	receiptTimeout time.Duration
}

// NewBuilder creates a session builder. The signer is the WebAuthn signing
// boundary used for user operations and messages.
func NewBuilder(signer Signer, pollInterval, receiptTimeout time.Duration) *Builder {
	return &Builder{
		signer:         signer,
		dial:           dialRPC,
		pollInterval:   pollInterval,
		receiptTimeout: receiptTimeout,
	}
}

// WithDialer replaces the JSON-RPC dialer. Used by tests and by callers that
// need custom transports.
func (b *Builder) WithDialer(dial DialFunc) *Builder {
	b.dial = dial
	return b
}

func dialRPC(ctx context.Context, url string) (RPCCaller, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// Build constructs the smart account and its client for the given chain.
// It returns either a complete session or an error; partial state never
// escapes.
func (b *Builder) Build(ctx context.Context, record *credstore.Record, chain ChainContext) (*Session, error) {
	log := util.LogFromContext(ctx)

	initData, err := validatorInitData(record)
	if err != nil {
		return nil, err
	}

	salt := crypto.Keccak256Hash(record.WebAuthnKey.ID)

	node, err := b.dial(ctx, chain.RPCURL)
	if err != nil {
		return nil, errors.Wrapf(ErrTransport, "failed to dial node %s: %v", chain.RPCURL, err)
	}

	bundler, err := b.dial(ctx, chain.BundlerURL)
	if err != nil {
		node.Close()
		return nil, errors.Wrapf(ErrTransport, "failed to dial bundler: %v", err)
	}

	paymaster, err := b.dial(ctx, chain.PaymasterURL)
	if err != nil {
		node.Close()
		bundler.Close()
		return nil, errors.Wrapf(ErrTransport, "failed to dial paymaster: %v", err)
	}

	closeAll := func() {
		node.Close()
		bundler.Close()
		paymaster.Close()
	}

	address, err := counterfactualAddress(ctx, node, initData, salt)
	if err != nil {
		closeAll()
		return nil, err
	}

	deployed, err := isDeployed(ctx, node, address)
	if err != nil {
		closeAll()
		return nil, err
	}

	log.Debug().
		Str("address", address.Hex()).
		Int64("chainId", chain.ChainID).
		Bool("deployed", deployed).
		Msg("Built smart account session")

	acct := &Account{
		Address:  address,
		InitData: initData,
		Salt:     salt,
		Deployed: deployed,
		chainID:  big.NewInt(chain.ChainID),
	}

	client := &Client{
		chain:          chain,
		account:        acct,
		bundler:        bundler,
		paymaster:      paymaster,
		node:           node,
		entryPoint:     EntryPointAddress,
		signer:         b.signer,
		pollInterval:   b.pollInterval,
		receiptTimeout: b.receiptTimeout,
	}

	return &Session{Account: acct, Client: client}, nil
}

// validatorInitData derives the kernel validator init data from the
// credential's COSE public key: validator address || x || y.
func validatorInitData(record *credstore.Record) ([]byte, error) {
	key, err := webauthncose.ParsePublicKey(record.WebAuthnKey.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(ErrBadCredential, "failed to parse COSE public key: %v", err)
	}

	ec2Key, ok := key.(webauthncose.EC2PublicKeyData)
	if !ok {
		return nil, errors.Wrap(ErrBadCredential, "credential public key is not an EC2 key")
	}
	if len(ec2Key.XCoord) != 32 || len(ec2Key.YCoord) != 32 {
		return nil, errors.Wrap(ErrBadCredential, "credential public key coordinates are not 32 bytes")
	}

	data := make([]byte, 0, 20+64)
	data = append(data, WebAuthnValidatorAddress.Bytes()...)
	data = append(data, ec2Key.XCoord...)
	data = append(data, ec2Key.YCoord...)

	return data, nil
}

func counterfactualAddress(ctx context.Context, node RPCCaller, initData []byte, salt common.Hash) (common.Address, error) {
	data, err := kernelFactoryABI.Pack("getAddress", initData, salt)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to pack getAddress call")
	}

	var result hexutil.Bytes
	if err := node.CallContext(ctx, &result, "eth_call", callParams{To: KernelFactoryAddress, Data: data}, "latest"); err != nil {
		return common.Address{}, errors.Wrapf(ErrTransport, "factory getAddress call failed: %v", err)
	}

	values, err := kernelFactoryABI.Unpack("getAddress", result)
	if err != nil || len(values) != 1 {
		return common.Address{}, errors.Wrap(err, "failed to decode factory getAddress result")
	}

	address, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, errors.New("factory getAddress returned an unexpected type")
	}

	return address, nil
}

func isDeployed(ctx context.Context, node RPCCaller, address common.Address) (bool, error) {
	var code hexutil.Bytes
	if err := node.CallContext(ctx, &code, "eth_getCode", address, "latest"); err != nil {
		return false, errors.Wrapf(ErrTransport, "eth_getCode failed: %v", err)
	}

	return len(code) > 0, nil
}
