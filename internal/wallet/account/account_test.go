package account_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/passlet/go-wallet/internal/test"
	"github/passlet/go-wallet/internal/wallet/account"
	"github/passlet/go-wallet/internal/wallet/credstore"
)

type fakeSigner struct {
	signature []byte
	digests   []common.Hash
}

func (f *fakeSigner) SignDigest(_ context.Context, digest common.Hash) ([]byte, error) {
	f.digests = append(f.digests, digest)
	return f.signature, nil
}

// fakeCaller dispatches JSON-RPC calls to a handler and round-trips the
// handler's value through JSON into the caller-provided result.
type fakeCaller struct {
	handler func(method string, args []any) (any, error)
	calls   []string
	closed  bool
}

func (f *fakeCaller) CallContext(_ context.Context, result any, method string, args ...any) error {
	f.calls = append(f.calls, method)

	value, err := f.handler(method, args)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, result)
}

func (f *fakeCaller) Close() { f.closed = true }

func callTarget(t *testing.T, arg any) common.Address {
	t.Helper()

	raw, err := json.Marshal(arg)
	require.NoError(t, err)

	var params struct {
		To common.Address `json:"to"`
	}
	require.NoError(t, json.Unmarshal(raw, &params))

	return params.To
}

var testAccountAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")

// newTestHandler scripts a full happy-path bundler/paymaster/node.
func newTestHandler(t *testing.T) func(method string, args []any) (any, error) {
	t.Helper()

	return func(method string, args []any) (any, error) {
		switch method {
		case "eth_call":
			switch callTarget(t, args[0]) {
			case account.KernelFactoryAddress:
				return hexutil.Bytes(common.LeftPadBytes(testAccountAddress.Bytes(), 32)), nil
			case account.EntryPointAddress:
				return hexutil.Bytes(common.LeftPadBytes(big.NewInt(7).Bytes(), 32)), nil
			}
			return nil, errors.New("unexpected eth_call target")
		case "eth_getCode":
			return hexutil.Bytes(nil), nil
		case "eth_maxPriorityFeePerGas":
			return (*hexutil.Big)(big.NewInt(1_500_000_000)), nil
		case "eth_gasPrice":
			return (*hexutil.Big)(big.NewInt(20_000_000_000)), nil
		case "pm_sponsorUserOperation":
			return map[string]any{
				"paymaster":                     "0x2222222222222222222222222222222222222222",
				"paymasterData":                 "0xdeadbeef",
				"paymasterVerificationGasLimit": "0x30000",
				"paymasterPostOpGasLimit":       "0x10000",
			}, nil
		case "eth_estimateUserOperationGas":
			return map[string]any{
				"preVerificationGas":   "0xb000",
				"verificationGasLimit": "0x20000",
				"callGasLimit":         "0x15000",
			}, nil
		case "eth_sendUserOperation":
			return common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001"), nil
		case "eth_getUserOperationReceipt":
			return map[string]any{
				"userOpHash": "0xaaaa000000000000000000000000000000000000000000000000000000000001",
				"success":    true,
				"receipt": map[string]any{
					"transactionHash": "0xbbbb000000000000000000000000000000000000000000000000000000000002",
					"blockNumber":     "0x10",
				},
			}, nil
		}

		return nil, errors.Errorf("unexpected method %s", method)
	}
}

func testChain() account.ChainContext {
	return account.ChainContext{
		ChainID:      11155111,
		Name:         "Sepolia",
		BundlerURL:   "http://bundler.test",
		PaymasterURL: "http://paymaster.test",
		RPCURL:       "http://node.test",
	}
}

func testRecord() *credstore.Record {
	return &credstore.Record{
		WebAuthnKey: *test.NewTestCredential(),
		DisplayName: "Passlet Demo - Passkey",
	}
}

func newTestBuilder(t *testing.T, handler func(method string, args []any) (any, error)) (*account.Builder, *[]*fakeCaller) {
	t.Helper()

	callers := &[]*fakeCaller{}
	signer := &fakeSigner{signature: []byte("webauthn-assertion-signature")}

	builder := account.NewBuilder(signer, 10*time.Millisecond, time.Second).
		WithDialer(func(_ context.Context, _ string) (account.RPCCaller, error) {
			caller := &fakeCaller{handler: handler}
			*callers = append(*callers, caller)
			return caller, nil
		})

	return builder, callers
}

func TestBuildIsDeterministic(t *testing.T) {
	ctx := t.Context()
	builder, _ := newTestBuilder(t, newTestHandler(t))

	first, err := builder.Build(ctx, testRecord(), testChain())
	require.NoError(t, err)
	defer first.Close()

	second, err := builder.Build(ctx, testRecord(), testChain())
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, testAccountAddress, first.Account.Address)
	assert.Equal(t, first.Account.Address, second.Account.Address)
	assert.Equal(t, first.Account.Salt, second.Account.Salt)
	assert.Equal(t, first.Account.InitData, second.Account.InitData)
	assert.False(t, first.Account.Deployed)
	require.NotNil(t, first.Client)
}

func TestBuildRejectsMalformedCredential(t *testing.T) {
	ctx := t.Context()
	builder, _ := newTestBuilder(t, newTestHandler(t))

	record := testRecord()
	record.WebAuthnKey.PublicKey = []byte("not a cose key")

	_, err := builder.Build(ctx, record, testChain())
	require.ErrorIs(t, err, account.ErrBadCredential)
	assert.False(t, account.IsTransient(err))
}

func TestBuildTransportFailureIsTransient(t *testing.T) {
	ctx := t.Context()

	signer := &fakeSigner{signature: []byte("sig")}
	builder := account.NewBuilder(signer, 10*time.Millisecond, time.Second).
		WithDialer(func(_ context.Context, _ string) (account.RPCCaller, error) {
			return nil, errors.New("connection refused")
		})

	_, err := builder.Build(ctx, testRecord(), testChain())
	require.ErrorIs(t, err, account.ErrTransport)
	assert.True(t, account.IsTransient(err))
}

func TestBuildClosesTransportsOnFailure(t *testing.T) {
	ctx := t.Context()

	handler := func(method string, args []any) (any, error) {
		return nil, errors.New("node down")
	}
	builder, callers := newTestBuilder(t, handler)

	_, err := builder.Build(ctx, testRecord(), testChain())
	require.ErrorIs(t, err, account.ErrTransport)

	for _, caller := range *callers {
		assert.True(t, caller.closed)
	}
}

func TestExecuteSubmitsSponsoredUserOperation(t *testing.T) {
	ctx := t.Context()
	builder, callers := newTestBuilder(t, newTestHandler(t))

	session, err := builder.Build(ctx, testRecord(), testChain())
	require.NoError(t, err)
	defer session.Close()

	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	txHash, err := session.Client.Execute(ctx, to, big.NewInt(1), nil)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xbbbb000000000000000000000000000000000000000000000000000000000002"), txHash)

	// The bundler transport saw sponsorship-era methods in pipeline order.
	var bundlerCalls []string
	for _, caller := range *callers {
		for _, call := range caller.calls {
			switch call {
			case "eth_estimateUserOperationGas", "eth_sendUserOperation", "eth_getUserOperationReceipt", "pm_sponsorUserOperation":
				bundlerCalls = append(bundlerCalls, call)
			}
		}
	}
	assert.Equal(t, []string{
		"eth_estimateUserOperationGas",
		"eth_sendUserOperation",
		"eth_getUserOperationReceipt",
		"pm_sponsorUserOperation",
	}, bundlerCalls)

	// The first operation deploys the account; afterwards it is marked deployed.
	assert.True(t, session.Account.Deployed)
}

func TestWaitForReceiptTimesOut(t *testing.T) {
	ctx := t.Context()

	handler := newTestHandler(t)
	pending := func(method string, args []any) (any, error) {
		if method == "eth_getUserOperationReceipt" {
			return nil, nil
		}
		return handler(method, args)
	}

	signer := &fakeSigner{signature: []byte("sig")}
	builder := account.NewBuilder(signer, 5*time.Millisecond, 30*time.Millisecond).
		WithDialer(func(_ context.Context, _ string) (account.RPCCaller, error) {
			return &fakeCaller{handler: pending}, nil
		})

	session, err := builder.Build(ctx, testRecord(), testChain())
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Client.WaitForReceipt(ctx, common.HexToHash("0x01"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUserOperationJSONShape(t *testing.T) {
	op := &account.UserOperation{
		Sender:               testAccountAddress,
		Nonce:                big.NewInt(7),
		CallData:             []byte{0x01},
		MaxFeePerGas:         big.NewInt(100),
		MaxPriorityFeePerGas: big.NewInt(10),
		Signature:            []byte{0xff},
	}

	raw, err := json.Marshal(op)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Equal(t, "0x7", fields["nonce"])
	assert.NotContains(t, fields, "factory")
	assert.NotContains(t, fields, "paymaster")

	factory := account.KernelFactoryAddress
	op.Factory = &factory
	op.FactoryData = []byte{0x02}

	raw, err = json.Marshal(op)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "factory")
	assert.Equal(t, "0x02", fields["factoryData"])
}

func TestUserOperationHashSensitivity(t *testing.T) {
	op := &account.UserOperation{
		Sender:               testAccountAddress,
		Nonce:                big.NewInt(7),
		CallData:             []byte{0x01},
		MaxFeePerGas:         big.NewInt(100),
		MaxPriorityFeePerGas: big.NewInt(10),
	}

	chainID := big.NewInt(11155111)
	base := op.Hash(account.EntryPointAddress, chainID)
	assert.Equal(t, base, op.Hash(account.EntryPointAddress, chainID))

	op.Nonce = big.NewInt(8)
	assert.NotEqual(t, base, op.Hash(account.EntryPointAddress, chainID))

	op.Nonce = big.NewInt(7)
	assert.NotEqual(t, base, op.Hash(account.EntryPointAddress, big.NewInt(84532)))
}
