package account

import (
	"bytes"
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github/passlet/go-wallet/internal/util"
)

// dummySignature pads user operations during estimation; bundlers reject
// operations with an empty signature field outright.
var dummySignature = bytes.Repeat([]byte{0xff}, 65)

// Client submits sponsored user operations for one account on one chain.
type Client struct {
	chain      ChainContext
	account    *Account
	bundler    RPCCaller
	paymaster  RPCCaller
	node       RPCCaller
	entryPoint common.Address
	signer     Signer

	pollInterval   time.Duration
	receiptTimeout time.Duration
}

// Chain returns the chain context the client is bound to.
func (c *Client) Chain() ChainContext {
	return c.chain
}

// Close releases all transports.
func (c *Client) Close() {
	for _, caller := range []RPCCaller{c.bundler, c.paymaster, c.node} {
		if caller != nil {
			caller.Close()
		}
	}
}

type callParams struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Nonce reads the account's entry-point nonce (key 0).
func (c *Client) Nonce(ctx context.Context) (*big.Int, error) {
	data, err := entryPointABI.Pack("getNonce", c.account.Address, big.NewInt(0))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack getNonce call")
	}

	var result hexutil.Bytes
	if err := c.node.CallContext(ctx, &result, "eth_call", callParams{To: c.entryPoint, Data: data}, "latest"); err != nil {
		return nil, errors.Wrapf(ErrTransport, "getNonce call failed: %v", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// gasFees reads the current fee levels from the node.
func (c *Client) gasFees(ctx context.Context) (maxPriority, maxFee *big.Int, err error) {
	var tip hexutil.Big
	if err := c.node.CallContext(ctx, &tip, "eth_maxPriorityFeePerGas"); err != nil {
		return nil, nil, errors.Wrapf(ErrTransport, "failed to read priority fee: %v", err)
	}

	var gasPrice hexutil.Big
	if err := c.node.CallContext(ctx, &gasPrice, "eth_gasPrice"); err != nil {
		return nil, nil, errors.Wrapf(ErrTransport, "failed to read gas price: %v", err)
	}

	return (*big.Int)(&tip), (*big.Int)(&gasPrice), nil
}

type gasEstimate struct {
	PreVerificationGas            *hexutil.Big `json:"preVerificationGas"`
	VerificationGasLimit          *hexutil.Big `json:"verificationGasLimit"`
	CallGasLimit                  *hexutil.Big `json:"callGasLimit"`
	PaymasterVerificationGasLimit *hexutil.Big `json:"paymasterVerificationGasLimit"`
}

// EstimateGas fills the operation's gas limits from the bundler.
func (c *Client) EstimateGas(ctx context.Context, op *UserOperation) error {
	var estimate gasEstimate
	if err := c.bundler.CallContext(ctx, &estimate, "eth_estimateUserOperationGas", op, c.entryPoint); err != nil {
		return errors.Wrapf(ErrTransport, "gas estimation failed: %v", err)
	}

	op.PreVerificationGas = (*big.Int)(estimate.PreVerificationGas)
	op.VerificationGasLimit = (*big.Int)(estimate.VerificationGasLimit)
	op.CallGasLimit = (*big.Int)(estimate.CallGasLimit)
	if estimate.PaymasterVerificationGasLimit != nil {
		op.PaymasterVerificationGasLimit = (*big.Int)(estimate.PaymasterVerificationGasLimit)
	}

	return nil
}

type sponsorResult struct {
	Paymaster                     common.Address `json:"paymaster"`
	PaymasterData                 hexutil.Bytes  `json:"paymasterData"`
	PaymasterVerificationGasLimit *hexutil.Big   `json:"paymasterVerificationGasLimit"`
	PaymasterPostOpGasLimit       *hexutil.Big   `json:"paymasterPostOpGasLimit"`
}

// SponsorUserOperation asks the paymaster to sponsor the operation's gas and
// applies the sponsorship fields to it.
func (c *Client) SponsorUserOperation(ctx context.Context, op *UserOperation) error {
	var result sponsorResult
	if err := c.paymaster.CallContext(ctx, &result, "pm_sponsorUserOperation", op, c.entryPoint); err != nil {
		return errors.Wrapf(ErrTransport, "paymaster sponsorship failed: %v", err)
	}

	op.Paymaster = &result.Paymaster
	op.PaymasterData = result.PaymasterData
	if result.PaymasterVerificationGasLimit != nil {
		op.PaymasterVerificationGasLimit = (*big.Int)(result.PaymasterVerificationGasLimit)
	}
	if result.PaymasterPostOpGasLimit != nil {
		op.PaymasterPostOpGasLimit = (*big.Int)(result.PaymasterPostOpGasLimit)
	}

	return nil
}

// SendUserOperation submits the operation to the bundler and returns the
// bundler-reported user operation hash.
func (c *Client) SendUserOperation(ctx context.Context, op *UserOperation) (common.Hash, error) {
	var hash common.Hash
	if err := c.bundler.CallContext(ctx, &hash, "eth_sendUserOperation", op, c.entryPoint); err != nil {
		return common.Hash{}, errors.Wrapf(ErrTransport, "failed to send user operation: %v", err)
	}

	return hash, nil
}

// WaitForReceipt polls the bundler until the operation is included on chain
// and returns its receipt.
func (c *Client) WaitForReceipt(ctx context.Context, userOpHash common.Hash) (*UserOpReceipt, error) {
	log := util.LogFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var receipt *UserOpReceipt
		if err := c.bundler.CallContext(ctx, &receipt, "eth_getUserOperationReceipt", userOpHash); err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "timed out waiting for user operation receipt")
			}
			return nil, errors.Wrapf(ErrTransport, "failed to query user operation receipt: %v", err)
		}

		if receipt != nil {
			if !receipt.Success {
				return receipt, errors.New("user operation reverted on chain")
			}
			return receipt, nil
		}

		log.Trace().Str("userOpHash", userOpHash.Hex()).Msg("User operation not yet included")

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "timed out waiting for user operation receipt")
		case <-ticker.C:
		}
	}
}

// Execute encodes a call through the account, submits it as a sponsored user
// operation and blocks until the bundler reports the inclusion transaction
// hash.
func (c *Client) Execute(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	if value == nil {
		value = new(big.Int)
	}

	callData, err := kernelAccountABI.Pack("execute", to, value, data)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to encode execute call")
	}

	nonce, err := c.Nonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	maxPriority, maxFee, err := c.gasFees(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	op := &UserOperation{
		Sender:               c.account.Address,
		Nonce:                nonce,
		CallData:             callData,
		MaxPriorityFeePerGas: maxPriority,
		MaxFeePerGas:         maxFee,
		Signature:            dummySignature,
	}

	// The first operation from a counterfactual account carries the factory
	// deployment.
	if !c.account.Deployed {
		factory := KernelFactoryAddress
		factoryData, err := kernelFactoryABI.Pack("createAccount", c.account.InitData, c.account.Salt)
		if err != nil {
			return common.Hash{}, errors.Wrap(err, "failed to encode createAccount call")
		}
		op.Factory = &factory
		op.FactoryData = factoryData
	}

	if err := c.SponsorUserOperation(ctx, op); err != nil {
		return common.Hash{}, err
	}

	if err := c.EstimateGas(ctx, op); err != nil {
		return common.Hash{}, err
	}

	signature, err := c.signer.SignDigest(ctx, op.Hash(c.entryPoint, big.NewInt(c.chain.ChainID)))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to sign user operation")
	}
	op.Signature = signature

	userOpHash, err := c.SendUserOperation(ctx, op)
	if err != nil {
		return common.Hash{}, err
	}

	receipt, err := c.WaitForReceipt(ctx, userOpHash)
	if err != nil {
		return common.Hash{}, err
	}

	c.account.Deployed = true

	return receipt.Receipt.TransactionHash, nil
}

// SignMessage signs a personal (EIP-191) message with the account's
// WebAuthn-backed signer.
func (c *Client) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	digest := common.BytesToHash(accounts.TextHash(message))

	signature, err := c.signer.SignDigest(ctx, digest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign message")
	}

	return signature, nil
}
