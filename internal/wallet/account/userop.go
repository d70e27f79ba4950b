package account

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// UserOperation is an EIP-4337 v0.7 user operation in the unpacked JSON
// shape bundlers accept.
type UserOperation struct {
	Sender                        common.Address
	Nonce                         *big.Int
	Factory                       *common.Address
	FactoryData                   []byte
	CallData                      []byte
	CallGasLimit                  *big.Int
	VerificationGasLimit          *big.Int
	PreVerificationGas            *big.Int
	MaxFeePerGas                  *big.Int
	MaxPriorityFeePerGas          *big.Int
	Paymaster                     *common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte
	Signature                     []byte
}

type userOperationJSON struct {
	Sender                        common.Address  `json:"sender"`
	Nonce                         *hexutil.Big    `json:"nonce"`
	Factory                       *common.Address `json:"factory,omitempty"`
	FactoryData                   hexutil.Bytes   `json:"factoryData,omitempty"`
	CallData                      hexutil.Bytes   `json:"callData"`
	CallGasLimit                  *hexutil.Big    `json:"callGasLimit"`
	VerificationGasLimit          *hexutil.Big    `json:"verificationGasLimit"`
	PreVerificationGas            *hexutil.Big    `json:"preVerificationGas"`
	MaxFeePerGas                  *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas          *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Paymaster                     *common.Address `json:"paymaster,omitempty"`
	PaymasterVerificationGasLimit *hexutil.Big    `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big    `json:"paymasterPostOpGasLimit,omitempty"`
	PaymasterData                 hexutil.Bytes   `json:"paymasterData,omitempty"`
	Signature                     hexutil.Bytes   `json:"signature"`
}

func bigOrZero(v *big.Int) *hexutil.Big {
	if v == nil {
		return (*hexutil.Big)(new(big.Int))
	}

	return (*hexutil.Big)(v)
}

// MarshalJSON encodes the operation with hex-quantity fields.
func (op *UserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(userOperationJSON{
		Sender:                        op.Sender,
		Nonce:                         bigOrZero(op.Nonce),
		Factory:                       op.Factory,
		FactoryData:                   op.FactoryData,
		CallData:                      op.CallData,
		CallGasLimit:                  bigOrZero(op.CallGasLimit),
		VerificationGasLimit:          bigOrZero(op.VerificationGasLimit),
		PreVerificationGas:            bigOrZero(op.PreVerificationGas),
		MaxFeePerGas:                  bigOrZero(op.MaxFeePerGas),
		MaxPriorityFeePerGas:          bigOrZero(op.MaxPriorityFeePerGas),
		Paymaster:                     op.Paymaster,
		PaymasterVerificationGasLimit: pmBig(op.Paymaster, op.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       pmBig(op.Paymaster, op.PaymasterPostOpGasLimit),
		PaymasterData:                 op.PaymasterData,
		Signature:                     op.Signature,
	})
}

func pmBig(paymaster *common.Address, v *big.Int) *hexutil.Big {
	if paymaster == nil {
		return nil
	}

	return bigOrZero(v)
}

// InitCode returns the legacy packed factory||factoryData form used by the
// v0.7 hash.
func (op *UserOperation) InitCode() []byte {
	if op.Factory == nil {
		return nil
	}

	return append(op.Factory.Bytes(), op.FactoryData...)
}

// PaymasterAndData returns the packed paymaster field used by the v0.7 hash:
// paymaster (20) || verificationGasLimit (16) || postOpGasLimit (16) || data.
func (op *UserOperation) PaymasterAndData() []byte {
	if op.Paymaster == nil {
		return nil
	}

	packed := make([]byte, 0, 52+len(op.PaymasterData))
	packed = append(packed, op.Paymaster.Bytes()...)
	packed = append(packed, packUint128(op.PaymasterVerificationGasLimit)...)
	packed = append(packed, packUint128(op.PaymasterPostOpGasLimit)...)
	packed = append(packed, op.PaymasterData...)

	return packed
}

// Hash computes the EIP-4337 v0.7 user operation hash:
// keccak256(abi.encode(keccak256(packedOp), entryPoint, chainId)).
func (op *UserOperation) Hash(entryPoint common.Address, chainID *big.Int) common.Hash {
	packed := abiEncode(
		common.BytesToHash(op.Sender.Bytes()).Bytes(),
		u256(op.Nonce),
		crypto.Keccak256(op.InitCode()),
		crypto.Keccak256(op.CallData),
		packAccountGasLimits(op.VerificationGasLimit, op.CallGasLimit),
		u256(op.PreVerificationGas),
		packAccountGasLimits(op.MaxPriorityFeePerGas, op.MaxFeePerGas),
		crypto.Keccak256(op.PaymasterAndData()),
	)

	outer := abiEncode(
		crypto.Keccak256(packed),
		common.BytesToHash(entryPoint.Bytes()).Bytes(),
		u256(chainID),
	)

	return crypto.Keccak256Hash(outer)
}

func abiEncode(words ...[]byte) []byte {
	out := make([]byte, 0, len(words)*32)
	for _, w := range words {
		out = append(out, common.LeftPadBytes(w, 32)...)
	}

	return out
}

func u256(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}

	return common.LeftPadBytes(v.Bytes(), 32)
}

func packUint128(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 16)
	}

	return common.LeftPadBytes(v.Bytes(), 16)
}

// packAccountGasLimits packs two 128-bit quantities into one bytes32 word,
// high half first.
func packAccountGasLimits(high, low *big.Int) []byte {
	return append(packUint128(high), packUint128(low)...)
}

// UserOpReceipt is the bundler's receipt for an included user operation.
type UserOpReceipt struct {
	UserOpHash common.Hash `json:"userOpHash"`
	Success    bool        `json:"success"`
	Receipt    struct {
		TransactionHash common.Hash  `json:"transactionHash"`
		BlockNumber     *hexutil.Big `json:"blockNumber"`
	} `json:"receipt"`
}
