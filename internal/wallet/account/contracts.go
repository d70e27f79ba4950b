package account

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// EntryPoint v0.7 and the kernel account factory. The factory address is the
// staging deployment; both are identical across the supported test networks.
var (
	EntryPointAddress    = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
	KernelFactoryAddress = common.HexToAddress("0xcfb519af7e3e4b772c619ed12bcdc7d758ac6ee6")
)

const (
	kernelFactoryABIJSON = `[{"type":"function","name":"createAccount","stateMutability":"payable","inputs":[{"name":"data","type":"bytes"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},{"type":"function","name":"getAddress","stateMutability":"view","inputs":[{"name":"data","type":"bytes"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}]`
	kernelAccountABIJSON = `[{"type":"function","name":"execute","stateMutability":"payable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]}]`
	entryPointABIJSON    = `[{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}]`
)

var (
	kernelFactoryABI = mustParseABI(kernelFactoryABIJSON)
	kernelAccountABI = mustParseABI(kernelAccountABIJSON)
	entryPointABI    = mustParseABI(entryPointABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}

	return parsed
}
