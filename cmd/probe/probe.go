// Package probe implements the "probe" subcommand, checking connectivity to
// the relying party and the configured bundlers.
package probe

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/passlet/go-wallet/internal/config"
)

const probeTimeout = 10 * time.Second

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probes relying party and bundler connectivity",
		Long: `Checks that the configured passkey relying party is reachable and that
every configured chain's bundler answers eth_chainId and
eth_supportedEntryPoints. Exits non-zero on the first failure.`,
		Run: func(_ *cobra.Command, _ []string) {
			cfg := config.DefaultServiceConfigFromEnv()

			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			defer cancel()

			if err := probeRelyingParty(ctx, cfg.Connector.RelyingPartyURL); err != nil {
				log.Error().Err(err).Msg("Relying party probe failed")
				os.Exit(1)
			}

			for _, chain := range cfg.Connector.Chains {
				if err := probeBundler(ctx, chain); err != nil {
					log.Error().Err(err).Int64("chain_id", chain.ID).Msg("Bundler probe failed")
					os.Exit(1)
				}
			}

			log.Info().Msg("All probes passed")
		},
	}
}

func probeRelyingParty(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	log.Info().Str("url", url).Int("status", res.StatusCode).Msg("Relying party reachable")

	return nil
}

func probeBundler(ctx context.Context, chain config.Chain) error {
	client, err := rpc.DialContext(ctx, chain.BundlerURL)
	if err != nil {
		return err
	}
	defer client.Close()

	var chainID hexutil.Big
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return err
	}

	var entryPoints []common.Address
	if err := client.CallContext(ctx, &entryPoints, "eth_supportedEntryPoints"); err != nil {
		return err
	}

	log.Info().
		Int64("chain_id", chain.ID).
		Str("bundler_chain_id", chainID.String()).
		Int("entry_points", len(entryPoints)).
		Msg("Bundler reachable")

	return nil
}
