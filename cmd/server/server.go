// Package server implements the "server" subcommand, wiring and running the
// HTTP demo surface.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/api/router"
	"github/passlet/go-wallet/internal/config"
	"github/passlet/go-wallet/internal/metrics"
	"github/passlet/go-wallet/internal/util"
	"github/passlet/go-wallet/internal/wallet/account"
	"github/passlet/go-wallet/internal/wallet/connector"
	"github/passlet/go-wallet/internal/wallet/connector/events"
	"github/passlet/go-wallet/internal/wallet/credstore"
	"github/passlet/go-wallet/internal/wallet/passkey"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the server",
		Long: `Starts the passkey wallet connector server.
Requires configuration through ENV.`,
		Run: func(_ *cobra.Command, _ []string) {
			runServer()
		},
	}
}

func runServer() {
	cfg := config.DefaultServiceConfigFromEnv()

	zerolog.SetGlobalLevel(util.LogLevelFromString(cfg.Logger.Level))
	if cfg.Logger.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter())
	}

	s, err := initServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Restore a previous session silently before accepting traffic.
	s.Connector.Setup(ctx)

	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Echo.GracefulShutdownTimeout)
	defer cancel()

	if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
		log.Fatal().Errs("errors", errs).Msg("Failed to gracefully shut down server")
	}
}

func initServer(cfg config.Server) (*api.Server, error) {
	s := api.NewServer(cfg)

	s.Registry = prometheus.NewRegistry()
	s.Metrics = metrics.New(s.Registry)

	store, err := newCredentialStore(cfg.Connector)
	if err != nil {
		return nil, err
	}

	rpID, err := relyingPartyID(cfg.Connector.RelyingPartyURL)
	if err != nil {
		return nil, err
	}

	// The soft authenticator stands in for the platform authenticator of
	// the SPA host. Credentials minted by it live only for the process
	// lifetime.
	authenticator := passkey.NewSoftAuthenticator("https://" + rpID)
	ceremony := passkey.NewRelyingPartyClient(cfg.Connector.RelyingPartyURL, nil, authenticator)
	passkeySvc := passkey.NewService(cfg.Connector, store, ceremony, passkey.AcceptSuggestedName{})

	signer := passkey.NewAssertionSigner(authenticator, rpID, func(ctx context.Context) ([]byte, error) {
		record, err := store.Get(ctx, credstore.Key(cfg.Connector.ProjectID))
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, connector.ErrNoStoredCredential
		}

		return record.WebAuthnKey.ID, nil
	})

	builder := account.NewBuilder(signer, cfg.Connector.ReceiptPollInterval, cfg.Connector.ReceiptTimeout)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	s.Connector = connector.New(cfg.Connector, store, passkeySvc, builder, events.NewWatermillPublisher(pubSub), s.Metrics)
	s.Provider = s.Connector.Provider()

	router.Init(s)

	return s, nil
}

//nolint:ireturn
func newCredentialStore(cfg config.Connector) (credstore.Service, error) {
	switch cfg.StoreBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		return credstore.NewRedisStore(client), nil
	case "file":
		return credstore.NewFileStore(cfg.FileStoreDir)
	case "memory", "":
		return credstore.NewMemoryStore(), nil
	default:
		return nil, errors.New("unknown credential store backend: " + cfg.StoreBackend)
	}
}

func relyingPartyID(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	return parsed.Hostname(), nil
}
