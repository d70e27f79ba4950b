package config

import (
	"fmt"
	"time"

	"github/passlet/go-wallet/internal/util"
)

// EchoServer holds the HTTP listener configuration.
type EchoServer struct {
	ListenAddress                  string
	HideInternalServerErrorDetails bool
	GracefulShutdownTimeout        time.Duration
}

// Logger holds the logging configuration.
type Logger struct {
	Level              string
	PrettyPrintConsole bool
}

// Management holds the configuration of the management endpoints (/-/*).
type Management struct {
	Secret string `json:"-"` // sensitive
}

// Chain describes one supported chain with its bundler/paymaster/node endpoints.
type Chain struct {
	ID           int64
	Name         string
	BundlerURL   string
	PaymasterURL string
	RPCURL       string
}

// Connector holds the passkey wallet connector configuration.
type Connector struct {
	ProjectID           string
	AppName             string
	PasskeyName         string // optional custom display name, defaults to "<AppName> - Passkey"
	RelyingPartyURL     string
	StoreBackend        string // "memory", "redis" or "file"
	RedisAddress        string
	FileStoreDir        string
	CeremonyTimeout     time.Duration
	BundlerTimeout      time.Duration
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
	Chains              []Chain
}

// Server is the central, env-driven configuration of the service.
type Server struct {
	Echo       EchoServer
	Logger     Logger
	Management Management
	Connector  Connector
}

// DefaultDisplayName returns the configured passkey display name or the
// "<AppName> - Passkey" default.
func (c Connector) DefaultDisplayName() string {
	if c.PasskeyName != "" {
		return c.PasskeyName
	}

	return c.AppName + " - Passkey"
}

// ChainByID returns the configured chain with the given id.
func (c Connector) ChainByID(chainID int64) (Chain, bool) {
	for _, chain := range c.Chains {
		if chain.ID == chainID {
			return chain, true
		}
	}

	return Chain{}, false
}

// DefaultServiceConfigFromEnv returns the server config as parsed from the environment.
func DefaultServiceConfigFromEnv() Server {
	projectID := util.GetEnv("CONNECTOR_PROJECT_ID", "demo-project")

	return Server{
		Echo: EchoServer{
			ListenAddress:                  util.GetEnv("SERVER_ECHO_LISTEN_ADDRESS", ":8080"),
			HideInternalServerErrorDetails: util.GetEnvAsBool("SERVER_ECHO_HIDE_INTERNAL_SERVER_ERROR_DETAILS", true),
			GracefulShutdownTimeout:        util.GetEnvAsDuration("SERVER_ECHO_GRACEFUL_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logger: Logger{
			Level:              util.GetEnv("SERVER_LOGGER_LEVEL", "info"),
			PrettyPrintConsole: util.GetEnvAsBool("SERVER_LOGGER_PRETTY_PRINT_CONSOLE", false),
		},
		Management: Management{
			Secret: util.GetEnv("SERVER_MANAGEMENT_SECRET", "mgmt-secret"),
		},
		Connector: Connector{
			ProjectID:           projectID,
			AppName:             util.GetEnv("CONNECTOR_APP_NAME", "Passlet Demo"),
			PasskeyName:         util.GetEnv("CONNECTOR_PASSKEY_NAME", ""),
			RelyingPartyURL:     util.GetEnv("CONNECTOR_RELYING_PARTY_URL", fmt.Sprintf("https://passkeys.passlet.dev/api/v3/%s", projectID)),
			StoreBackend:        util.GetEnv("CONNECTOR_STORE_BACKEND", "memory"),
			RedisAddress:        util.GetEnv("CONNECTOR_REDIS_ADDRESS", "127.0.0.1:6379"),
			FileStoreDir:        util.GetEnv("CONNECTOR_FILE_STORE_DIR", ".passlet"),
			CeremonyTimeout:     util.GetEnvAsDuration("CONNECTOR_CEREMONY_TIMEOUT", 2*time.Minute),
			BundlerTimeout:      util.GetEnvAsDuration("CONNECTOR_BUNDLER_TIMEOUT", 30*time.Second),
			ReceiptPollInterval: util.GetEnvAsDuration("CONNECTOR_RECEIPT_POLL_INTERVAL", 2*time.Second),
			ReceiptTimeout:      util.GetEnvAsDuration("CONNECTOR_RECEIPT_TIMEOUT", 2*time.Minute),
			Chains:              defaultChainsFromEnv(projectID),
		},
	}
}

func defaultChainsFromEnv(projectID string) []Chain {
	bundlerTemplate := util.GetEnv("CONNECTOR_BUNDLER_URL_TEMPLATE", "https://rpc.passlet.dev/api/v2/bundler/%s?chainId=%d")
	paymasterTemplate := util.GetEnv("CONNECTOR_PAYMASTER_URL_TEMPLATE", "https://rpc.passlet.dev/api/v2/paymaster/%s?chainId=%d")

	chains := []Chain{
		{
			ID:     11155111,
			Name:   "Sepolia",
			RPCURL: util.GetEnv("CONNECTOR_SEPOLIA_RPC_URL", "https://ethereum-sepolia-rpc.publicnode.com"),
		},
		{
			ID:     84532,
			Name:   "Base Sepolia",
			RPCURL: util.GetEnv("CONNECTOR_BASE_SEPOLIA_RPC_URL", "https://base-sepolia-rpc.publicnode.com"),
		},
	}

	for i := range chains {
		chains[i].BundlerURL = fmt.Sprintf(bundlerTemplate, projectID, chains[i].ID)
		chains[i].PaymasterURL = fmt.Sprintf(paymasterTemplate, projectID, chains[i].ID)
	}

	return chains
}
