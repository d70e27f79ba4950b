package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/api/router"
	"github/passlet/go-wallet/internal/config"
	"github/passlet/go-wallet/internal/metrics"
	"github/passlet/go-wallet/internal/wallet/account"
	"github/passlet/go-wallet/internal/wallet/connector"
	"github/passlet/go-wallet/internal/wallet/credstore"
	"github/passlet/go-wallet/internal/wallet/passkey"
)

// SessionAddress is the account address FakeSessionBuilder sessions report.
var SessionAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")

// FakeSessionBuilder satisfies the connector's session builder with sessions
// that carry no live transports.
type FakeSessionBuilder struct {
	Err    error
	Builds int
}

func (b *FakeSessionBuilder) Build(_ context.Context, _ *credstore.Record, _ account.ChainContext) (*account.Session, error) {
	b.Builds++

	if b.Err != nil {
		return nil, b.Err
	}

	return &account.Session{
		Account: &account.Account{Address: SessionAddress},
		Client:  &account.Client{},
	}, nil
}

// ServerScenario exposes the test doubles wired into a test server.
type ServerScenario struct {
	Store    *credstore.MemoryStore
	Ceremony *FakeCeremony
	Prompt   *FakePrompt
	Builder  *FakeSessionBuilder
}

// DefaultServiceConfig returns the config used by test servers.
func DefaultServiceConfig() config.Server {
	return config.Server{
		Echo: config.EchoServer{
			ListenAddress:                  ":0",
			HideInternalServerErrorDetails: true,
			GracefulShutdownTimeout:        time.Second,
		},
		Logger: config.Logger{
			Level: "warn",
		},
		Management: config.Management{
			Secret: "mgmt-test-secret",
		},
		Connector: config.Connector{
			ProjectID:       "project-test",
			AppName:         "Passlet Demo",
			CeremonyTimeout: time.Second,
			BundlerTimeout:  time.Second,
			Chains: []config.Chain{
				{ID: 11155111, Name: "Sepolia"},
				{ID: 84532, Name: "Base Sepolia"},
			},
		},
	}
}

// WithTestServer constructs a fully wired server on test doubles and hands
// it to the closure.
func WithTestServer(t *testing.T, closure func(s *api.Server, sc *ServerScenario)) {
	t.Helper()

	sc := &ServerScenario{
		Store:    credstore.NewMemoryStore(),
		Ceremony: &FakeCeremony{Credential: NewTestCredential()},
		Prompt:   &FakePrompt{},
		Builder:  &FakeSessionBuilder{},
	}

	s := api.NewServer(DefaultServiceConfig())
	s.Registry = prometheus.NewRegistry()
	s.Metrics = metrics.New(s.Registry)

	passkeySvc := passkey.NewService(s.Config.Connector, sc.Store, sc.Ceremony, sc.Prompt)
	s.Connector = connector.New(s.Config.Connector, sc.Store, passkeySvc, sc.Builder, nil, s.Metrics)
	s.Provider = s.Connector.Provider()

	router.Init(s)

	closure(s, sc)
}

// PerformRequest sends a JSON request through the echo router and returns
// the recorded response.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}

// ParseResponse decodes the recorded JSON response into v.
func ParseResponse(t *testing.T, res *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}
