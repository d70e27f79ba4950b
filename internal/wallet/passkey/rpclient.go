package passkey

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RelyingPartyClient drives WebAuthn ceremonies against a remote passkey
// relying-party service. The service issues the ceremony options and
// verifies the authenticator response; the platform interaction itself is
// delegated to the Authenticator.
type RelyingPartyClient struct {
	baseURL       string
	httpClient    *http.Client
	authenticator Authenticator
}

// NewRelyingPartyClient creates a ceremony client for the given relying
// party base URL.
func NewRelyingPartyClient(baseURL string, httpClient *http.Client, authenticator Authenticator) *RelyingPartyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &RelyingPartyClient{
		baseURL:       baseURL,
		httpClient:    httpClient,
		authenticator: authenticator,
	}
}

type beginRequest struct {
	Username string `json:"username"`
	UserID   string `json:"userId,omitempty"`
}

type finishRequest struct {
	Username string          `json:"username"`
	Response json.RawMessage `json:"response"`
}

type finishResponse struct {
	Verified   bool                `json:"verified"`
	Credential webauthn.Credential `json:"credential"`
}

// Login performs a login-mode assertion ceremony.
func (c *RelyingPartyClient) Login(ctx context.Context, displayName string) (*webauthn.Credential, error) {
	var options protocol.CredentialAssertion
	if err := c.post(ctx, "/login/options", beginRequest{Username: displayName}, &options); err != nil {
		return nil, errors.Wrap(err, "failed to get assertion options")
	}

	response, err := c.authenticator.Get(ctx, &options)
	if err != nil {
		return nil, err
	}

	var result finishResponse
	if err := c.post(ctx, "/login/verify", finishRequest{Username: displayName, Response: response}, &result); err != nil {
		return nil, errors.Wrap(err, "failed to verify assertion")
	}
	if !result.Verified {
		return nil, errors.New("relying party rejected the assertion")
	}

	return &result.Credential, nil
}

// Register performs a registration ceremony for a new credential.
func (c *RelyingPartyClient) Register(ctx context.Context, displayName string) (*webauthn.Credential, error) {
	req := beginRequest{Username: displayName, UserID: uuid.NewString()}

	var options protocol.CredentialCreation
	if err := c.post(ctx, "/register/options", req, &options); err != nil {
		return nil, errors.Wrap(err, "failed to get creation options")
	}

	response, err := c.authenticator.Create(ctx, &options)
	if err != nil {
		return nil, err
	}

	var result finishResponse
	if err := c.post(ctx, "/register/verify", finishRequest{Username: displayName, Response: response}, &result); err != nil {
		return nil, errors.Wrap(err, "failed to verify attestation")
	}
	if !result.Verified {
		return nil, errors.New("relying party rejected the attestation")
	}

	return &result.Credential, nil
}

func (c *RelyingPartyClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "relying party request failed")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read relying party response")
	}

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("relying party returned status %d: %s", res.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "failed to decode relying party response")
	}

	return nil
}
