package passkey

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/pkg/errors"
)

// CredentialSource yields the credential id to sign with, typically backed
// by the credential store.
type CredentialSource func(ctx context.Context) ([]byte, error)

// AssertionSigner signs user operation digests by running an assertion
// ceremony with the digest as challenge. The assertion signature is what the
// on-chain WebAuthn validator verifies.
type AssertionSigner struct {
	authenticator Authenticator
	rpID          string
	credentialID  CredentialSource
}

func NewAssertionSigner(authenticator Authenticator, rpID string, credentialID CredentialSource) *AssertionSigner {
	return &AssertionSigner{
		authenticator: authenticator,
		rpID:          rpID,
		credentialID:  credentialID,
	}
}

// SignDigest runs a get ceremony over the digest and returns the assertion
// signature.
func (s *AssertionSigner) SignDigest(ctx context.Context, digest common.Hash) ([]byte, error) {
	credentialID, err := s.credentialID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve signing credential")
	}

	options := &protocol.CredentialAssertion{
		Response: protocol.PublicKeyCredentialRequestOptions{
			Challenge:      protocol.URLEncodedBase64(digest[:]),
			RelyingPartyID: s.rpID,
			AllowedCredentials: []protocol.CredentialDescriptor{
				{Type: "public-key", CredentialID: credentialID},
			},
			UserVerification: protocol.VerificationRequired,
		},
	}

	raw, err := s.authenticator.Get(ctx, options)
	if err != nil {
		return nil, err
	}

	var response protocol.CredentialAssertionResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, errors.Wrap(err, "failed to decode assertion response")
	}

	return response.AssertionResponse.Signature, nil
}
