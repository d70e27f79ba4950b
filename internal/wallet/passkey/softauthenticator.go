package passkey

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/pkg/errors"
)

// authenticator data flags
const (
	flagUserPresent      = 0x01
	flagUserVerified     = 0x04
	flagAttestedCredData = 0x40
)

// SoftAuthenticator is an in-process WebAuthn authenticator for development
// setups where no platform authenticator is available. Keys are held in
// memory only, user presence is implied and attestation is "none" format.
// It must never be wired in production.
type SoftAuthenticator struct {
	origin string

	mu      sync.Mutex
	keys    map[string]*ecdsa.PrivateKey
	counter uint32
}

func NewSoftAuthenticator(origin string) *SoftAuthenticator {
	return &SoftAuthenticator{
		origin: origin,
		keys:   make(map[string]*ecdsa.PrivateKey),
	}
}

type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// Create mints a new P-256 credential and answers with a "none" attestation.
func (a *SoftAuthenticator) Create(_ context.Context, options *protocol.CredentialCreation) (json.RawMessage, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate credential key")
	}

	credentialID := make([]byte, 32)
	if _, err := rand.Read(credentialID); err != nil {
		return nil, errors.Wrap(err, "failed to generate credential id")
	}

	rpID := options.Response.RelyingParty.ID

	clientDataJSON, err := json.Marshal(clientData{
		Type:      "webauthn.create",
		Challenge: base64.RawURLEncoding.EncodeToString(options.Response.Challenge),
		Origin:    a.origin,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode client data")
	}

	coseKey, err := encodeCOSEKey(key)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.keys[string(credentialID)] = key
	counter := a.nextCounter()
	a.mu.Unlock()

	authData := a.authenticatorData(rpID, flagUserPresent|flagUserVerified|flagAttestedCredData, counter)
	authData = append(authData, make([]byte, 16)...) // zero AAGUID
	authData = binary.BigEndian.AppendUint16(authData, uint16(len(credentialID)))
	authData = append(authData, credentialID...)
	authData = append(authData, coseKey...)

	attestationObject, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode attestation object")
	}

	response := protocol.CredentialCreationResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{
				ID:   base64.RawURLEncoding.EncodeToString(credentialID),
				Type: "public-key",
			},
			RawID: credentialID,
		},
		AttestationResponse: protocol.AuthenticatorAttestationResponse{
			AuthenticatorResponse: protocol.AuthenticatorResponse{
				ClientDataJSON: clientDataJSON,
			},
			AttestationObject: attestationObject,
		},
	}

	return json.Marshal(response)
}

// Get answers an assertion request with one of the credentials minted by
// Create.
func (a *SoftAuthenticator) Get(_ context.Context, options *protocol.CredentialAssertion) (json.RawMessage, error) {
	credentialID, key, err := a.selectCredential(options)
	if err != nil {
		return nil, err
	}

	clientDataJSON, err := json.Marshal(clientData{
		Type:      "webauthn.get",
		Challenge: base64.RawURLEncoding.EncodeToString(options.Response.Challenge),
		Origin:    a.origin,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode client data")
	}

	a.mu.Lock()
	counter := a.nextCounter()
	a.mu.Unlock()

	authData := a.authenticatorData(options.Response.RelyingPartyID, flagUserPresent|flagUserVerified, counter)

	clientDataHash := sha256.Sum256(clientDataJSON)
	digest := sha256.Sum256(append(append([]byte{}, authData...), clientDataHash[:]...))

	signature, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign assertion")
	}

	response := protocol.CredentialAssertionResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{
				ID:   base64.RawURLEncoding.EncodeToString(credentialID),
				Type: "public-key",
			},
			RawID: credentialID,
		},
		AssertionResponse: protocol.AuthenticatorAssertionResponse{
			AuthenticatorResponse: protocol.AuthenticatorResponse{
				ClientDataJSON: clientDataJSON,
			},
			AuthenticatorData: authData,
			Signature:         signature,
		},
	}

	return json.Marshal(response)
}

func (a *SoftAuthenticator) selectCredential(options *protocol.CredentialAssertion) ([]byte, *ecdsa.PrivateKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, allowed := range options.Response.AllowedCredentials {
		if key, ok := a.keys[string(allowed.CredentialID)]; ok {
			return allowed.CredentialID, key, nil
		}
	}

	// Discoverable credential flow: no allow list, use any known key.
	if len(options.Response.AllowedCredentials) == 0 {
		for id, key := range a.keys {
			return []byte(id), key, nil
		}
	}

	return nil, nil, errors.Wrap(ErrAuthenticationFailed, "no matching credential")
}

func (a *SoftAuthenticator) authenticatorData(rpID string, flags byte, counter uint32) []byte {
	rpIDHash := sha256.Sum256([]byte(rpID))

	data := make([]byte, 0, 37)
	data = append(data, rpIDHash[:]...)
	data = append(data, flags)
	data = binary.BigEndian.AppendUint32(data, counter)

	return data
}

// nextCounter must be called with the mutex held.
func (a *SoftAuthenticator) nextCounter() uint32 {
	a.counter++
	return a.counter
}

// encodeCOSEKey encodes a P-256 public key as a COSE_Key (EC2, ES256).
func encodeCOSEKey(key *ecdsa.PrivateKey) ([]byte, error) {
	encoded, err := cbor.Marshal(map[int]any{
		1:  2,  // kty: EC2
		3:  -7, // alg: ES256
		-1: 1,  // crv: P-256
		-2: key.PublicKey.X.FillBytes(make([]byte, 32)),
		-3: key.PublicKey.Y.FillBytes(make([]byte, 32)),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode COSE key")
	}

	return encoded, nil
}
