// Package diddoc builds DID documents and the signing material that goes with
// them. The registrar never holds private keys; it only ever sees public keys
// and signatures produced by the caller's wallet.
package diddoc

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"didreg/internal/domain"
	dErrors "didreg/pkg/domain-errors"
)

// VerificationMethodType is the key representation used in generated
// documents.
const VerificationMethodType = "Ed25519VerificationKey2020"

// multicodec prefix for an Ed25519 public key, per the multibase spec.
var ed25519Prefix = []byte{0xed, 0x01}

// GenerateDID creates a fresh identifier on the given network using a UUID
// method-specific id.
func GenerateDID(network string) domain.DID {
	return domain.NewDID(network, uuid.New().String())
}

// GenerateKey produces a throwaway Ed25519 public key for callers that did
// not supply one. The matching private key is discarded immediately: signing
// is the wallet's job, never the registrar's.
func GenerateKey() (ed25519.PublicKey, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return pub, nil
}

// EncodeMultibase renders a public key as a multibase base58btc string
// ("z..." with the ed25519-pub multicodec prefix).
func EncodeMultibase(pub ed25519.PublicKey) string {
	return "z" + base58.Encode(append(append([]byte{}, ed25519Prefix...), pub...))
}

// DecodeMultibase parses a multibase base58btc Ed25519 public key.
func DecodeMultibase(s string) (ed25519.PublicKey, error) {
	if len(s) < 2 || s[0] != 'z' {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key is not multibase base58btc")
	}
	raw, err := base58.Decode(s[1:])
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "public key is not valid base58")
	}
	if len(raw) != len(ed25519Prefix)+ed25519.PublicKeySize ||
		raw[0] != ed25519Prefix[0] || raw[1] != ed25519Prefix[1] {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key is not an ed25519-pub multicodec value")
	}
	return ed25519.PublicKey(raw[len(ed25519Prefix):]), nil
}

// KeyID returns the fragment identifier of the document's first key.
func KeyID(did domain.DID) string {
	return did.String() + "#key-1"
}

// NewDocument builds the draft document for a create operation: one Ed25519
// verification method wired into authentication and assertion.
func NewDocument(did domain.DID, pub ed25519.PublicKey) domain.Document {
	kid := KeyID(did)
	return domain.Document{
		Context: []string{"https://www.w3.org/ns/did/v1"},
		ID:      did.String(),
		Controller: []string{
			did.String(),
		},
		VerificationMethod: []domain.VerificationMethod{{
			ID:                 kid,
			Type:               VerificationMethodType,
			Controller:         did.String(),
			PublicKeyMultibase: EncodeMultibase(pub),
		}},
		Authentication:  []string{kid},
		AssertionMethod: []string{kid},
	}
}

// NewChallenge returns the opaque payload the caller must sign to prove key
// control, base64-encoded for the wire.
func NewChallenge() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate signing challenge: %w", err)
	}
	return base64.StdEncoding.EncodeToString(nonce), nil
}

// VerifySignature checks a base64 Ed25519 signature over the base64 challenge
// payload against a multibase public key.
func VerifySignature(publicKeyMultibase, payloadB64, signatureB64 string) error {
	pub, err := DecodeMultibase(publicKeyMultibase)
	if err != nil {
		return err
	}
	payload, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidSignature, "signing payload is not valid base64")
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidSignature, "signature is not valid base64")
	}
	if !ed25519.Verify(pub, payload, sig) {
		return dErrors.New(dErrors.CodeInvalidSignature, "signature does not match signing request")
	}
	return nil
}
