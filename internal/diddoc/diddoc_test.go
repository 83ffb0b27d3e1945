package diddoc

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didreg/internal/domain"
	dErrors "didreg/pkg/domain-errors"
)

func TestGenerateDID(t *testing.T) {
	did := GenerateDID(domain.NetworkTestnet)

	parsed, err := domain.ParseDID(did.String())
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkTestnet, parsed.Network())

	assert.NotEqual(t, did, GenerateDID(domain.NetworkTestnet))
}

func TestMultibaseRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	encoded := EncodeMultibase(pub)
	assert.True(t, strings.HasPrefix(encoded, "z"))

	decoded, err := DecodeMultibase(encoded)
	require.NoError(t, err)
	assert.Equal(t, pub, decoded)
}

func TestDecodeMultibaseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing multibase prefix", "6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"},
		{"not base58", "z0OIl"},
		{"wrong multicodec", "z" + "3" + strings.Repeat("1", 40)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeMultibase(tc.in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestNewDocumentShape(t *testing.T) {
	pub, err := GenerateKey()
	require.NoError(t, err)

	did := GenerateDID(domain.NetworkMainnet)
	doc := NewDocument(did, pub)

	assert.Equal(t, []string{"https://www.w3.org/ns/did/v1"}, doc.Context)
	assert.Equal(t, did.String(), doc.ID)
	assert.Equal(t, []string{did.String()}, doc.Controller)

	require.Len(t, doc.VerificationMethod, 1)
	vm := doc.VerificationMethod[0]
	assert.Equal(t, KeyID(did), vm.ID)
	assert.Equal(t, VerificationMethodType, vm.Type)
	assert.Equal(t, EncodeMultibase(pub), vm.PublicKeyMultibase)

	assert.Equal(t, []string{vm.ID}, doc.Authentication)
	assert.Equal(t, []string{vm.ID}, doc.AssertionMethod)
}

func TestNewChallengeIsOpaqueAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		challenge, err := NewChallenge()
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(challenge)
		require.NoError(t, err)
		assert.Len(t, raw, 32)

		assert.False(t, seen[challenge], "challenge repeated")
		seen[challenge] = true
	}
}

func TestVerifySignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key := EncodeMultibase(pub)

	challenge, err := NewChallenge()
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(challenge)
	require.NoError(t, err)
	signature := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, raw))

	t.Run("accepts a valid signature", func(t *testing.T) {
		require.NoError(t, VerifySignature(key, challenge, signature))
	})

	t.Run("rejects a signature by another key", func(t *testing.T) {
		_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		forged := base64.StdEncoding.EncodeToString(ed25519.Sign(otherPriv, raw))

		err = VerifySignature(key, challenge, forged)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	t.Run("rejects a signature over a different payload", func(t *testing.T) {
		other, err := NewChallenge()
		require.NoError(t, err)

		err = VerifySignature(key, other, signature)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	t.Run("rejects garbage base64", func(t *testing.T) {
		err := VerifySignature(key, challenge, "not base64!!!")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})
}
