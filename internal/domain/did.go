package domain

import (
	"fmt"
	"strings"
	"time"

	dErrors "didreg/pkg/domain-errors"
)

// Method is the DID method this registrar serves.
const Method = "cheqd"

// Networks the registrar can issue identifiers on.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// DID is a decentralized identifier string, e.g.
// did:cheqd:testnet:7c202a50-6d54-4f34-9b8a-2f4a9d3cdd76.
type DID string

func (d DID) String() string { return string(d) }

// Network extracts the network segment of a cheqd DID. Empty for malformed
// identifiers.
func (d DID) Network() string {
	parts := strings.Split(string(d), ":")
	if len(parts) != 4 {
		return ""
	}
	return parts[2]
}

// NewDID assembles a DID from a network and a method-specific id.
func NewDID(network, methodSpecificID string) DID {
	return DID(fmt.Sprintf("did:%s:%s:%s", Method, network, methodSpecificID))
}

// ParseDID validates a caller-supplied DID at a trust boundary. The registrar
// only accepts identifiers for its own method and known networks.
func ParseDID(s string) (DID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != "did" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "malformed DID")
	}
	if parts[1] != Method {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported DID method")
	}
	if parts[2] != NetworkMainnet && parts[2] != NetworkTestnet {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown network")
	}
	if parts[3] == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "missing method-specific id")
	}
	return DID(s), nil
}

// VerificationMethod is a public key entry in a DID document.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase,omitempty"`
}

// Service is a service endpoint entry in a DID document.
type Service struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	ServiceEndpoint []string `json:"serviceEndpoint"`
}

// Document is the DID document finalized and resolved by this registrar. Field
// names follow the DID core vocabulary so the document round-trips unchanged
// through JSON.
type Document struct {
	Context            []string             `json:"@context,omitempty"`
	ID                 string               `json:"id"`
	Controller         []string             `json:"controller,omitempty"`
	VerificationMethod []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication     []string             `json:"authentication,omitempty"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
	Service            []Service            `json:"service,omitempty"`
}

// DocumentMetadata tracks registrar-local lifecycle facts about a stored
// document.
type DocumentMetadata struct {
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	Deactivated bool      `json:"deactivated"`
	VersionID   string    `json:"versionId"`
}
