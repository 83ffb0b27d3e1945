// Package domain holds the typed identifiers shared across features. Using
// distinct types for each identifier keeps the compiler from letting a job id
// end up where a DID belongs.
package domain

import (
	"github.com/google/uuid"

	dErrors "didreg/pkg/domain-errors"
)

// JobID identifies one in-flight registration job.
type JobID uuid.UUID

func (id JobID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the id is the nil UUID.
func (id JobID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewJobID generates a fresh random job id.
func NewJobID() JobID { return JobID(uuid.New()) }

// MarshalText renders the id in canonical UUID form so jobs serialize
// cleanly; defined types do not inherit uuid.UUID's marshalers.
func (id JobID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (id *JobID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = JobID(parsed)
	return nil
}

// ParseJobID validates and parses a job id at a trust boundary. IDs must be
// valid, non-nil UUIDs.
func ParseJobID(s string) (JobID, error) {
	if s == "" {
		return JobID{}, dErrors.New(dErrors.CodeInvalidInput, "job id must not be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return JobID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "job id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return JobID{}, dErrors.New(dErrors.CodeInvalidInput, "job id must not be the nil UUID")
	}
	return JobID(parsed), nil
}
