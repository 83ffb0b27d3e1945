package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"didreg/internal/domain"
)

// PostgresDocumentStore persists finalized documents so resolution survives
// restarts. Documents are stored as jsonb; lifecycle facts live in columns so
// deactivation does not rewrite the document blob.
type PostgresDocumentStore struct {
	db *sql.DB
}

func NewPostgresDocumentStore(db *sql.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

// OpenPostgres connects with the lib/pq driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the documents table when it does not exist yet. Called
// once at startup; safe to call repeatedly.
func (s *PostgresDocumentStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS did_documents (
			did         TEXT PRIMARY KEY,
			document    JSONB NOT NULL,
			created     TIMESTAMPTZ NOT NULL,
			updated     TIMESTAMPTZ NOT NULL,
			deactivated BOOLEAN NOT NULL DEFAULT FALSE,
			version_id  TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure did_documents schema: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) Save(ctx context.Context, doc domain.Document, meta domain.DocumentMetadata) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	query := `
		INSERT INTO did_documents (did, document, created, updated, deactivated, version_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (did) DO UPDATE SET
			document    = EXCLUDED.document,
			updated     = EXCLUDED.updated,
			deactivated = EXCLUDED.deactivated,
			version_id  = EXCLUDED.version_id
	`
	_, err = s.db.ExecContext(ctx, query, doc.ID, payload, meta.Created, meta.Updated, meta.Deactivated, meta.VersionID)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) Find(ctx context.Context, did domain.DID) (domain.Document, domain.DocumentMetadata, error) {
	var (
		payload []byte
		meta    domain.DocumentMetadata
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT document, created, updated, deactivated, version_id FROM did_documents WHERE did = $1`,
		did.String(),
	).Scan(&payload, &meta.Created, &meta.Updated, &meta.Deactivated, &meta.VersionID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.DocumentMetadata{}, ErrNotFound
	}
	if err != nil {
		return domain.Document{}, domain.DocumentMetadata{}, fmt.Errorf("find document: %w", err)
	}
	var doc domain.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Document{}, domain.DocumentMetadata{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, meta, nil
}

func (s *PostgresDocumentStore) Deactivate(ctx context.Context, did domain.DID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE did_documents SET deactivated = TRUE, updated = $2 WHERE did = $1`,
		did.String(), at,
	)
	if err != nil {
		return fmt.Errorf("deactivate document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate document: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
