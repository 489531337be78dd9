package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Repository provides owner-scoped persistence for source and derived
// artifact records.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (*Repository, error) {
	r := &Repository{db: db}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS source_artifacts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		storage_ref TEXT NOT NULL,
		label TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS derived_artifacts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		storage_ref TEXT NOT NULL,
		source_id TEXT NOT NULL REFERENCES source_artifacts(id),
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_derived_owner ON derived_artifacts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_source_owner ON source_artifacts(owner_id);`
	_, err := r.db.ExecContext(context.Background(), query)
	return err
}

// CreateSource inserts a new source artifact record.
func (r *Repository) CreateSource(ctx context.Context, ownerID, storageRef, label string) (*SourceArtifact, error) {
	src := &SourceArtifact{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		StorageRef: storageRef,
		Label:      label,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO source_artifacts (id, owner_id, storage_ref, label, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		src.ID, src.OwnerID, src.StorageRef, src.Label, src.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert source artifact: %w", err)
	}
	return src, nil
}

// CreateDerived inserts a derived artifact linked to an existing source.
// The source must resolve and belong to the same owner, else ErrNotFound;
// split ownership across a pair is never written.
func (r *Repository) CreateDerived(ctx context.Context, ownerID, storageRef, sourceID string) (*DerivedArtifact, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM source_artifacts WHERE id = ? AND owner_id = ?`,
		sourceID, ownerID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("resolve source artifact: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	der := &DerivedArtifact{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		StorageRef: storageRef,
		SourceID:   sourceID,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO derived_artifacts (id, owner_id, storage_ref, source_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		der.ID, der.OwnerID, der.StorageRef, der.SourceID, der.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert derived artifact: %w", err)
	}
	return der, nil
}

const entryColumns = `
	d.id, d.owner_id, d.storage_ref, d.source_id, d.created_at,
	s.id, s.owner_id, s.storage_ref, s.label, s.created_at`

// ListByOwner returns every fully paired entry for the owner, most recent
// derived record first (id as a stable tiebreak). Orphan sources carry no
// derived row and never appear here.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM derived_artifacts d
		INNER JOIN source_artifacts s ON s.id = d.source_id
		WHERE d.owner_id = ?
		ORDER BY d.created_at DESC, d.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return entries, nil
}

// FindOneByOwner returns the entry for the given derived artifact id, scoped
// to the owner.
func (r *Repository) FindOneByOwner(ctx context.Context, ownerID, derivedID string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM derived_artifacts d
		INNER JOIN source_artifacts s ON s.id = d.source_id
		WHERE d.owner_id = ? AND d.id = ?`, ownerID, derivedID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateLabel sets a new label on an owner's source artifact and returns the
// updated record. Last writer wins under concurrent relabels.
func (r *Repository) UpdateLabel(ctx context.Context, ownerID, sourceID, newLabel string) (*SourceArtifact, error) {
	if strings.TrimSpace(newLabel) == "" {
		return nil, ErrEmptyLabel
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE source_artifacts SET label = ? WHERE id = ? AND owner_id = ?`,
		newLabel, sourceID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update label: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update label: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, storage_ref, label, created_at
		FROM source_artifacts WHERE id = ?`, sourceID)
	var src SourceArtifact
	var createdAt int64
	if err := row.Scan(&src.ID, &src.OwnerID, &src.StorageRef, &src.Label, &createdAt); err != nil {
		return nil, fmt.Errorf("reload source artifact: %w", err)
	}
	src.CreatedAt = time.Unix(0, createdAt).UTC()
	return &src, nil
}

// DeleteByOwner removes both records of the pair in one transaction. The
// caller is responsible for the backing blobs.
func (r *Repository) DeleteByOwner(ctx context.Context, ownerID, derivedID string) error {
	entry, err := r.FindOneByOwner(ctx, ownerID, derivedID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM derived_artifacts WHERE id = ?`, entry.Derived.ID); err != nil {
		return fmt.Errorf("delete derived artifact: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM source_artifacts WHERE id = ?`, entry.Source.ID); err != nil {
		return fmt.Errorf("delete source artifact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var dCreated, sCreated int64
	err := row.Scan(
		&e.Derived.ID, &e.Derived.OwnerID, &e.Derived.StorageRef, &e.Derived.SourceID, &dCreated,
		&e.Source.ID, &e.Source.OwnerID, &e.Source.StorageRef, &e.Source.Label, &sCreated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.Derived.CreatedAt = time.Unix(0, dCreated).UTC()
	e.Source.CreatedAt = time.Unix(0, sCreated).UTC()
	return &e, nil
}
