package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// SequenceRepository is a Postgres-backed idgen.Sequencer. The upsert takes a
// row lock on the prefix, so concurrent callers get distinct values.
type SequenceRepository struct {
	db *sql.DB
}

func NewSequenceRepository(db *sql.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) NextValue(ctx context.Context, prefix string) (int64, error) {
	const q = `
		INSERT INTO id_sequences (prefix, value) VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET value = id_sequences.value + 1
		RETURNING value
	`
	var v int64
	if err := r.db.QueryRowContext(ctx, q, prefix).Scan(&v); err != nil {
		return 0, fmt.Errorf("next sequence value for %s: %w", prefix, err)
	}
	return v, nil
}
