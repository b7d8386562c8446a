package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salespipeline/internal/models"
)

type PostgresQuotationRepository struct {
	db *sql.DB
}

func NewQuotationRepository(db *sql.DB) *PostgresQuotationRepository {
	return &PostgresQuotationRepository{db: db}
}

// lockOpportunity loads the opportunity row FOR UPDATE so child inserts
// serialize with stage transitions on the same aggregate.
func lockOpportunity(ctx context.Context, tx *sql.Tx, id int64) (*models.Opportunity, error) {
	o, err := scanOpportunity(tx.QueryRowContext(ctx, selectOpportunity+` WHERE o.id = $1 FOR UPDATE OF o`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock opportunity %d: %w", id, err)
	}
	return o, nil
}

func (r *PostgresQuotationRepository) Create(ctx context.Context, q *models.Quotation, guard func(opp *models.Opportunity) error) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		opp, err := lockOpportunity(ctx, tx, q.OpportunityID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(opp); err != nil {
				return err
			}
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = time.Now()
		}
		const insert = `
			INSERT INTO quotations (display_id, opportunity_id, reference, amount, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, insert, q.DisplayID, q.OpportunityID, q.Reference, q.Amount, q.CreatedBy, q.CreatedAt).Scan(&q.ID); err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		return nil
	})
}

const selectQuotation = `
	SELECT id, display_id, opportunity_id, reference, amount, created_by, created_at
	FROM quotations
`

func scanQuotation(row rowScanner) (*models.Quotation, error) {
	var q models.Quotation
	if err := row.Scan(&q.ID, &q.DisplayID, &q.OpportunityID, &q.Reference, &q.Amount, &q.CreatedBy, &q.CreatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PostgresQuotationRepository) GetByDisplayID(ctx context.Context, displayID string) (*models.Quotation, error) {
	q, err := scanQuotation(r.db.QueryRowContext(ctx, selectQuotation+` WHERE display_id = $1`, displayID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quotation %s: %w", displayID, err)
	}
	return q, nil
}

func (r *PostgresQuotationRepository) ListByOpportunity(ctx context.Context, opportunityID int64) ([]*models.Quotation, error) {
	rows, err := r.db.QueryContext(ctx, selectQuotation+` WHERE opportunity_id = $1 ORDER BY id`, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	out := []*models.Quotation{}
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
