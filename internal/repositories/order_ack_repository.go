package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salespipeline/internal/models"
)

type PostgresOrderAckRepository struct {
	db *sql.DB
}

func NewOrderAckRepository(db *sql.DB) *PostgresOrderAckRepository {
	return &PostgresOrderAckRepository{db: db}
}

func (r *PostgresOrderAckRepository) Create(ctx context.Context, oa *models.OrderAcknowledgement, guard func(opp *models.Opportunity) error) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		opp, err := lockOpportunity(ctx, tx, oa.OpportunityID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(opp); err != nil {
				return err
			}
		}
		if oa.CreatedAt.IsZero() {
			oa.CreatedAt = time.Now()
		}
		const insert = `
			INSERT INTO order_acknowledgements (display_id, opportunity_id, amount, currency, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, insert, oa.DisplayID, oa.OpportunityID, oa.Amount, oa.Currency, oa.CreatedBy, oa.CreatedAt).Scan(&oa.ID); err != nil {
			return fmt.Errorf("create order acknowledgement: %w", err)
		}
		return nil
	})
}

const selectOrderAck = `
	SELECT id, display_id, opportunity_id, amount, currency, created_by, created_at
	FROM order_acknowledgements
`

func scanOrderAck(row rowScanner) (*models.OrderAcknowledgement, error) {
	var oa models.OrderAcknowledgement
	if err := row.Scan(&oa.ID, &oa.DisplayID, &oa.OpportunityID, &oa.Amount, &oa.Currency, &oa.CreatedBy, &oa.CreatedAt); err != nil {
		return nil, err
	}
	return &oa, nil
}

func (r *PostgresOrderAckRepository) GetByID(ctx context.Context, id int64) (*models.OrderAcknowledgement, error) {
	oa, err := scanOrderAck(r.db.QueryRowContext(ctx, selectOrderAck+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order acknowledgement %d: %w", id, err)
	}
	return oa, nil
}

func (r *PostgresOrderAckRepository) ListByOpportunity(ctx context.Context, opportunityID int64) ([]*models.OrderAcknowledgement, error) {
	rows, err := r.db.QueryContext(ctx, selectOrderAck+` WHERE opportunity_id = $1 ORDER BY id`, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list order acknowledgements: %w", err)
	}
	defer rows.Close()

	out := []*models.OrderAcknowledgement{}
	for rows.Next() {
		oa, err := scanOrderAck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, oa)
	}
	return out, rows.Err()
}
