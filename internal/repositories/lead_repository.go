package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salespipeline/internal/models"
)

type PostgresLeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *PostgresLeadRepository {
	return &PostgresLeadRepository{db: db}
}

const selectLead = `
	SELECT id, display_id, title, owner_id, company, expected_revenue, currency,
	       approval_status, score, classification, converted, opportunity_id, created_at, updated_at
	FROM leads
`

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		l       models.Lead
		company []byte
		status  string
		oppID   sql.NullInt64
	)
	err := row.Scan(&l.ID, &l.DisplayID, &l.Title, &l.OwnerID, &company, &l.ExpectedRevenue, &l.Currency,
		&status, &l.Score, &l.Classification, &l.Converted, &oppID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(company) > 0 {
		if err := json.Unmarshal(company, &l.Company); err != nil {
			return nil, fmt.Errorf("decode lead company: %w", err)
		}
	}
	l.ApprovalStatus = models.LeadApprovalStatus(status)
	l.OpportunityID = int64Ptr(oppID)
	return &l, nil
}

func (r *PostgresLeadRepository) Create(ctx context.Context, l *models.Lead) error {
	const query = `
		INSERT INTO leads (display_id, title, owner_id, company, expected_revenue, currency,
		                   approval_status, score, classification, converted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $10)
		RETURNING id
	`
	company, err := json.Marshal(l.Company)
	if err != nil {
		return fmt.Errorf("encode lead company: %w", err)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.UpdatedAt = l.CreatedAt
	err = r.db.QueryRowContext(ctx, query,
		l.DisplayID, l.Title, l.OwnerID, string(company), l.ExpectedRevenue, l.Currency,
		string(l.ApprovalStatus), l.Score, l.Classification, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (r *PostgresLeadRepository) GetByID(ctx context.Context, id int64) (*models.Lead, error) {
	l, err := scanLead(r.db.QueryRowContext(ctx, selectLead+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead %d: %w", id, err)
	}
	return l, nil
}

func (r *PostgresLeadRepository) List(ctx context.Context, f models.LeadFilter, limit, offset int) ([]*models.Lead, error) {
	query := selectLead + " WHERE 1=1"
	args := []interface{}{}
	i := 1
	if f.ApprovalStatus != "" {
		query += fmt.Sprintf(" AND approval_status = $%d", i)
		args = append(args, string(f.ApprovalStatus))
		i++
	}
	if f.OwnerID > 0 {
		query += fmt.Sprintf(" AND owner_id = $%d", i)
		args = append(args, f.OwnerID)
		i++
	}
	if f.Converted != nil {
		query += fmt.Sprintf(" AND converted = $%d", i)
		args = append(args, *f.Converted)
		i++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	out := []*models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func updateLead(ctx context.Context, q queryer, l *models.Lead) error {
	const query = `
		UPDATE leads
		SET title=$1, owner_id=$2, company=$3, expected_revenue=$4, currency=$5, approval_status=$6,
		    score=$7, classification=$8, converted=$9, opportunity_id=$10, updated_at=$11
		WHERE id=$12
	`
	company, err := json.Marshal(l.Company)
	if err != nil {
		return fmt.Errorf("encode lead company: %w", err)
	}
	_, err = q.ExecContext(ctx, query,
		l.Title, l.OwnerID, string(company), l.ExpectedRevenue, l.Currency, string(l.ApprovalStatus),
		l.Score, l.Classification, l.Converted, nullInt64(l.OpportunityID), l.UpdatedAt, l.ID,
	)
	if err != nil {
		return fmt.Errorf("update lead %d: %w", l.ID, err)
	}
	return nil
}

func (r *PostgresLeadRepository) lockLead(ctx context.Context, tx *sql.Tx, id int64) (*models.Lead, error) {
	l, err := scanLead(tx.QueryRowContext(ctx, selectLead+` WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock lead %d: %w", id, err)
	}
	return l, nil
}

func (r *PostgresLeadRepository) Mutate(ctx context.Context, id int64, fn func(lead *models.Lead) error) (*models.Lead, error) {
	var out *models.Lead
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		l, err := r.lockLead(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		l.ID = id
		l.UpdatedAt = time.Now()
		if err := updateLead(ctx, tx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Convert holds the lead row lock across the opportunity insert and the
// converted flag flip, so a racing second conversion waits and then sees
// converted=true.
func (r *PostgresLeadRepository) Convert(ctx context.Context, id int64, fn func(lead *models.Lead) (*models.Opportunity, error)) (*models.Lead, *models.Opportunity, error) {
	var (
		lead *models.Lead
		opp  *models.Opportunity
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		l, err := r.lockLead(ctx, tx, id)
		if err != nil {
			return err
		}
		o, err := fn(l)
		if err != nil {
			return err
		}
		if err := insertOpportunity(ctx, tx, o); err != nil {
			return err
		}
		oppID := o.ID
		l.ID = id
		l.Converted = true
		l.OpportunityID = &oppID
		l.UpdatedAt = time.Now()
		if err := updateLead(ctx, tx, l); err != nil {
			return err
		}
		lead, opp = l, o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return lead, opp, nil
}
