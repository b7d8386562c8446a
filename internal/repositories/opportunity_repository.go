package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"salespipeline/internal/models"
)

type PostgresOpportunityRepository struct {
	db *sql.DB
}

func NewOpportunityRepository(db *sql.DB) *PostgresOpportunityRepository {
	return &PostgresOpportunityRepository{db: db}
}

// has_quotation is derived on every read, never stored.
const selectOpportunity = `
	SELECT o.id, o.display_id, o.title, o.owner_id, o.current_stage, o.status, o.stage_data,
	       o.expected_revenue, o.currency, o.win_probability, o.weighted_revenue, o.lead_id,
	       o.score, o.classification, o.opportunity_date, o.version, o.updated_by,
	       o.created_at, o.updated_at,
	       EXISTS (SELECT 1 FROM quotations q WHERE q.opportunity_id = o.id) AS has_quotation
	FROM opportunities o
`

func scanOpportunity(row rowScanner) (*models.Opportunity, error) {
	var (
		o      models.Opportunity
		status string
		leadID sql.NullInt64
	)
	err := row.Scan(
		&o.ID, &o.DisplayID, &o.Title, &o.OwnerID, &o.CurrentStage, &status, &o.StageData,
		&o.ExpectedRevenue, &o.Currency, &o.WinProbability, &o.WeightedRevenue, &leadID,
		&o.Score, &o.Classification, &o.OpportunityDate, &o.Version, &o.UpdatedBy,
		&o.CreatedAt, &o.UpdatedAt,
		&o.HasQuotation,
	)
	if err != nil {
		return nil, err
	}
	o.Status = models.OpportunityStatus(status)
	o.LeadID = int64Ptr(leadID)
	return &o, nil
}

// insertOpportunity is shared with lead conversion, which runs it inside
// the conversion transaction.
func insertOpportunity(ctx context.Context, q queryer, o *models.Opportunity) error {
	const query = `
		INSERT INTO opportunities (display_id, title, owner_id, current_stage, status, stage_data,
		                           expected_revenue, currency, win_probability, weighted_revenue, lead_id,
		                           score, classification, opportunity_date, version, updated_by,
		                           created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, $15, $16, $16)
		RETURNING id
	`
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt
	o.Version = 1
	err := q.QueryRowContext(ctx, query,
		o.DisplayID, o.Title, o.OwnerID, o.CurrentStage, string(o.Status), o.StageData,
		o.ExpectedRevenue, o.Currency, o.WinProbability, o.WeightedRevenue, nullInt64(o.LeadID),
		o.Score, o.Classification, o.OpportunityDate, o.UpdatedBy,
		o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("create opportunity: %w", err)
	}
	return nil
}

func (r *PostgresOpportunityRepository) Create(ctx context.Context, o *models.Opportunity) error {
	return insertOpportunity(ctx, r.db, o)
}

func (r *PostgresOpportunityRepository) GetByID(ctx context.Context, id int64) (*models.Opportunity, error) {
	o, err := scanOpportunity(r.db.QueryRowContext(ctx, selectOpportunity+` WHERE o.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity %d: %w", id, err)
	}
	return o, nil
}

// opportunityWhere is shared by List, Count and KPIs so the three always
// agree on which rows they see.
func opportunityWhere(f models.OpportunityFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	i := 1
	if f.Status != "" {
		where += fmt.Sprintf(" AND o.status = $%d", i)
		args = append(args, string(f.Status))
		i++
	}
	if len(f.Stages) > 0 {
		where += fmt.Sprintf(" AND o.current_stage = ANY($%d)", i)
		args = append(args, pq.Array(f.Stages))
		i++
	}
	if f.OwnerID > 0 {
		where += fmt.Sprintf(" AND o.owner_id = $%d", i)
		args = append(args, f.OwnerID)
	}
	return where, args
}

func (r *PostgresOpportunityRepository) List(ctx context.Context, f models.OpportunityFilter, limit, offset int) ([]*models.Opportunity, error) {
	where, args := opportunityWhere(f)
	n := len(args)
	query := selectOpportunity + where + fmt.Sprintf(" ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	out := []*models.Opportunity{}
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresOpportunityRepository) Count(ctx context.Context, f models.OpportunityFilter) (int, error) {
	where, args := opportunityWhere(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities o`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count opportunities: %w", err)
	}
	return n, nil
}

func (r *PostgresOpportunityRepository) KPIs(ctx context.Context, f models.OpportunityFilter) (*models.OpportunityKPIs, error) {
	where, args := opportunityWhere(f)
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE o.status = 'Active'),
		       COUNT(*) FILTER (WHERE o.status = 'Won'),
		       COUNT(*) FILTER (WHERE o.status = 'Lost'),
		       COUNT(*) FILTER (WHERE o.status = 'Dropped'),
		       COALESCE(SUM(o.expected_revenue) FILTER (WHERE o.status = 'Active'), 0),
		       COALESCE(SUM(o.weighted_revenue) FILTER (WHERE o.status = 'Active'), 0),
		       COALESCE(SUM(o.expected_revenue) FILTER (WHERE o.status = 'Won'), 0)
		FROM opportunities o` + where

	var k models.OpportunityKPIs
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&k.Total, &k.Open, &k.Won, &k.Lost, &k.Dropped,
		&k.PipelineValue, &k.WeightedPipelineValue, &k.WonValue,
	)
	if err != nil {
		return nil, fmt.Errorf("opportunity kpis: %w", err)
	}
	return &k, nil
}

// Mutate serializes writers on the row with SELECT ... FOR UPDATE and also
// checks the version column on write.
func (r *PostgresOpportunityRepository) Mutate(ctx context.Context, id int64, fn func(opp *models.Opportunity) error) (*models.Opportunity, error) {
	var out *models.Opportunity
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		o, err := scanOpportunity(tx.QueryRowContext(ctx, selectOpportunity+` WHERE o.id = $1 FOR UPDATE OF o`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock opportunity %d: %w", id, err)
		}

		prevStage, prevVersion := o.CurrentStage, o.Version
		if err := fn(o); err != nil {
			return err
		}
		o.ID = id
		o.Version = prevVersion + 1
		o.UpdatedAt = time.Now()

		const update = `
			UPDATE opportunities
			SET title=$1, owner_id=$2, current_stage=$3, status=$4, stage_data=$5,
			    expected_revenue=$6, currency=$7, win_probability=$8, weighted_revenue=$9,
			    score=$10, classification=$11, opportunity_date=$12, version=$13, updated_by=$14, updated_at=$15
			WHERE id=$16 AND version=$17
		`
		res, err := tx.ExecContext(ctx, update,
			o.Title, o.OwnerID, o.CurrentStage, string(o.Status), o.StageData,
			o.ExpectedRevenue, o.Currency, o.WinProbability, o.WeightedRevenue,
			o.Score, o.Classification, o.OpportunityDate, o.Version, o.UpdatedBy, o.UpdatedAt,
			id, prevVersion,
		)
		if err != nil {
			return fmt.Errorf("update opportunity %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update opportunity %d: %w", id, err)
		}
		if affected == 0 {
			return ErrConcurrentUpdate
		}

		if o.CurrentStage != prevStage {
			const hist = `
				INSERT INTO opportunity_stage_history (opportunity_id, from_stage, to_stage, actor_id, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`
			if _, err := tx.ExecContext(ctx, hist, id, prevStage, o.CurrentStage, o.UpdatedBy, o.UpdatedAt); err != nil {
				return fmt.Errorf("record stage history: %w", err)
			}
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresOpportunityRepository) History(ctx context.Context, opportunityID int64) ([]models.StageTransition, error) {
	const q = `
		SELECT id, opportunity_id, from_stage, to_stage, actor_id, created_at
		FROM opportunity_stage_history
		WHERE opportunity_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, q, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("stage history: %w", err)
	}
	defer rows.Close()

	var out []models.StageTransition
	for rows.Next() {
		var h models.StageTransition
		if err := rows.Scan(&h.ID, &h.OpportunityID, &h.FromStage, &h.ToStage, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
