package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salespipeline/internal/models"
)

type PostgresCompanyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) *PostgresCompanyRepository {
	return &PostgresCompanyRepository{db: db}
}

const selectCompany = `
	SELECT id, name, employee_count, annual_revenue, is_domestic, gst_number, pan_number,
	       industry, region, score, classification, created_at
	FROM companies
`

func scanCompany(row rowScanner) (*models.Company, error) {
	var c models.Company
	err := row.Scan(&c.ID, &c.Name, &c.EmployeeCount, &c.AnnualRevenue, &c.IsDomestic, &c.GSTNumber, &c.PANNumber,
		&c.Industry, &c.Region, &c.Score, &c.Classification, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCompanyRepository) Create(ctx context.Context, c *models.Company) error {
	const q = `
		INSERT INTO companies (name, employee_count, annual_revenue, is_domestic, gst_number, pan_number,
		                       industry, region, score, classification, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	err := r.db.QueryRowContext(ctx, q, c.Name, c.EmployeeCount, c.AnnualRevenue, c.IsDomestic, c.GSTNumber, c.PANNumber,
		c.Industry, c.Region, c.Score, c.Classification, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

func (r *PostgresCompanyRepository) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	c, err := scanCompany(r.db.QueryRowContext(ctx, selectCompany+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (r *PostgresCompanyRepository) List(ctx context.Context, limit, offset int) ([]*models.Company, error) {
	rows, err := r.db.QueryContext(ctx, selectCompany+` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	out := []*models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
