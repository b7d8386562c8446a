package repositories

import (
	"context"
	"errors"

	"salespipeline/internal/models"
)

var (
	// ErrNotFound is returned by write paths that need an existing row.
	// Plain reads return (nil, nil) instead.
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentUpdate means the row version moved under us.
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

// OpportunityRepository persists the opportunity aggregate. Mutate is the
// only write path after creation: it runs fn against a locked copy and
// persists the result atomically, recording a history row whenever the
// stage changed. If fn returns an error nothing is written and that error
// is returned unchanged.
type OpportunityRepository interface {
	Create(ctx context.Context, opp *models.Opportunity) error
	GetByID(ctx context.Context, id int64) (*models.Opportunity, error)
	List(ctx context.Context, filter models.OpportunityFilter, limit, offset int) ([]*models.Opportunity, error)
	Count(ctx context.Context, filter models.OpportunityFilter) (int, error)
	KPIs(ctx context.Context, filter models.OpportunityFilter) (*models.OpportunityKPIs, error)
	Mutate(ctx context.Context, id int64, fn func(opp *models.Opportunity) error) (*models.Opportunity, error)
	History(ctx context.Context, opportunityID int64) ([]models.StageTransition, error)
}

// LeadRepository persists leads. Convert locks the lead, lets fn decide and
// build the opportunity, then inserts it and flips the lead's converted flag
// in the same transaction.
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id int64) (*models.Lead, error)
	List(ctx context.Context, filter models.LeadFilter, limit, offset int) ([]*models.Lead, error)
	Mutate(ctx context.Context, id int64, fn func(lead *models.Lead) error) (*models.Lead, error)
	Convert(ctx context.Context, id int64, fn func(lead *models.Lead) (*models.Opportunity, error)) (*models.Lead, *models.Opportunity, error)
}

type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id int64) (*models.Company, error)
	List(ctx context.Context, limit, offset int) ([]*models.Company, error)
}

// QuotationRepository stores opaque quotation references. Create locks the
// parent opportunity and runs guard on it before inserting.
type QuotationRepository interface {
	Create(ctx context.Context, q *models.Quotation, guard func(opp *models.Opportunity) error) error
	GetByDisplayID(ctx context.Context, displayID string) (*models.Quotation, error)
	ListByOpportunity(ctx context.Context, opportunityID int64) ([]*models.Quotation, error)
}

type OrderAckRepository interface {
	Create(ctx context.Context, oa *models.OrderAcknowledgement, guard func(opp *models.Opportunity) error) error
	GetByID(ctx context.Context, id int64) (*models.OrderAcknowledgement, error)
	ListByOpportunity(ctx context.Context, opportunityID int64) ([]*models.OrderAcknowledgement, error)
}
