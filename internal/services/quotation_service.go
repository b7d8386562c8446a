package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"salespipeline/internal/authz"
	"salespipeline/internal/idgen"
	"salespipeline/internal/models"
	"salespipeline/internal/repositories"
)

// QuotationService records opaque quotation references against an
// opportunity. The first one flips the derived has_quotation flag, which
// locks every stage behind the current one.
type QuotationService struct {
	repo repositories.QuotationRepository
	ids  *idgen.Allocator
	log  *logrus.Entry
}

func NewQuotationService(repo repositories.QuotationRepository, ids *idgen.Allocator, logger *logrus.Logger) *QuotationService {
	return &QuotationService{repo: repo, ids: ids, log: logger.WithField("component", "quotation_service")}
}

type CreateQuotationInput struct {
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
}

func (s *QuotationService) Create(ctx context.Context, p authz.Principal, opportunityID int64, in CreateQuotationInput) (*models.Quotation, error) {
	if in.Amount < 0 {
		return nil, &Error{Kind: KindValidation, Message: "invalid quotation", Details: []string{"amount"}}
	}
	displayID, err := s.ids.Next(ctx, idgen.PrefixQuotation)
	if err != nil {
		return nil, err
	}
	q := &models.Quotation{
		DisplayID:     displayID,
		OpportunityID: opportunityID,
		Reference:     strings.TrimSpace(in.Reference),
		Amount:        in.Amount,
		CreatedBy:     p.UserID,
	}
	err = s.repo.Create(ctx, q, func(opp *models.Opportunity) error {
		if err := authorizeWrite(p, opp); err != nil {
			return err
		}
		if opp.IsTerminal() {
			return newError(KindLocked, "opportunity %s is %s and read-only", opp.DisplayID, opp.Status)
		}
		return nil
	})
	if err != nil {
		return nil, fromRepo(err, "opportunity")
	}
	s.log.WithFields(logrus.Fields{"quotation": q.DisplayID, "opportunity_id": opportunityID}).Info("quotation recorded")
	return q, nil
}

func (s *QuotationService) List(ctx context.Context, opportunityID int64) ([]*models.Quotation, error) {
	return s.repo.ListByOpportunity(ctx, opportunityID)
}
