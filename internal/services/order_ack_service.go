package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"salespipeline/internal/authz"
	"salespipeline/internal/idgen"
	"salespipeline/internal/models"
	"salespipeline/internal/pdf"
	"salespipeline/internal/repositories"
)

type OrderAckService struct {
	repo     repositories.OrderAckRepository
	opps     repositories.OpportunityRepository
	ids      *idgen.Allocator
	renderer pdf.Renderer
	log      *logrus.Entry
}

func NewOrderAckService(
	repo repositories.OrderAckRepository,
	opps repositories.OpportunityRepository,
	ids *idgen.Allocator,
	renderer pdf.Renderer,
	logger *logrus.Logger,
) *OrderAckService {
	return &OrderAckService{
		repo:     repo,
		opps:     opps,
		ids:      ids,
		renderer: renderer,
		log:      logger.WithField("component", "order_ack_service"),
	}
}

// Eligibility is valid only for Won opportunities.
func Eligibility(opp *models.Opportunity) models.Eligibility {
	if opp == nil {
		return models.Eligibility{Valid: false, Errors: []string{"opportunity not found"}}
	}
	if opp.Status != models.OpportunityWon {
		return models.Eligibility{Valid: false, Errors: []string{
			fmt.Sprintf("order acknowledgements can only be created for Won opportunities, %s is %s", opp.DisplayID, opp.Status),
		}}
	}
	return models.Eligibility{Valid: true, Errors: []string{}}
}

// CanCreateOrderAcknowledgement never fails; every problem becomes a reason
// in the answer.
func (s *OrderAckService) CanCreateOrderAcknowledgement(ctx context.Context, opportunityID int64) models.Eligibility {
	opp, err := s.opps.GetByID(ctx, opportunityID)
	if err != nil {
		s.log.WithError(err).WithField("opportunity_id", opportunityID).Error("eligibility lookup failed")
		return models.Eligibility{Valid: false, Errors: []string{"opportunity could not be loaded"}}
	}
	return Eligibility(opp)
}

type CreateOrderAckInput struct {
	Amount *float64 `json:"amount"`
}

// Create issues an ORD- acknowledgement for a Won opportunity. Without an
// explicit amount the PO amount is used, then the expected revenue.
func (s *OrderAckService) Create(ctx context.Context, p authz.Principal, opportunityID int64, in CreateOrderAckInput) (*models.OrderAcknowledgement, error) {
	if in.Amount != nil && *in.Amount < 0 {
		return nil, &Error{Kind: KindValidation, Message: "invalid order acknowledgement", Details: []string{"amount"}}
	}
	displayID, err := s.ids.Next(ctx, idgen.PrefixOrderAck)
	if err != nil {
		return nil, err
	}
	oa := &models.OrderAcknowledgement{
		DisplayID:     displayID,
		OpportunityID: opportunityID,
		CreatedBy:     p.UserID,
	}
	err = s.repo.Create(ctx, oa, func(opp *models.Opportunity) error {
		if err := authorizeWrite(p, opp); err != nil {
			return err
		}
		if e := Eligibility(opp); !e.Valid {
			return &Error{Kind: KindValidation, Message: "opportunity is not eligible for an order acknowledgement", Details: e.Errors}
		}
		oa.Currency = opp.Currency
		switch {
		case in.Amount != nil:
			oa.Amount = *in.Amount
		case opp.StageData.PurchaseOrder != nil && opp.StageData.PurchaseOrder.POAmount > 0:
			oa.Amount = opp.StageData.PurchaseOrder.POAmount
		default:
			oa.Amount = opp.ExpectedRevenue
		}
		return nil
	})
	if err != nil {
		return nil, fromRepo(err, "opportunity")
	}
	s.log.WithFields(logrus.Fields{"order_ack": oa.DisplayID, "opportunity_id": opportunityID}).Info("order acknowledgement created")
	return oa, nil
}

func (s *OrderAckService) Get(ctx context.Context, p authz.Principal, id int64) (*models.OrderAcknowledgement, *models.Opportunity, error) {
	oa, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if oa == nil {
		return nil, nil, newError(KindNotFound, "order acknowledgement %d not found", id)
	}
	opp, err := s.opps.GetByID(ctx, oa.OpportunityID)
	if err != nil {
		return nil, nil, err
	}
	if opp == nil {
		return nil, nil, newError(KindNotFound, "opportunity %d not found", oa.OpportunityID)
	}
	if !p.CanRead(opp.OwnerID) {
		return nil, nil, newError(KindForbidden, "order acknowledgement %s belongs to another user", oa.DisplayID)
	}
	return oa, opp, nil
}

func (s *OrderAckService) ListByOpportunity(ctx context.Context, opportunityID int64) ([]*models.OrderAcknowledgement, error) {
	return s.repo.ListByOpportunity(ctx, opportunityID)
}

// PDF renders the acknowledgement and returns the document with the
// record it was rendered from.
func (s *OrderAckService) PDF(ctx context.Context, p authz.Principal, id int64) ([]byte, *models.OrderAcknowledgement, error) {
	oa, opp, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	data := pdf.OrderAckData{
		DisplayID:        oa.DisplayID,
		OpportunityID:    opp.DisplayID,
		OpportunityTitle: opp.Title,
		Amount:           oa.Amount,
		Currency:         oa.Currency,
		CreatedAt:        oa.CreatedAt,
	}
	if po := opp.StageData.PurchaseOrder; po != nil {
		data.PONumber = po.PONumber
		data.PODate = po.PODate.String()
	}
	if q := opp.StageData.Quotation; q != nil {
		data.QuotationID = q.QuotationID
	}
	out, err := s.renderer.RenderOrderAcknowledgement(data)
	if err != nil {
		return nil, nil, err
	}
	return out, oa, nil
}
