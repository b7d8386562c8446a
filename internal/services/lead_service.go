package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"salespipeline/internal/authz"
	"salespipeline/internal/events"
	"salespipeline/internal/idgen"
	"salespipeline/internal/metrics"
	"salespipeline/internal/models"
	"salespipeline/internal/repositories"
)

type LeadService struct {
	repo   repositories.LeadRepository
	ids    *idgen.Allocator
	events events.Publisher
	log    *logrus.Entry
}

func NewLeadService(repo repositories.LeadRepository, ids *idgen.Allocator, pub events.Publisher, logger *logrus.Logger) *LeadService {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &LeadService{
		repo:   repo,
		ids:    ids,
		events: pub,
		log:    logger.WithField("component", "lead_service"),
	}
}

type CreateLeadInput struct {
	Title           string                `json:"title"`
	OwnerID         int                   `json:"owner_id"`
	Company         models.CompanyProfile `json:"company"`
	ExpectedRevenue float64               `json:"expected_revenue"`
	Currency        string                `json:"currency"`
}

// Create stores a Pending lead with its company score computed up front.
func (s *LeadService) Create(ctx context.Context, p authz.Principal, in CreateLeadInput) (*models.Lead, error) {
	if !p.CanWrite() {
		return nil, s.reject("create_lead", 0, p, newError(KindForbidden, "role %d cannot create leads", p.RoleID))
	}
	if err := ValidateCompanyProfile(in.Company); err != nil {
		return nil, s.reject("create_lead", 0, p, err)
	}
	if in.ExpectedRevenue < 0 {
		return nil, s.reject("create_lead", 0, p, &Error{Kind: KindValidation, Message: "invalid lead", Details: []string{"expected_revenue"}})
	}

	displayID, err := s.ids.Next(ctx, idgen.PrefixLead)
	if err != nil {
		return nil, err
	}
	owner := p.UserID
	if in.OwnerID > 0 && authz.IsElevated(p.RoleID) {
		owner = in.OwnerID
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.Company.Name
	}
	score := Score(in.Company)
	lead := &models.Lead{
		DisplayID:       displayID,
		Title:           title,
		OwnerID:         owner,
		Company:         in.Company,
		ExpectedRevenue: in.ExpectedRevenue,
		Currency:        strings.ToUpper(strings.TrimSpace(in.Currency)),
		ApprovalStatus:  models.LeadPending,
		Score:           score,
		Classification:  Classify(score),
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"lead": lead.DisplayID, "score": score}).Info("lead created")
	return lead, nil
}

func (s *LeadService) Get(ctx context.Context, p authz.Principal, id int64) (*models.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, newError(KindNotFound, "lead %d not found", id)
	}
	if !p.CanRead(lead.OwnerID) {
		return nil, newError(KindForbidden, "lead %s belongs to another user", lead.DisplayID)
	}
	return lead, nil
}

func (s *LeadService) List(ctx context.Context, p authz.Principal, f models.LeadFilter, limit, offset int) ([]*models.Lead, error) {
	if !p.SeesAll() {
		f.OwnerID = p.UserID
	}
	return s.repo.List(ctx, f, limit, offset)
}

func authorizeLeadWrite(p authz.Principal, lead *models.Lead) error {
	if p.CanModify(lead.OwnerID) {
		return nil
	}
	if !p.CanWrite() {
		return newError(KindForbidden, "role %d is read-only", p.RoleID)
	}
	return newError(KindForbidden, "lead %s belongs to another user", lead.DisplayID)
}

// UpdateStatus approves, rejects or reopens a lead.
func (s *LeadService) UpdateStatus(ctx context.Context, p authz.Principal, id int64, to models.LeadApprovalStatus) (*models.Lead, error) {
	if _, known := LeadTransitions[to]; !known {
		return nil, s.reject("lead_status", id, p, newError(KindValidation, "unknown lead status %q", to))
	}
	lead, err := s.repo.Mutate(ctx, id, func(lead *models.Lead) error {
		if err := authorizeLeadWrite(p, lead); err != nil {
			return err
		}
		if lead.Converted {
			return newError(KindLocked, "lead %s is already converted", lead.DisplayID)
		}
		if !canTransition(lead.ApprovalStatus, to, LeadTransitions) {
			return newError(KindInvalidTransition, "cannot change lead status from %s to %s", lead.ApprovalStatus, to)
		}
		lead.ApprovalStatus = to
		return nil
	})
	if err != nil {
		return nil, s.reject("lead_status", id, p, fromRepo(err, "lead"))
	}
	return lead, nil
}

// Convert promotes an approved lead into a new L1 opportunity. The check of
// the converted flag, the insert and the flag flip run as one atomic unit,
// so a repeated call fails with AlreadyConverted and never duplicates.
func (s *LeadService) Convert(ctx context.Context, p authz.Principal, id int64, opportunityDate models.Date) (*models.Lead, *models.OpportunityView, error) {
	if !p.CanWrite() {
		return nil, nil, s.reject("convert", id, p, newError(KindForbidden, "role %d cannot convert leads", p.RoleID))
	}
	// Reserved before the lock; a rejected conversion leaves a gap in the
	// sequence, which is allowed.
	displayID, err := s.ids.Next(ctx, idgen.PrefixOpportunity)
	if err != nil {
		return nil, nil, err
	}
	if opportunityDate.IsZero() {
		opportunityDate = models.NewDate(time.Now())
	}

	lead, opp, err := s.repo.Convert(ctx, id, func(lead *models.Lead) (*models.Opportunity, error) {
		if err := authorizeLeadWrite(p, lead); err != nil {
			return nil, err
		}
		if lead.Converted {
			return nil, newError(KindAlreadyConverted, "lead %s already converted", lead.DisplayID)
		}
		if lead.ApprovalStatus != models.LeadApproved {
			return nil, newError(KindValidation, "lead %s is %s, only Approved leads can be converted", lead.DisplayID, lead.ApprovalStatus)
		}
		leadID := lead.ID
		opp := &models.Opportunity{
			DisplayID:       displayID,
			Title:           lead.Title,
			OwnerID:         lead.OwnerID,
			ExpectedRevenue: lead.ExpectedRevenue,
			Currency:        lead.Currency,
			WinProbability:  models.DefaultWinProbability,
			LeadID:          &leadID,
			Score:           lead.Score,
			Classification:  lead.Classification,
			OpportunityDate: opportunityDate,
			UpdatedBy:       p.UserID,
		}
		opp.SetStage(models.StageProspect)
		opp.RecomputeWeightedRevenue()
		if region := strings.TrimSpace(lead.Company.Region); region != "" {
			opp.StageData.Merge(models.ProspectData{Region: region, Industry: lead.Company.Industry})
		}
		return opp, nil
	})
	if err != nil {
		return nil, nil, s.reject("convert", id, p, fromRepo(err, "lead"))
	}

	metrics.ObserveConversion()
	s.log.WithFields(logrus.Fields{
		"lead":        lead.DisplayID,
		"opportunity": opp.DisplayID,
		"user_id":     p.UserID,
	}).Info("lead converted")
	publish(ctx, s.events, s.log, events.SubjectLeadConverted, events.LeadConvertedEvent{
		EventType:     events.SubjectLeadConverted,
		LeadID:        lead.ID,
		LeadDisplayID: lead.DisplayID,
		OpportunityID: opp.ID,
		DisplayID:     opp.DisplayID,
		ActorID:       p.UserID,
		Timestamp:     time.Now().UTC(),
	})
	return lead, NewView(opp), nil
}

func (s *LeadService) reject(op string, id int64, p authz.Principal, err error) error {
	if kind, ok := KindOf(err); ok {
		metrics.ObserveRejection(op, string(kind))
		s.log.WithFields(logrus.Fields{
			"operation": op,
			"lead_id":   id,
			"user_id":   p.UserID,
			"kind":      kind,
		}).Info(err.Error())
	}
	return err
}
