package services

import (
	"context"
	"encoding/json"
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

type OpportunityService struct {
	repo      repositories.OpportunityRepository
	ids       *idgen.Allocator
	validator *StageValidator
	events    events.Publisher
	log       *logrus.Entry
}

func NewOpportunityService(
	repo repositories.OpportunityRepository,
	ids *idgen.Allocator,
	validator *StageValidator,
	pub events.Publisher,
	logger *logrus.Logger,
) *OpportunityService {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &OpportunityService{
		repo:      repo,
		ids:       ids,
		validator: validator,
		events:    pub,
		log:       logger.WithField("component", "opportunity_service"),
	}
}

type CreateOpportunityInput struct {
	Title           string          `json:"title"`
	OwnerID         int             `json:"owner_id"`
	ExpectedRevenue float64         `json:"expected_revenue"`
	Currency        string          `json:"currency"`
	WinProbability  *float64        `json:"win_probability"`
	OpportunityDate models.Date     `json:"opportunity_date"`
	StageData       json.RawMessage `json:"stage_data" swaggertype:"object"`
}

type UpdateOpportunityInput struct {
	Title           *string  `json:"title"`
	OwnerID         *int     `json:"owner_id"`
	ExpectedRevenue *float64 `json:"expected_revenue"`
	Currency        *string  `json:"currency"`
	WinProbability  *float64 `json:"win_probability"`
}

func validateMoney(revenue float64, probability *float64) []string {
	var bad []string
	if revenue < 0 {
		bad = append(bad, "expected_revenue")
	}
	if probability != nil && (*probability < 0 || *probability > 100) {
		bad = append(bad, "win_probability")
	}
	return bad
}

// Create opens an opportunity directly at L1, bypassing lead conversion.
// An optional L1 draft may be supplied; it is not checked for completeness.
func (s *OpportunityService) Create(ctx context.Context, p authz.Principal, in CreateOpportunityInput) (*models.OpportunityView, error) {
	if !p.CanWrite() {
		return nil, s.reject("create", 0, p, newError(KindForbidden, "role %d cannot create opportunities", p.RoleID))
	}
	bad := validateMoney(in.ExpectedRevenue, in.WinProbability)
	if strings.TrimSpace(in.Title) == "" {
		bad = append([]string{"title"}, bad...)
	}
	if len(bad) > 0 {
		return nil, s.reject("create", 0, p, &Error{Kind: KindValidation, Message: "invalid opportunity", Details: bad})
	}

	var draft models.StagePayload
	if len(in.StageData) > 0 {
		d, err := models.DecodeStagePayload(models.StageProspect, in.StageData)
		if err != nil {
			return nil, s.reject("create", 0, p, newError(KindValidation, "%s", err.Error()))
		}
		draft = d
	}

	owner := p.UserID
	if in.OwnerID > 0 && authz.IsElevated(p.RoleID) {
		owner = in.OwnerID
	}
	displayID, err := s.ids.Next(ctx, idgen.PrefixOpportunity)
	if err != nil {
		return nil, err
	}

	opp := &models.Opportunity{
		DisplayID:       displayID,
		Title:           strings.TrimSpace(in.Title),
		OwnerID:         owner,
		ExpectedRevenue: in.ExpectedRevenue,
		Currency:        strings.ToUpper(strings.TrimSpace(in.Currency)),
		WinProbability:  models.DefaultWinProbability,
		OpportunityDate: in.OpportunityDate,
		UpdatedBy:       p.UserID,
	}
	if in.WinProbability != nil {
		opp.WinProbability = *in.WinProbability
	}
	if opp.OpportunityDate.IsZero() {
		opp.OpportunityDate = models.NewDate(time.Now())
	}
	opp.SetStage(models.StageProspect)
	opp.RecomputeWeightedRevenue()
	if draft != nil {
		opp.StageData.Merge(draft)
	}

	if err := s.repo.Create(ctx, opp); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"opportunity": opp.DisplayID, "owner_id": owner}).Info("opportunity created")
	return NewView(opp), nil
}

func (s *OpportunityService) load(ctx context.Context, p authz.Principal, id int64) (*models.Opportunity, error) {
	opp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, newError(KindNotFound, "opportunity %d not found", id)
	}
	if !p.CanRead(opp.OwnerID) {
		return nil, newError(KindForbidden, "opportunity %s belongs to another user", opp.DisplayID)
	}
	return opp, nil
}

// Get returns the whole aggregate, including data of locked stages.
func (s *OpportunityService) Get(ctx context.Context, p authz.Principal, id int64) (*models.OpportunityView, error) {
	opp, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return NewView(opp), nil
}

func (s *OpportunityService) scope(p authz.Principal, f models.OpportunityFilter) models.OpportunityFilter {
	if !p.SeesAll() {
		f.OwnerID = p.UserID
	}
	return f
}

// List returns one page and the total number of matching rows.
func (s *OpportunityService) List(ctx context.Context, p authz.Principal, f models.OpportunityFilter, limit, offset int) ([]*models.OpportunityView, int, error) {
	f = s.scope(p, f)
	opps, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*models.OpportunityView, 0, len(opps))
	for _, o := range opps {
		out = append(out, NewView(o))
	}
	return out, total, nil
}

// KPIs aggregates over exactly the rows List would return for f.
func (s *OpportunityService) KPIs(ctx context.Context, p authz.Principal, f models.OpportunityFilter) (*models.OpportunityKPIs, error) {
	return s.repo.KPIs(ctx, s.scope(p, f))
}

func (s *OpportunityService) Update(ctx context.Context, p authz.Principal, id int64, in UpdateOpportunityInput) (*models.OpportunityView, error) {
	var revenue float64
	if in.ExpectedRevenue != nil {
		revenue = *in.ExpectedRevenue
	}
	bad := validateMoney(revenue, in.WinProbability)
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		bad = append([]string{"title"}, bad...)
	}
	if len(bad) > 0 {
		return nil, s.reject("update", id, p, &Error{Kind: KindValidation, Message: "invalid opportunity", Details: bad})
	}

	opp, err := s.repo.Mutate(ctx, id, func(opp *models.Opportunity) error {
		if err := authorizeWrite(p, opp); err != nil {
			return err
		}
		if opp.IsTerminal() {
			return newError(KindLocked, "opportunity %s is %s and read-only", opp.DisplayID, opp.Status)
		}
		if in.Title != nil {
			opp.Title = strings.TrimSpace(*in.Title)
		}
		if in.OwnerID != nil && authz.IsElevated(p.RoleID) {
			opp.OwnerID = *in.OwnerID
		}
		if in.ExpectedRevenue != nil {
			opp.ExpectedRevenue = *in.ExpectedRevenue
		}
		if in.Currency != nil {
			opp.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
		}
		if in.WinProbability != nil {
			opp.WinProbability = *in.WinProbability
		}
		opp.RecomputeWeightedRevenue()
		opp.UpdatedBy = p.UserID
		return nil
	})
	if err != nil {
		return nil, s.reject("update", id, p, fromRepo(err, "opportunity"))
	}
	return NewView(opp), nil
}

func (s *OpportunityService) History(ctx context.Context, p authz.Principal, id int64) ([]models.StageTransition, error) {
	if _, err := s.load(ctx, p, id); err != nil {
		return nil, err
	}
	h, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = []models.StageTransition{}
	}
	return h, nil
}

func authorizeWrite(p authz.Principal, opp *models.Opportunity) error {
	if !p.CanModify(opp.OwnerID) {
		if !p.CanWrite() {
			return newError(KindForbidden, "role %d is read-only", p.RoleID)
		}
		return newError(KindForbidden, "opportunity %s belongs to another user", opp.DisplayID)
	}
	return nil
}

// reject counts and logs business rejections, then hands err back.
func (s *OpportunityService) reject(op string, id int64, p authz.Principal, err error) error {
	if kind, ok := KindOf(err); ok {
		metrics.ObserveRejection(op, string(kind))
		s.log.WithFields(logrus.Fields{
			"operation":      op,
			"opportunity_id": id,
			"user_id":        p.UserID,
			"kind":           kind,
		}).Info(err.Error())
	}
	return err
}

func publish(ctx context.Context, pub events.Publisher, log *logrus.Entry, subject string, event interface{}) {
	if err := pub.Publish(ctx, subject, event); err != nil {
		log.WithError(err).WithField("subject", subject).Warn("event publish failed")
	}
}
