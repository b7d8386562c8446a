package services

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"salespipeline/internal/authz"
	"salespipeline/internal/events"
	"salespipeline/internal/idgen"
	"salespipeline/internal/models"
	"salespipeline/internal/pdf"
	"salespipeline/internal/repositories"
)

var (
	sales      = authz.Principal{UserID: 7, RoleID: authz.RoleSales}
	otherSales = authz.Principal{UserID: 8, RoleID: authz.RoleSales}
	manager    = authz.Principal{UserID: 1, RoleID: authz.RoleManagement}
	auditor    = authz.Principal{UserID: 2, RoleID: authz.RoleAudit}
)

const (
	prospectJSON      = `{"region":"West","product_interest":"Automation","representative_ids":[7]}`
	qualificationJSON = `{"scorecard":{"budget":"approved","authority":"CFO","need":"capacity","timeline":"Q3"}}`
	proposalJSON      = `{"proposal_documents":["proposal-v1.pdf"],"submission_date":"2026-03-01"}`
	purchaseOrderJSON = `{"po_number":"PO-1001","po_date":"2026-04-01","po_amount":90000}`
)

type fixture struct {
	store     *repositories.MemoryStore
	events    *events.Recorder
	opps      *OpportunityService
	leads     *LeadService
	companies *CompanyService
	quotes    *QuotationService
	acks      *OrderAckService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := repositories.NewMemoryStore()
	ids := idgen.NewAllocator(store)
	rec := &events.Recorder{}
	validator := NewStageValidator(store.Quotations())

	return &fixture{
		store:     store,
		events:    rec,
		opps:      NewOpportunityService(store.Opportunities(), ids, validator, rec, logger),
		leads:     NewLeadService(store.Leads(), ids, rec, logger),
		companies: NewCompanyService(store.Companies(), logger),
		quotes:    NewQuotationService(store.Quotations(), ids, logger),
		acks:      NewOrderAckService(store.OrderAcks(), store.Opportunities(), ids, pdf.NewDocumentGenerator("", ""), logger),
	}
}

func (f *fixture) newOpportunity(t *testing.T, revenue float64) *models.OpportunityView {
	t.Helper()
	v, err := f.opps.Create(context.Background(), sales, CreateOpportunityInput{
		Title:           "Line automation",
		ExpectedRevenue: revenue,
		Currency:        "inr",
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) advance(t *testing.T, id int64, target int, data string) *models.OpportunityView {
	t.Helper()
	v, err := f.opps.RequestTransition(context.Background(), sales, id, target, json.RawMessage(data))
	require.NoError(t, err)
	require.Equal(t, target, v.CurrentStage)
	return v
}

func (f *fixture) addQuotation(t *testing.T, oppID int64) *models.Quotation {
	t.Helper()
	q, err := f.quotes.Create(context.Background(), sales, oppID, CreateQuotationInput{Reference: "rev A", Amount: 95000})
	require.NoError(t, err)
	return q
}

// advanceTo walks a fresh opportunity through complete stages up to target.
func (f *fixture) advanceTo(t *testing.T, id int64, target int) *models.OpportunityView {
	t.Helper()
	var v *models.OpportunityView
	for stage := models.StageProspect; stage < target; stage++ {
		var data string
		switch stage {
		case models.StageProspect:
			data = prospectJSON
		case models.StageQualification:
			data = qualificationJSON
		case models.StageProposal:
			data = proposalJSON
		case models.StageQuotation:
			q := f.addQuotation(t, id)
			data = `{"quotation_id":"` + q.DisplayID + `"}`
		case models.StagePurchaseOrder:
			data = purchaseOrderJSON
		}
		v = f.advance(t, id, stage+1, data)
	}
	return v
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, kind, e.Kind, "unexpected error: %v", err)
	return e
}
