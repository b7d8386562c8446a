package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespipeline/internal/models"
)

func newOpp(stage int) *models.Opportunity {
	o := &models.Opportunity{DisplayID: "OPP-0000001", Title: "t", OwnerID: 7, ExpectedRevenue: 1000, WinProbability: 25}
	o.SetStage(stage)
	o.RecomputeWeightedRevenue()
	return o
}

func TestMemoryMutateRecordsHistoryOnStageChange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := store.Opportunities()
	opp := newOpp(models.StageProspect)
	require.NoError(t, repo.Create(ctx, opp))
	assert.Equal(t, 1, opp.Version)

	got, err := repo.Mutate(ctx, opp.ID, func(o *models.Opportunity) error {
		o.Title = "renamed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	got, err = repo.Mutate(ctx, opp.ID, func(o *models.Opportunity) error {
		o.SetStage(models.StageQualification)
		o.UpdatedBy = 9
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)

	history, err := repo.History(ctx, opp.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StageProspect, history[0].FromStage)
	assert.Equal(t, models.StageQualification, history[0].ToStage)
	assert.Equal(t, 9, history[0].ActorID)
}

func TestMemoryMutateErrorLeavesRowUntouched(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Opportunities()
	opp := newOpp(models.StageProspect)
	require.NoError(t, repo.Create(ctx, opp))

	boom := errors.New("boom")
	_, err := repo.Mutate(ctx, opp.ID, func(o *models.Opportunity) error {
		o.Title = "half written"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.GetByID(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", stored.Title)
	assert.Equal(t, 1, stored.Version)

	_, err = repo.Mutate(ctx, 404, func(*models.Opportunity) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Opportunities()
	opp := newOpp(models.StageProspect)
	require.NoError(t, repo.Create(ctx, opp))

	got, err := repo.GetByID(ctx, opp.ID)
	require.NoError(t, err)
	got.Title = "mutated outside"

	again, err := repo.GetByID(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", again.Title)

	missing, err := repo.GetByID(ctx, 99)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryHasQuotationIsDerived(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	opp := newOpp(models.StageProposal)
	require.NoError(t, store.Opportunities().Create(ctx, opp))

	got, _ := store.Opportunities().GetByID(ctx, opp.ID)
	assert.False(t, got.HasQuotation)

	require.NoError(t, store.Quotations().Create(ctx, &models.Quotation{DisplayID: "QUO-0000001", OpportunityID: opp.ID}, nil))
	got, _ = store.Opportunities().GetByID(ctx, opp.ID)
	assert.True(t, got.HasQuotation)

	q, err := store.Quotations().GetByDisplayID(ctx, "QUO-0000001")
	require.NoError(t, err)
	assert.Equal(t, opp.ID, q.OpportunityID)

	err = store.Quotations().Create(ctx, &models.Quotation{OpportunityID: 55}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGuardRejectsChildInsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	opp := newOpp(models.StageLost)
	require.NoError(t, store.Opportunities().Create(ctx, opp))

	denied := errors.New("terminal")
	err := store.OrderAcks().Create(ctx, &models.OrderAcknowledgement{OpportunityID: opp.ID}, func(o *models.Opportunity) error {
		if o.Status.IsTerminal() {
			return denied
		}
		return nil
	})
	assert.ErrorIs(t, err, denied)

	list, err := store.OrderAcks().ListByOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryConvertIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	lead := &models.Lead{DisplayID: "LEAD-0000001", OwnerID: 7, ApprovalStatus: models.LeadApproved}
	require.NoError(t, store.Leads().Create(ctx, lead))

	rejected := errors.New("not allowed")
	_, _, err := store.Leads().Convert(ctx, lead.ID, func(*models.Lead) (*models.Opportunity, error) {
		return nil, rejected
	})
	assert.ErrorIs(t, err, rejected)
	n, _ := store.Opportunities().Count(ctx, models.OpportunityFilter{})
	assert.Zero(t, n)

	converted, opp, err := store.Leads().Convert(ctx, lead.ID, func(l *models.Lead) (*models.Opportunity, error) {
		o := newOpp(models.StageProspect)
		o.LeadID = &l.ID
		return o, nil
	})
	require.NoError(t, err)
	assert.True(t, converted.Converted)
	require.NotNil(t, converted.OpportunityID)
	assert.Equal(t, opp.ID, *converted.OpportunityID)

	stored, _ := store.Leads().GetByID(ctx, lead.ID)
	assert.True(t, stored.Converted)
}

func TestMemoryListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Opportunities()
	for _, stage := range []int{1, 2, 2, 3, models.StageWon} {
		require.NoError(t, repo.Create(ctx, newOpp(stage)))
	}

	f := models.OpportunityFilter{Stages: []int{2, 3}}
	n, err := repo.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	first, err := repo.List(ctx, f, 2, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Greater(t, first[0].ID, first[1].ID)

	rest, err := repo.List(ctx, f, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	kpis, err := repo.KPIs(ctx, models.OpportunityFilter{Status: models.OpportunityWon})
	require.NoError(t, err)
	assert.Equal(t, 1, kpis.Total)
	assert.Equal(t, 1, kpis.Won)
	assert.Equal(t, 1000.0, kpis.WonValue)
}
