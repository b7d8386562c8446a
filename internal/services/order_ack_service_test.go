package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespipeline/internal/idgen"
	"salespipeline/internal/models"
)

func TestEligibilityFollowsWonStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.newOpportunity(t, 1000)
	f.advanceTo(t, opp.ID, models.StageWon)

	e := f.acks.CanCreateOrderAcknowledgement(ctx, opp.ID)
	assert.True(t, e.Valid)
	assert.Empty(t, e.Errors)

	_, err := f.store.Opportunities().Mutate(ctx, opp.ID, func(o *models.Opportunity) error {
		o.Status = models.OpportunityActive
		return nil
	})
	require.NoError(t, err)

	e = f.acks.CanCreateOrderAcknowledgement(ctx, opp.ID)
	assert.False(t, e.Valid)
	require.Len(t, e.Errors, 1)
	assert.Contains(t, e.Errors[0], "Won opportunities")
}

func TestEligibilityForUnknownOpportunity(t *testing.T) {
	f := newFixture(t)
	e := f.acks.CanCreateOrderAcknowledgement(context.Background(), 777)
	assert.False(t, e.Valid)
	assert.Equal(t, []string{"opportunity not found"}, e.Errors)
}

func TestCreateOrderAcknowledgement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.newOpportunity(t, 100000)

	_, err := f.acks.Create(ctx, sales, opp.ID, CreateOrderAckInput{})
	e := requireKind(t, err, KindValidation)
	require.Len(t, e.Details, 1)

	f.advanceTo(t, opp.ID, models.StageWon)
	oa, err := f.acks.Create(ctx, sales, opp.ID, CreateOrderAckInput{})
	require.NoError(t, err)
	assert.True(t, idgen.Valid(idgen.PrefixOrderAck, oa.DisplayID), oa.DisplayID)
	assert.Equal(t, 90000.0, oa.Amount, "falls back to the PO amount")
	assert.Equal(t, "INR", oa.Currency)

	amount := 1234.5
	explicit, err := f.acks.Create(ctx, sales, opp.ID, CreateOrderAckInput{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, amount, explicit.Amount)

	list, err := f.acks.ListByOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.acks.Create(ctx, otherSales, opp.ID, CreateOrderAckInput{})
	requireKind(t, err, KindForbidden)
	_, err = f.acks.Create(ctx, sales, 4040, CreateOrderAckInput{})
	requireKind(t, err, KindNotFound)
}

func TestOrderAcknowledgementPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.newOpportunity(t, 100000)
	f.advanceTo(t, opp.ID, models.StageWon)
	oa, err := f.acks.Create(ctx, sales, opp.ID, CreateOrderAckInput{})
	require.NoError(t, err)

	doc, got, err := f.acks.PDF(ctx, sales, oa.ID)
	require.NoError(t, err)
	assert.Equal(t, oa.DisplayID, got.DisplayID)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

	_, _, err = f.acks.PDF(ctx, otherSales, oa.ID)
	requireKind(t, err, KindForbidden)
	_, _, err = f.acks.Get(ctx, sales, 999)
	requireKind(t, err, KindNotFound)
}

func TestQuotationOnTerminalOpportunityIsLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.newOpportunity(t, 1000)
	_, err := f.opps.Close(ctx, sales, opp.ID, OutcomeDropped, "duplicate")
	require.NoError(t, err)

	_, err = f.quotes.Create(ctx, sales, opp.ID, CreateQuotationInput{Amount: 10})
	requireKind(t, err, KindLocked)

	_, err = f.quotes.Create(ctx, sales, 5050, CreateQuotationInput{})
	requireKind(t, err, KindNotFound)

	other := f.newOpportunity(t, 1000)
	q, err := f.quotes.Create(ctx, sales, other.ID, CreateQuotationInput{Reference: "  rev B "})
	require.NoError(t, err)
	assert.True(t, idgen.Valid(idgen.PrefixQuotation, q.DisplayID))
	assert.Equal(t, "rev B", q.Reference)
}
