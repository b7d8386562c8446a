package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOrderAcknowledgement(t *testing.T) {
	g := NewDocumentGenerator("", "")

	out, err := g.RenderOrderAcknowledgement(OrderAckData{
		DisplayID:        "ORD-0000001",
		OpportunityID:    "OPP-0000001",
		OpportunityTitle: "Plant automation",
		Amount:           125000,
		Currency:         "INR",
		PONumber:         "PO-77",
		PODate:           "2026-01-15",
		QuotationID:      "QUO-0000001",
		CreatedAt:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}

func TestNewDocumentGeneratorDefaults(t *testing.T) {
	g := NewDocumentGenerator("", "")
	assert.Equal(t, "Helvetica", g.fontName)
	assert.Equal(t, "Sales Pipeline", g.Company)

	g = NewDocumentGenerator("assets/fonts/DejaVuSans.ttf", "Acme")
	assert.Equal(t, "DejaVu", g.fontName)
	assert.Equal(t, "Acme", g.Company)
}
