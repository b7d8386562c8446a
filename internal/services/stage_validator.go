package services

import (
	"context"
	"strings"

	"salespipeline/internal/models"
	"salespipeline/internal/repositories"
)

// StageValidator checks stage records for completeness. L4 is checked by
// existence of the referenced quotation rather than by shape.
type StageValidator struct {
	quotations repositories.QuotationRepository
}

func NewStageValidator(quotations repositories.QuotationRepository) *StageValidator {
	return &StageValidator{quotations: quotations}
}

// StageRules is a validator bound to one opportunity. It is loaded before
// the aggregate is locked and is safe to use inside a repository mutation.
type StageRules struct {
	quotationIDs map[string]struct{}
}

// Load prepares the rules for opportunityID. Quotations are never deleted,
// so the loaded set can only be a subset of what exists at commit time.
func (v *StageValidator) Load(ctx context.Context, opportunityID int64) (*StageRules, error) {
	rules := &StageRules{quotationIDs: map[string]struct{}{}}
	if v == nil || v.quotations == nil {
		return rules, nil
	}
	qs, err := v.quotations.ListByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	for _, q := range qs {
		rules.quotationIDs[q.DisplayID] = struct{}{}
	}
	return rules, nil
}

// Validate returns an IncompleteData error naming the missing fields of p,
// or nil when p is complete.
func (r *StageRules) Validate(p models.StagePayload) error {
	if p == nil {
		return nil
	}
	code := models.StageCode(p.StageOrder())
	if missing := p.MissingFields(); len(missing) > 0 {
		return incompleteData(code, missing)
	}
	if sel, ok := p.(models.QuotationSelection); ok {
		id := strings.TrimSpace(sel.QuotationID)
		if _, found := r.quotationIDs[id]; !found {
			return &Error{
				Kind:    KindIncompleteData,
				Message: "quotation " + id + " does not exist for this opportunity",
				Details: []string{"quotation_id"},
			}
		}
	}
	return nil
}
