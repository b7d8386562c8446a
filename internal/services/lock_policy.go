package services

import "salespipeline/internal/models"

// lockThreshold is the stage from which every earlier stage is frozen.
const lockThreshold = models.StageQuotation

// IsStageLocked reports whether the data of stage order may no longer be
// edited. Locked data stays readable.
func IsStageLocked(opp *models.Opportunity, order int) bool {
	if order >= opp.CurrentStage {
		return false
	}
	return opp.CurrentStage >= lockThreshold || opp.HasQuotation || opp.IsTerminal()
}

// LockedStages lists the read-only stage orders in ascending order.
func LockedStages(opp *models.Opportunity) []int {
	out := []int{}
	for order := models.StageProspect; order < opp.CurrentStage; order++ {
		if IsStageLocked(opp, order) {
			out = append(out, order)
		}
	}
	return out
}

// NewView builds the API read model for opp.
func NewView(opp *models.Opportunity) *models.OpportunityView {
	v := &models.OpportunityView{
		Opportunity:  opp,
		StageCode:    models.StageCode(opp.CurrentStage),
		LockedStages: LockedStages(opp),
	}
	if s, ok := models.StageByOrder(opp.CurrentStage); ok {
		v.StageName = s.Name
	}
	return v
}
