package services

import "salespipeline/internal/models"

// LeadTransitions lists the approval moves allowed from each status.
// Conversion is not a status; it is the separate converted flag.
var LeadTransitions = map[models.LeadApprovalStatus]map[models.LeadApprovalStatus]bool{
	models.LeadPending:  {models.LeadApproved: true, models.LeadRejected: true},
	models.LeadApproved: {models.LeadRejected: true},
	models.LeadRejected: {models.LeadPending: true},
}

func canTransition(current, to models.LeadApprovalStatus, table map[models.LeadApprovalStatus]map[models.LeadApprovalStatus]bool) bool {
	if current == "" {
		return to == models.LeadPending
	}
	nexts, ok := table[current]
	if !ok {
		return false
	}
	return nexts[to]
}
