package models

import "fmt"

// Stage is an immutable entry of the pipeline catalog.
type Stage struct {
	Order    int    `json:"order"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Terminal bool   `json:"terminal"`
}

const (
	StageProspect      = 1
	StageQualification = 2
	StageProposal      = 3
	StageQuotation     = 4
	StagePurchaseOrder = 5
	StageWon           = 6
	StageLost          = 7
	StageDropped       = 8
)

var stageCatalog = [...]Stage{
	{Order: StageProspect, Code: "L1", Name: "Prospect"},
	{Order: StageQualification, Code: "L2", Name: "Qualification"},
	{Order: StageProposal, Code: "L3", Name: "Proposal"},
	{Order: StageQuotation, Code: "L4", Name: "Quotation"},
	{Order: StagePurchaseOrder, Code: "L5", Name: "Purchase Order"},
	{Order: StageWon, Code: "L6", Name: "Won", Terminal: true},
	{Order: StageLost, Code: "L7", Name: "Lost", Terminal: true},
	{Order: StageDropped, Code: "L8", Name: "Dropped", Terminal: true},
}

// Stages returns a copy of the catalog in order.
func Stages() []Stage {
	out := make([]Stage, len(stageCatalog))
	copy(out, stageCatalog[:])
	return out
}

func ValidStage(order int) bool {
	return order >= StageProspect && order <= StageDropped
}

func StageByOrder(order int) (Stage, bool) {
	if !ValidStage(order) {
		return Stage{}, false
	}
	return stageCatalog[order-1], true
}

// StageCode renders an order as "L<n>", also for orders outside the catalog,
// so that rejection messages can name whatever the caller asked for.
func StageCode(order int) string {
	if s, ok := StageByOrder(order); ok {
		return s.Code
	}
	return fmt.Sprintf("L%d", order)
}

// NextStage returns the stage that follows order in the catalog. Terminal
// and unknown orders have no successor.
func NextStage(order int) (int, bool) {
	s, ok := StageByOrder(order)
	if !ok || s.Terminal {
		return 0, false
	}
	return order + 1, true
}

func IsTerminalStage(order int) bool {
	s, ok := StageByOrder(order)
	return ok && s.Terminal
}
