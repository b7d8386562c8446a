package models

import "time"

type OpportunityStatus string

const (
	OpportunityActive  OpportunityStatus = "Active"
	OpportunityWon     OpportunityStatus = "Won"
	OpportunityLost    OpportunityStatus = "Lost"
	OpportunityDropped OpportunityStatus = "Dropped"
)

// IsTerminal reports whether s is the status of a terminal catalog stage.
func (s OpportunityStatus) IsTerminal() bool {
	for _, st := range stageCatalog {
		if st.Terminal && StatusForStage(st.Order) == s {
			return true
		}
	}
	return false
}

// StatusForStage derives the status tag from the current stage.
func StatusForStage(order int) OpportunityStatus {
	switch order {
	case StageWon:
		return OpportunityWon
	case StageLost:
		return OpportunityLost
	case StageDropped:
		return OpportunityDropped
	}
	return OpportunityActive
}

// DefaultWinProbability is assigned to every new opportunity.
const DefaultWinProbability = 25.0

type Opportunity struct {
	ID              int64             `json:"id"`
	DisplayID       string            `json:"display_id"`
	Title           string            `json:"title"`
	OwnerID         int               `json:"owner_id"`
	CurrentStage    int               `json:"current_stage"`
	Status          OpportunityStatus `json:"status"`
	StageData       StageDataSet      `json:"stage_data"`
	ExpectedRevenue float64           `json:"expected_revenue"`
	Currency        string            `json:"currency"`
	WinProbability  float64           `json:"win_probability"`
	WeightedRevenue float64           `json:"weighted_revenue"`
	LeadID          *int64            `json:"lead_id,omitempty"`
	Score           int               `json:"score"`
	Classification  string            `json:"classification"`
	HasQuotation    bool              `json:"has_quotation"`
	OpportunityDate Date              `json:"opportunity_date"`
	Version         int               `json:"version"`
	UpdatedBy       int               `json:"updated_by"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RecomputeWeightedRevenue must run on every write touching revenue or
// probability.
func (o *Opportunity) RecomputeWeightedRevenue() {
	o.WeightedRevenue = o.ExpectedRevenue * o.WinProbability / 100
}

// SetStage moves the opportunity to order and re-derives its status.
func (o *Opportunity) SetStage(order int) {
	o.CurrentStage = order
	o.Status = StatusForStage(order)
}

func (o *Opportunity) IsTerminal() bool {
	return IsTerminalStage(o.CurrentStage)
}

func (o *Opportunity) Clone() *Opportunity {
	c := *o
	c.StageData = o.StageData.Clone()
	if o.LeadID != nil {
		id := *o.LeadID
		c.LeadID = &id
	}
	return &c
}

// OpportunityView is the read model returned by the API: the full aggregate
// plus which stages are currently read-only.
type OpportunityView struct {
	*Opportunity
	StageCode    string `json:"stage_code"`
	StageName    string `json:"stage_name"`
	LockedStages []int  `json:"locked_stages"`
}

type OpportunityFilter struct {
	Status  OpportunityStatus
	Stages  []int
	OwnerID int
}

type OpportunityKPIs struct {
	Total                 int     `json:"total"`
	Open                  int     `json:"open"`
	Won                   int     `json:"won"`
	Lost                  int     `json:"lost"`
	Dropped               int     `json:"dropped"`
	PipelineValue         float64 `json:"pipeline_value"`
	WeightedPipelineValue float64 `json:"weighted_pipeline_value"`
	WonValue              float64 `json:"won_value"`
}

// Add folds a single opportunity into the totals.
func (k *OpportunityKPIs) Add(o *Opportunity) {
	k.Total++
	switch o.Status {
	case OpportunityWon:
		k.Won++
		k.WonValue += o.ExpectedRevenue
	case OpportunityLost:
		k.Lost++
	case OpportunityDropped:
		k.Dropped++
	default:
		k.Open++
		k.PipelineValue += o.ExpectedRevenue
		k.WeightedPipelineValue += o.WeightedRevenue
	}
}

// StageTransition is one committed stage change.
type StageTransition struct {
	ID            int64     `json:"id"`
	OpportunityID int64     `json:"opportunity_id"`
	FromStage     int       `json:"from_stage"`
	ToStage       int       `json:"to_stage"`
	ActorID       int       `json:"actor_id"`
	CreatedAt     time.Time `json:"created_at"`
}
