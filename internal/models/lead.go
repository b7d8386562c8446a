package models

import "time"

type LeadApprovalStatus string

const (
	LeadPending  LeadApprovalStatus = "Pending"
	LeadApproved LeadApprovalStatus = "Approved"
	LeadRejected LeadApprovalStatus = "Rejected"
)

type Lead struct {
	ID              int64              `json:"id"`
	DisplayID       string             `json:"display_id"`
	Title           string             `json:"title"`
	OwnerID         int                `json:"owner_id"`
	Company         CompanyProfile     `json:"company"`
	ExpectedRevenue float64            `json:"expected_revenue"`
	Currency        string             `json:"currency"`
	ApprovalStatus  LeadApprovalStatus `json:"approval_status"`
	Score           int                `json:"score"`
	Classification  string             `json:"classification"`
	Converted       bool               `json:"converted"`
	OpportunityID   *int64             `json:"opportunity_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (l *Lead) Clone() *Lead {
	c := *l
	if l.OpportunityID != nil {
		id := *l.OpportunityID
		c.OpportunityID = &id
	}
	return &c
}

type LeadFilter struct {
	ApprovalStatus LeadApprovalStatus
	OwnerID        int
	Converted      *bool
}
