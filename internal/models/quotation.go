package models

import "time"

// Quotation is an opaque reference; line items and pricing live elsewhere.
type Quotation struct {
	ID            int64     `json:"id"`
	DisplayID     string    `json:"display_id"`
	OpportunityID int64     `json:"opportunity_id"`
	Reference     string    `json:"reference,omitempty"`
	Amount        float64   `json:"amount"`
	CreatedBy     int       `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type OrderAcknowledgement struct {
	ID            int64     `json:"id"`
	DisplayID     string    `json:"display_id"`
	OpportunityID int64     `json:"opportunity_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	CreatedBy     int       `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Eligibility is the answer of the order-acknowledgement gate.
type Eligibility struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
