package models

import "time"

// CompanyProfile carries the attributes that feed lead/company scoring.
type CompanyProfile struct {
	Name          string  `json:"name"`
	EmployeeCount int     `json:"employee_count"`
	AnnualRevenue float64 `json:"annual_revenue"`
	IsDomestic    bool    `json:"is_domestic"`
	GSTNumber     string  `json:"gst_number,omitempty"`
	PANNumber     string  `json:"pan_number,omitempty"`
	Industry      string  `json:"industry,omitempty"`
	Region        string  `json:"region,omitempty"`
}

type Company struct {
	ID int64 `json:"id"`
	CompanyProfile
	Score          int       `json:"score"`
	Classification string    `json:"classification"`
	CreatedAt      time.Time `json:"created_at"`
}
