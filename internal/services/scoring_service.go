package services

import (
	"strings"

	"salespipeline/internal/models"
)

const (
	ClassHot  = "hot"
	ClassCold = "cold"

	hotThreshold = 70
)

// Score rates a company profile from 0 to 100. It is pure: the same profile
// always yields the same score.
func Score(p models.CompanyProfile) int {
	score := employeePoints(p.EmployeeCount) + revenuePoints(p.AnnualRevenue) + compliancePoints(p)
	if strings.TrimSpace(p.Industry) != "" {
		score += 5
	}
	if strings.TrimSpace(p.Region) != "" {
		score += 5
	}
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

func employeePoints(n int) int {
	switch {
	case n >= 1000:
		return 30
	case n >= 250:
		return 22
	case n >= 50:
		return 14
	case n >= 10:
		return 6
	}
	return 2
}

func revenuePoints(rev float64) int {
	switch {
	case rev >= 10_000_000:
		return 35
	case rev >= 1_000_000:
		return 25
	case rev >= 100_000:
		return 12
	}
	return 4
}

// compliancePoints rewards complete tax registration for domestic
// companies. International companies get a flat share.
func compliancePoints(p models.CompanyProfile) int {
	if !p.IsDomestic {
		return 10
	}
	gst := strings.TrimSpace(p.GSTNumber) != ""
	pan := strings.TrimSpace(p.PANNumber) != ""
	switch {
	case gst && pan:
		return 15
	case gst || pan:
		return 10
	}
	return 0
}

func Classify(score int) string {
	if score >= hotThreshold {
		return ClassHot
	}
	return ClassCold
}

// ValidateCompanyProfile enforces the domestic registration rule along with
// basic shape checks.
func ValidateCompanyProfile(p models.CompanyProfile) error {
	var bad []string
	if strings.TrimSpace(p.Name) == "" {
		bad = append(bad, "name")
	}
	if p.EmployeeCount < 0 {
		bad = append(bad, "employee_count")
	}
	if p.AnnualRevenue < 0 {
		bad = append(bad, "annual_revenue")
	}
	if len(bad) > 0 {
		return &Error{Kind: KindValidation, Message: "invalid company profile", Details: bad}
	}
	if p.IsDomestic && strings.TrimSpace(p.GSTNumber) == "" && strings.TrimSpace(p.PANNumber) == "" {
		return &Error{
			Kind:    KindValidation,
			Message: "domestic company requires a GST or PAN number",
			Details: []string{"gst_number", "pan_number"},
		}
	}
	return nil
}
