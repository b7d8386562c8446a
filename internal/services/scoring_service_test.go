package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"salespipeline/internal/models"
)

func TestScoreLargeDomesticCompanyIsHot(t *testing.T) {
	p := models.CompanyProfile{
		Name:          "Mahalaxmi Steel",
		AnnualRevenue: 15_000_000,
		EmployeeCount: 1500,
		IsDomestic:    true,
		GSTNumber:     "27AAPFU0939F1Z5",
	}
	score := Score(p)
	assert.GreaterOrEqual(t, score, 70)
	assert.Equal(t, ClassHot, Classify(score))
}

func TestScoreSmallCompanyIsCold(t *testing.T) {
	p := models.CompanyProfile{
		Name:          "Mahalaxmi Steel",
		AnnualRevenue: 50_000,
		EmployeeCount: 10,
		IsDomestic:    true,
		GSTNumber:     "27AAPFU0939F1Z5",
	}
	score := Score(p)
	assert.Less(t, score, 70)
	assert.Equal(t, ClassCold, Classify(score))
}

func TestScoreComponents(t *testing.T) {
	cases := []struct {
		name    string
		profile models.CompanyProfile
		want    int
	}{
		{"empty international", models.CompanyProfile{}, 2 + 4 + 10},
		{"domestic without registration", models.CompanyProfile{IsDomestic: true}, 2 + 4},
		{"domestic with both numbers", models.CompanyProfile{IsDomestic: true, GSTNumber: "g", PANNumber: "p"}, 2 + 4 + 15},
		{"mid size", models.CompanyProfile{EmployeeCount: 250, AnnualRevenue: 1_000_000}, 22 + 25 + 10},
		{"small", models.CompanyProfile{EmployeeCount: 50, AnnualRevenue: 100_000}, 14 + 12 + 10},
		{"everything", models.CompanyProfile{
			EmployeeCount: 5000, AnnualRevenue: 1e9, IsDomestic: true,
			GSTNumber: "g", PANNumber: "p", Industry: "steel", Region: "west",
		}, 90},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.profile))
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	p := models.CompanyProfile{EmployeeCount: 300, AnnualRevenue: 2_500_000, Industry: "pharma"}
	first := Score(p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(p))
	}
}

func TestClassifyBoundary(t *testing.T) {
	assert.Equal(t, ClassCold, Classify(69))
	assert.Equal(t, ClassHot, Classify(70))
}

func TestValidateCompanyProfile(t *testing.T) {
	err := ValidateCompanyProfile(models.CompanyProfile{Name: "Acme", IsDomestic: true})
	e := requireKind(t, err, KindValidation)
	assert.Equal(t, []string{"gst_number", "pan_number"}, e.Details)

	assert.NoError(t, ValidateCompanyProfile(models.CompanyProfile{Name: "Acme", IsDomestic: true, PANNumber: "AAPFU0939F"}))
	assert.NoError(t, ValidateCompanyProfile(models.CompanyProfile{Name: "Acme GmbH"}))

	err = ValidateCompanyProfile(models.CompanyProfile{EmployeeCount: -1})
	e = requireKind(t, err, KindValidation)
	assert.Equal(t, []string{"name", "employee_count"}, e.Details)
}
