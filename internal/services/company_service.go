package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"salespipeline/internal/authz"
	"salespipeline/internal/models"
	"salespipeline/internal/repositories"
)

type CompanyService struct {
	repo repositories.CompanyRepository
	log  *logrus.Entry
}

func NewCompanyService(repo repositories.CompanyRepository, logger *logrus.Logger) *CompanyService {
	return &CompanyService{repo: repo, log: logger.WithField("component", "company_service")}
}

func (s *CompanyService) Create(ctx context.Context, p authz.Principal, profile models.CompanyProfile) (*models.Company, error) {
	if !p.CanWrite() {
		return nil, newError(KindForbidden, "role %d cannot create companies", p.RoleID)
	}
	if err := ValidateCompanyProfile(profile); err != nil {
		s.log.WithField("user_id", p.UserID).Info(err.Error())
		return nil, err
	}
	profile.Name = strings.TrimSpace(profile.Name)
	score := Score(profile)
	c := &models.Company{
		CompanyProfile: profile,
		Score:          score,
		Classification: Classify(score),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompanyService) Get(ctx context.Context, id int64) (*models.Company, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newError(KindNotFound, "company %d not found", id)
	}
	return c, nil
}

func (s *CompanyService) List(ctx context.Context, limit, offset int) ([]*models.Company, error) {
	return s.repo.List(ctx, limit, offset)
}
