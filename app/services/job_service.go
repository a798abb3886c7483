package services

import (
	"errors"
	"fmt"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/logger"
	"github.com/kgyan/makola/pkg/metrics"
	"gorm.io/gorm"
)

// JobService manages the shopper job pool. Claiming is first-write-wins:
// two shoppers racing for the same job resolve at the database, exactly
// one succeeds.
type JobService struct {
	jobs    *repositories.JobRepository
	markets *repositories.MarketRepository
}

func NewJobService() *JobService {
	return &JobService{
		jobs:    repositories.NewJobRepository(),
		markets: repositories.NewMarketRepository(),
	}
}

func (s *JobService) shopperFor(userID uint) (models.Shopper, error) {
	shopper, err := s.markets.ShopperForUser(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shopper, fmt.Errorf("%w: no shopper profile", apperr.ErrForbidden)
	}
	if err != nil {
		return shopper, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !shopper.Active {
		return shopper, fmt.Errorf("%w: shopper profile deactivated", apperr.ErrForbidden)
	}
	return shopper, nil
}

// Available lists unclaimed jobs, oldest first.
func (s *JobService) Available(userID uint) ([]models.ShopperJob, error) {
	if _, err := s.shopperFor(userID); err != nil {
		return nil, err
	}
	return s.jobs.Available()
}

// Accept claims a job for the caller's shopper profile. Losing the claim
// race reports Conflict, never a silent reassignment.
func (s *JobService) Accept(userID, jobID uint) (models.ShopperJob, error) {
	shopper, err := s.shopperFor(userID)
	if err != nil {
		return models.ShopperJob{}, err
	}

	if _, err := s.jobs.FindByID(jobID); errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ShopperJob{}, fmt.Errorf("%w: job %d", apperr.ErrNotFound, jobID)
	} else if err != nil {
		return models.ShopperJob{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	ok, err := s.jobs.Claim(jobID, shopper.ID)
	if err != nil {
		return models.ShopperJob{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !ok {
		metrics.JobAccepts.WithLabelValues("lost").Inc()
		return models.ShopperJob{}, apperr.Conflictf("job %d is no longer available", jobID)
	}

	metrics.JobAccepts.WithLabelValues("won").Inc()
	logger.Info("job claimed", "job", jobID, "shopper", shopper.ID)
	return s.jobs.FindByID(jobID)
}

// Complete closes the caller's own claimed job. The order itself completes
// through its own lifecycle; this only settles the shopper's side.
func (s *JobService) Complete(userID, jobID uint) (models.ShopperJob, error) {
	shopper, err := s.shopperFor(userID)
	if err != nil {
		return models.ShopperJob{}, err
	}

	ok, err := s.jobs.Complete(jobID, shopper.ID)
	if err != nil {
		return models.ShopperJob{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !ok {
		return models.ShopperJob{}, apperr.Conflictf("job %d is not claimed by the caller or already settled", jobID)
	}

	logger.Info("job settled", "job", jobID, "shopper", shopper.ID)
	return s.jobs.FindByID(jobID)
}
