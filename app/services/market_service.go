package services

import (
	"errors"
	"fmt"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/pkg/apperr"
	"gorm.io/gorm"
)

// MarketService is the read-only browse surface: markets and the stalls
// trading in them.
type MarketService struct {
	markets *repositories.MarketRepository
}

func NewMarketService() *MarketService {
	return &MarketService{markets: repositories.NewMarketRepository()}
}

// List returns all markets.
func (s *MarketService) List() ([]models.Market, error) {
	markets, err := s.markets.ListMarkets()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	return markets, nil
}

// Find returns one market with its vendors.
func (s *MarketService) Find(marketID uint) (models.Market, []models.Vendor, error) {
	market, err := s.markets.FindMarket(marketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Market{}, nil, fmt.Errorf("%w: market %d", apperr.ErrNotFound, marketID)
	}
	if err != nil {
		return models.Market{}, nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	vendors, err := s.markets.VendorsForMarket(marketID)
	if err != nil {
		return models.Market{}, nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	return market, vendors, nil
}
