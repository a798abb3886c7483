package repositories

import (
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/orm"
)

// MarketRepository handles markets, vendor profiles, and shopper profiles.
type MarketRepository struct{}

func NewMarketRepository() *MarketRepository {
	return &MarketRepository{}
}

// FindMarket loads one market.
func (r *MarketRepository) FindMarket(id uint) (models.Market, error) {
	var m models.Market
	err := orm.DB().Model(&models.Market{}).Where("id = ?", id).First(&m)
	return m, err
}

// ListMarkets returns every market, alphabetically.
func (r *MarketRepository) ListMarkets() ([]models.Market, error) {
	var markets []models.Market
	err := orm.DB().Model(&models.Market{}).Order("name asc").Get(&markets)
	return markets, err
}

// VendorsForMarket lists the stalls trading in one market.
func (r *MarketRepository) VendorsForMarket(marketID uint) ([]models.Vendor, error) {
	var vendors []models.Vendor
	err := orm.DB().
		Model(&models.Vendor{}).
		Where("market_id = ?", marketID).
		Order("stall_name asc").
		Get(&vendors)
	return vendors, err
}

// FindVendor loads one vendor profile.
func (r *MarketRepository) FindVendor(id uint) (models.Vendor, error) {
	var v models.Vendor
	err := orm.DB().Model(&models.Vendor{}).Where("id = ?", id).First(&v)
	return v, err
}

// VendorForUser returns the vendor profile owned by a user account.
func (r *MarketRepository) VendorForUser(userID uint) (models.Vendor, error) {
	var v models.Vendor
	err := orm.DB().Model(&models.Vendor{}).Where("user_id = ?", userID).First(&v)
	return v, err
}

// ShopperForUser returns the shopper profile owned by a user account.
func (r *MarketRepository) ShopperForUser(userID uint) (models.Shopper, error) {
	var s models.Shopper
	err := orm.DB().Model(&models.Shopper{}).Where("user_id = ?", userID).First(&s)
	return s, err
}
