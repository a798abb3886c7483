package seeders

import (
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/auth"
	"gorm.io/gorm"
)

func init() {
	Register("markets", SeedMarkets)
	Register("demo_users", SeedDemoUsers)
}

// SeedMarkets inserts the launch markets. Idempotent: existing rows are
// left alone.
func SeedMarkets(db *gorm.DB) error {
	markets := []models.Market{
		{Name: "Makola Market", City: "Accra"},
		{Name: "Kejetia Market", City: "Kumasi"},
		{Name: "Kotokuraba Market", City: "Cape Coast"},
	}
	for i := range markets {
		if err := db.Where("name = ?", markets[i].Name).FirstOrCreate(&markets[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedDemoUsers creates one account per role against the first market,
// each with the password "password".
func SeedDemoUsers(db *gorm.DB) error {
	var market models.Market
	if err := db.First(&market).Error; err != nil {
		return err
	}

	hashed, err := auth.HashPassword("password")
	if err != nil {
		return err
	}

	demo := []struct {
		name  string
		email string
		role  string
	}{
		{"Ama Mensah", "ama@makola.test", models.RoleConsumer},
		{"Kofi Boateng", "kofi@makola.test", models.RoleVendor},
		{"Esi Owusu", "esi@makola.test", models.RoleShopper},
		{"Yaw Darko", "yaw@makola.test", models.RoleAdmin},
	}

	for _, d := range demo {
		user := models.User{Name: d.name, Email: d.email, Password: hashed}
		if err := db.Where("email = ?", d.email).FirstOrCreate(&user).Error; err != nil {
			return err
		}

		assignment := models.RoleAssignment{UserID: user.ID, Role: d.role, GrantedBy: user.ID}
		if err := db.Where("user_id = ? AND role = ?", user.ID, d.role).
			FirstOrCreate(&assignment).Error; err != nil {
			return err
		}

		switch d.role {
		case models.RoleVendor:
			vendor := models.Vendor{UserID: user.ID, MarketID: market.ID, StallName: "Boateng Fresh Produce"}
			if err := db.Where("user_id = ?", user.ID).FirstOrCreate(&vendor).Error; err != nil {
				return err
			}
		case models.RoleShopper:
			shopper := models.Shopper{UserID: user.ID, Active: true}
			if err := db.Where("user_id = ?", user.ID).FirstOrCreate(&shopper).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
