package services

import (
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/database"
	"github.com/stretchr/testify/require"
)

// setupDB opens a fresh in-memory SQLite database for one test. The single
// connection it keeps serialises writers, so concurrent conditional updates
// behave like they do on the production database.
func setupDB(t *testing.T) {
	t.Helper()

	require.NoError(t, database.Open("sqlite", ":memory:"))
	require.NoError(t, database.DB.AutoMigrate(
		&models.User{},
		&models.Market{}, &models.Vendor{}, &models.Shopper{},
		&models.Order{}, &models.OrderItem{},
		&models.ShopperJob{},
		&models.Payment{},
		&models.RoleAssignment{}, &models.RoleAuditEntry{},
		&models.Dispute{}, &models.SubstitutionRequest{},
	))
}

type fixture struct {
	market    models.Market
	consumer  models.User
	vendorUsr models.User
	shopper1  models.User
	shopper2  models.User
	admin     models.User
	vendor    models.Vendor
	shopperA  models.Shopper
	shopperB  models.Shopper
}

// seedFixture creates one of everything: a market, a vendor stall, two
// active shoppers, a consumer, and an admin, with roles assigned.
func seedFixture(t *testing.T) fixture {
	t.Helper()
	db := database.DB

	f := fixture{
		market:    models.Market{Name: "Makola Market", City: "Accra"},
		consumer:  models.User{Name: "Ama", Email: "ama@test", Password: "x"},
		vendorUsr: models.User{Name: "Kofi", Email: "kofi@test", Password: "x"},
		shopper1:  models.User{Name: "Esi", Email: "esi@test", Password: "x"},
		shopper2:  models.User{Name: "Abena", Email: "abena@test", Password: "x"},
		admin:     models.User{Name: "Yaw", Email: "yaw@test", Password: "x"},
	}
	require.NoError(t, db.Create(&f.market).Error)
	for _, u := range []*models.User{&f.consumer, &f.vendorUsr, &f.shopper1, &f.shopper2, &f.admin} {
		require.NoError(t, db.Create(u).Error)
	}

	f.vendor = models.Vendor{UserID: f.vendorUsr.ID, MarketID: f.market.ID, StallName: "Kofi Fresh"}
	require.NoError(t, db.Create(&f.vendor).Error)
	f.shopperA = models.Shopper{UserID: f.shopper1.ID, Active: true}
	f.shopperB = models.Shopper{UserID: f.shopper2.ID, Active: true}
	require.NoError(t, db.Create(&f.shopperA).Error)
	require.NoError(t, db.Create(&f.shopperB).Error)

	grants := map[uint]string{
		f.consumer.ID:  models.RoleConsumer,
		f.vendorUsr.ID: models.RoleVendor,
		f.shopper1.ID:  models.RoleShopper,
		f.shopper2.ID:  models.RoleShopper,
		f.admin.ID:     models.RoleAdmin,
	}
	for userID, role := range grants {
		require.NoError(t, db.Create(&models.RoleAssignment{
			UserID: userID, Role: role, GrantedBy: f.admin.ID,
		}).Error)
	}

	return f
}

// placeOrder runs a standard two-line checkout: 3×5.00 + 2×3.00.
func placeOrder(t *testing.T, f fixture) models.Order {
	t.Helper()

	order, err := NewOrderService().Checkout(f.consumer.ID, f.vendor.ID, []CheckoutItem{
		{ProductRef: "tomatoes", ProductName: "Tomatoes", Quantity: 3, UnitPrice: 5.00},
		{ProductRef: "plantain", ProductName: "Plantain", Quantity: 2, UnitPrice: 3.00},
	}, "ripe ones please")
	require.NoError(t, err)
	return order
}

// driveToReady walks an order pending→accepted→preparing→ready as the
// vendor.
func driveToReady(t *testing.T, f fixture, orderID uint) models.Order {
	t.Helper()
	svc := NewOrderService()

	for _, ev := range []OrderEvent{EventAccept, EventStartPreparing, EventMarkReady} {
		_, err := svc.VendorTransition(f.vendorUsr.ID, orderID, ev)
		require.NoError(t, err, "event %s", ev)
	}

	order, err := svc.Find(f.consumer.ID, orderID, false)
	require.NoError(t, err)
	return order
}

// driveToApproved takes a ready order through pickup, inspection, and
// consumer approval by shopper A.
func driveToApproved(t *testing.T, f fixture, orderID uint) models.Order {
	t.Helper()
	orders := NewOrderService()
	jobs := NewJobService()

	job, err := NewJobService().jobs.FindByOrder(orderID)
	require.NoError(t, err)
	_, err = jobs.Accept(f.shopper1.ID, job.ID)
	require.NoError(t, err)

	_, err = orders.PickUp(f.shopper1.ID, orderID)
	require.NoError(t, err)
	_, err = orders.AttachPickupPhoto(f.shopper1.ID, orderID, "pickups/test.jpg")
	require.NoError(t, err)

	order, err := orders.Approve(f.consumer.ID, orderID)
	require.NoError(t, err)
	return order
}
