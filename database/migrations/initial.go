package migrations

import (
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/migration"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20260301000000_create_users_table", &CreateUsersTable{})
	migration.Register("20260301000001_create_markets_tables", &CreateMarketsTables{})
	migration.Register("20260301000002_create_orders_tables", &CreateOrdersTables{})
	migration.Register("20260301000003_create_jobs_table", &CreateJobsTable{})
	migration.Register("20260301000004_create_payments_table", &CreatePaymentsTable{})
	migration.Register("20260301000005_create_roles_tables", &CreateRolesTables{})
	migration.Register("20260301000006_create_disputes_table", &CreateDisputesTable{})
	migration.Register("20260301000007_create_substitutions_table", &CreateSubstitutionsTable{})
}

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("users")
}

type CreateMarketsTables struct{}

func (m *CreateMarketsTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Market{}, &models.Vendor{}, &models.Shopper{})
}

func (m *CreateMarketsTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("shoppers", "vendors", "markets")
}

type CreateOrdersTables struct{}

func (m *CreateOrdersTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderItem{})
}

func (m *CreateOrdersTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("order_items", "orders")
}

type CreateJobsTable struct{}

func (m *CreateJobsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.ShopperJob{})
}

func (m *CreateJobsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("shopper_jobs")
}

type CreatePaymentsTable struct{}

func (m *CreatePaymentsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Payment{})
}

func (m *CreatePaymentsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("payments")
}

type CreateRolesTables struct{}

func (m *CreateRolesTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.RoleAssignment{}, &models.RoleAuditEntry{})
}

func (m *CreateRolesTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("role_audit_entries", "role_assignments")
}

type CreateDisputesTable struct{}

func (m *CreateDisputesTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Dispute{})
}

func (m *CreateDisputesTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("disputes")
}

type CreateSubstitutionsTable struct{}

func (m *CreateSubstitutionsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.SubstitutionRequest{})
}

func (m *CreateSubstitutionsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("substitution_requests")
}
