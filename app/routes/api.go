package routes

import (
	"github.com/kgyan/makola/app/controllers"
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/rbac"
	"github.com/kgyan/makola/pkg/router"
)

// RegisterAPI mounts the HTTP surface. Role middleware on these routes is
// a routing hint from the token snapshot; the services re-check the store
// before privileged writes.
func RegisterAPI(r *router.Router) {
	auth := controllers.NewAuthController()
	orders := controllers.NewOrderController()
	jobs := controllers.NewJobController()
	payments := controllers.NewPaymentController()
	roles := controllers.NewRoleController()
	disputes := controllers.NewDisputeController()
	subs := controllers.NewSubstitutionController()
	feedCtl := controllers.NewFeedController()
	markets := controllers.NewMarketController()

	api := r.Group("/api")

	api.Get("/markets", "markets.index", markets.Index)
	api.Get("/markets/{id}", "markets.show", markets.Show)

	api.Post("/register", "auth.register", auth.Register)
	api.Post("/login", "auth.login", auth.Login)
	api.Post("/token/refresh", "auth.refresh", auth.Refresh)

	protected := api.Group("", middleware.Auth)
	protected.Get("/me", "auth.me", auth.Me)

	consumer := protected.Group("", rbac.HasRole(models.RoleConsumer))
	consumer.Post("/orders", "orders.checkout", orders.Checkout)
	consumer.Get("/orders/mine", "orders.mine", orders.Mine)
	consumer.Post("/orders/{id}/approve", "orders.approve", orders.Approve)
	consumer.Post("/payments", "payments.initiate", payments.Initiate)
	consumer.Post("/substitutions/{id}/respond", "substitutions.respond", subs.Respond)

	protected.Get("/orders/{id}", "orders.show", orders.Show)
	protected.Get("/orders/{id}/payments", "payments.for_order", payments.ForOrder)
	protected.Get("/orders/{id}/disputes", "disputes.for_order", disputes.ForOrder)
	protected.Get("/orders/{id}/substitutions", "substitutions.pending", subs.Pending)
	protected.Post("/disputes", "disputes.open", disputes.Open)

	vendor := protected.Group("", rbac.HasRole(models.RoleVendor))
	vendor.Get("/orders/queue", "orders.queue", orders.Queue)
	vendor.Post("/orders/{id}/accept", "orders.accept", orders.Accept())
	vendor.Post("/orders/{id}/cancel", "orders.cancel", orders.Cancel())
	vendor.Post("/orders/{id}/prepare", "orders.prepare", orders.Prepare())
	vendor.Post("/orders/{id}/ready", "orders.ready", orders.Ready())

	shopper := protected.Group("", rbac.HasRole(models.RoleShopper))
	shopper.Get("/jobs", "jobs.available", jobs.Available)
	shopper.Post("/jobs/{id}/accept", "jobs.accept", jobs.Accept)
	shopper.Post("/jobs/{id}/complete", "jobs.complete", jobs.Complete)
	shopper.Post("/orders/{id}/pickup", "orders.pickup", orders.PickUp)
	shopper.Post("/orders/{id}/pickup-photo", "orders.pickup_photo", orders.PickupPhoto)
	shopper.Post("/substitutions", "substitutions.request", subs.Request)

	admin := protected.Group("/admin", rbac.HasRole(models.RoleAdmin))
	admin.Post("/roles", "admin.roles.change", roles.Change)
	admin.Get("/users/{id}/roles", "admin.roles.list", roles.List)
	admin.Get("/users/{id}/roles/audit", "admin.roles.audit", roles.Audit)
	admin.Post("/disputes/{id}/advance", "admin.disputes.advance", disputes.Advance)

	// Provider callbacks authenticate with X-Service-Key, or an admin token.
	callbacks := api.Group("/payments", middleware.OptionalAuth)
	callbacks.Post("/{id}/confirm", "payments.confirm", payments.Confirm)
	callbacks.Post("/{id}/fail", "payments.fail", payments.Fail)

	stream := api.Group("/feed", middleware.Auth, rbac.HasRole(models.RoleAdmin))
	stream.Get("/ws", "feed.ws", feedCtl.WS)
	stream.Get("/sse", "feed.sse", feedCtl.SSE)
}
