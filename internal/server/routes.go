package server

import (
	"github.com/Kyz7/juna/internal/admin"
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/meal"
	"github.com/Kyz7/juna/internal/middleware"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/order"
	"github.com/Kyz7/juna/internal/provider"
	"github.com/Kyz7/juna/internal/review"
	"github.com/Kyz7/juna/internal/subscription"
	"github.com/Kyz7/juna/internal/user"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config
	db := deps.DB
	ttl := cfg.Redis.CacheTTL

	tokens := utils.NewTokenManager(cfg.JWT)
	gate := auth.NewGate(db, tokens)
	authed := gate.RequireAuth()
	optional := gate.OptionalAuth()
	providerOnly := auth.RequireApprovedProvider()

	authSvc := auth.NewService(db, tokens, cfg.BcryptCost, deps.Log)
	authHandler := auth.NewHandler(authSvc)
	google := auth.NewGoogleOAuth(authSvc, cfg.Google)
	userHandler := user.NewHandler(user.NewService(db, deps.Log))
	providerHandler := provider.NewHandler(provider.NewService(db, deps.Cache, ttl, deps.Storage, deps.Log))
	mealHandler := meal.NewHandler(meal.NewService(db, deps.Cache, deps.Log))
	subscriptionHandler := subscription.NewHandler(subscription.NewService(db, deps.Cache, ttl, deps.Log))
	orderHandler := order.NewHandler(order.NewService(db, deps.Cache, deps.Metrics, order.Options{
		ScanPerSecond: cfg.RateLimit.ScanPerSec,
		ScanBurst:     cfg.RateLimit.ScanBurst,
	}, deps.Log))
	reviewHandler := review.NewHandler(review.NewService(db, deps.Cache, ttl, deps.Metrics, deps.Log))
	adminHandler := admin.NewHandler(admin.NewService(db))

	// ==========================================
	// AUTH
	// ==========================================
	authLimit := middleware.RateLimit(cfg.RateLimit.Auth, cfg.RateLimit.Window,
		"Too many authentication attempts, please try again later")
	authGroup := app.Group("/auth")
	authGroup.Post("/register", authLimit, authHandler.Register)
	authGroup.Post("/login", authLimit, authHandler.Login)
	authGroup.Post("/refresh", authLimit, authHandler.Refresh)
	authGroup.Post("/logout", authed, authHandler.Logout)
	authGroup.Put("/password", authed, authHandler.ChangePassword)
	authGroup.Get("/google/login", google.Login)
	authGroup.Get("/google/callback", google.Callback)

	// ==========================================
	// CURRENT USER
	// ==========================================
	users := app.Group("/users", authed)
	users.Get("/me", userHandler.GetMe)
	users.Put("/me", userHandler.UpdateMe)
	users.Delete("/me", userHandler.DeleteMe)

	// ==========================================
	// ADMIN
	// ==========================================
	adminGroup := app.Group("/admin", authed,
		auth.AllowRoles(models.RoleAdmin, models.RoleSuperAdmin),
		middleware.UserRateLimit(cfg.RateLimit.Admin, cfg.RateLimit.Window, "Too many admin requests"))
	adminGroup.Get("/dashboard", adminHandler.Dashboard)

	adminGroup.Get("/users", userHandler.List)
	adminGroup.Get("/users/:id", userHandler.Get)
	adminGroup.Put("/users/:id/suspend", userHandler.Suspend)
	adminGroup.Put("/users/:id/activate", userHandler.Activate)

	adminGroup.Get("/providers", providerHandler.List)
	adminGroup.Get("/providers/pending", providerHandler.ListPending)
	adminGroup.Get("/providers/:id", providerHandler.Get)
	adminGroup.Put("/providers/:id/approve", providerHandler.Approve)
	adminGroup.Put("/providers/:id/reject", providerHandler.Reject)
	adminGroup.Put("/providers/:id/suspend", providerHandler.Suspend)

	adminGroup.Get("/reviews", reviewHandler.List)
	adminGroup.Get("/reviews/pending/count", reviewHandler.PendingCount)
	adminGroup.Get("/reviews/:id", reviewHandler.Get)

	// ==========================================
	// PROVIDERS
	// ==========================================
	providers := app.Group("/providers")
	providers.Post("/register", authed, providerHandler.Register)
	providers.Get("/me", authed, providerHandler.GetMe)
	providers.Put("/me", authed, providerHandler.UpdateMe)
	providers.Post("/me/document-upload", authed, providerHandler.DocumentUpload)
	providers.Get("/:id", providerHandler.GetPublic)

	// ==========================================
	// MEALS
	// ==========================================
	meals := app.Group("/meals")
	meals.Get("/me", authed, providerOnly, mealHandler.ListMine)
	meals.Get("/provider/:providerId", mealHandler.ListByProvider)
	meals.Post("/", authed, providerOnly, mealHandler.Create)
	meals.Get("/:id", optional, mealHandler.Get)
	meals.Put("/:id", authed, providerOnly, mealHandler.Update)
	meals.Patch("/:id/toggle", authed, providerOnly, mealHandler.Toggle)
	meals.Delete("/:id", authed, providerOnly, mealHandler.Delete)

	// ==========================================
	// SUBSCRIPTIONS
	// ==========================================
	subscriptions := app.Group("/subscriptions")
	subscriptions.Get("/", subscriptionHandler.List)
	subscriptions.Get("/me", authed, providerOnly, subscriptionHandler.ListMine)
	subscriptions.Post("/", authed, providerOnly, subscriptionHandler.Create)
	subscriptions.Get("/:id", optional, subscriptionHandler.Get)
	subscriptions.Put("/:id", authed, providerOnly, subscriptionHandler.Update)
	subscriptions.Patch("/:id/toggle-active", authed, providerOnly, subscriptionHandler.ToggleActive)
	subscriptions.Patch("/:id/toggle-public", authed, providerOnly, subscriptionHandler.TogglePublic)
	subscriptions.Delete("/:id", authed, providerOnly, subscriptionHandler.Delete)

	// ==========================================
	// ORDERS
	// ==========================================
	adminOnly := auth.AllowRoles(models.RoleAdmin, models.RoleSuperAdmin)
	orders := app.Group("/orders")
	// redemption is anonymous: the code itself is the credential
	orders.Post("/scan/:id/:qrCode", orderHandler.Scan)
	orders.Post("/:id/complete", orderHandler.Complete)

	orders.Post("/", authed, orderHandler.Create)
	orders.Get("/", authed, adminOnly, orderHandler.ListAll)
	orders.Get("/me", authed, orderHandler.ListMine)
	orders.Get("/provider/me", authed, orderHandler.ListForProvider)
	orders.Get("/pending/count", authed, adminOnly, orderHandler.PendingCount)
	orders.Get("/number/:orderNumber", authed, orderHandler.GetByNumber)
	orders.Get("/:id", authed, orderHandler.Get)
	orders.Get("/:id/history", authed, orderHandler.History)
	orders.Put("/:id/confirm", authed, orderHandler.Confirm)
	orders.Put("/:id/ready", authed, orderHandler.MarkReady)
	orders.Put("/:id/qrcode", authed, orderHandler.RegenerateCode)
	orders.Delete("/:id", authed, orderHandler.Cancel)

	// ==========================================
	// REVIEWS
	// ==========================================
	reviews := app.Group("/reviews")
	reviews.Get("/subscription/:subscriptionId", reviewHandler.ListBySubscription)
	reviews.Get("/subscription/:subscriptionId/stats", reviewHandler.Stats)
	reviews.Post("/", authed, reviewHandler.Create)
	reviews.Get("/me", authed, reviewHandler.ListMine)
	reviews.Get("/order/:orderId", authed, reviewHandler.GetByOrder)
	reviews.Put("/:id", authed, reviewHandler.Update)
	reviews.Delete("/:id", authed, reviewHandler.Delete)
	reviews.Put("/:id/moderate", authed, adminOnly, reviewHandler.Moderate)
}
