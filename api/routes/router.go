package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartaviva/cartaviva-backend/api/controllers"
	"github.com/cartaviva/cartaviva-backend/api/middleware"
	"github.com/cartaviva/cartaviva-backend/internal/auth"
	cartsvc "github.com/cartaviva/cartaviva-backend/internal/cart"
	disputesvc "github.com/cartaviva/cartaviva-backend/internal/disputes"
	listingsvc "github.com/cartaviva/cartaviva-backend/internal/listings"
	"github.com/cartaviva/cartaviva-backend/internal/notifications"
	ratingsvc "github.com/cartaviva/cartaviva-backend/internal/ratings"
	txnsvc "github.com/cartaviva/cartaviva-backend/internal/transactions"
	usersvc "github.com/cartaviva/cartaviva-backend/internal/users"
	"github.com/cartaviva/cartaviva-backend/pkg/auth/session"
	"github.com/cartaviva/cartaviva-backend/pkg/config"
	"github.com/cartaviva/cartaviva-backend/pkg/db"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	authService auth.Service,
	registerService auth.RegisterService,
	usersService *usersvc.Service,
	listingsService *listingsvc.Service,
	cartService *cartsvc.Service,
	transactionsService *txnsvc.Service,
	ratingsService *ratingsvc.Service,
	disputesService *disputesvc.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// Nil concrete pointers must not become non-nil interfaces.
	var redisP redis.Pinger
	var idemStore redis.IdempotencyStore
	var limiterStore middleware.RateLimiterStore
	if redisClient != nil {
		redisP = redisClient
		idemStore = redisClient
		limiterStore = redisClient
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, limiterStore, logg)).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).Post("/login", controllers.AdminAuthLogin(authService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/me", controllers.GetMe(usersService, logg))
			r.Put("/me", controllers.UpdateMe(usersService, logg))
			r.Get("/{userId}", controllers.GetPublicProfile(usersService, logg))
			r.Get("/{userId}/ratings", controllers.ListUserRatings(ratingsService, logg))
		})

		r.Route("/v1/listings", func(r chi.Router) {
			r.Get("/", controllers.BrowseListings(listingsService, logg))
			r.Post("/", controllers.CreateListing(listingsService, logg))
			r.Get("/mine", controllers.MyListings(listingsService, logg))
			r.Get("/{listingId}", controllers.GetListing(listingsService, logg))
			r.Patch("/{listingId}", controllers.UpdateListing(listingsService, logg))
			r.Delete("/{listingId}", controllers.ArchiveListing(listingsService, logg))
		})

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(cartService, logg))
			r.Delete("/", controllers.ClearCart(cartService, logg))
			r.Get("/groups", controllers.GetCartGroups(cartService, logg))
			r.Post("/items", controllers.AddCartItem(cartService, logg))
			r.Patch("/items/{listingId}", controllers.UpdateCartItem(cartService, logg))
			r.Delete("/items/{listingId}", controllers.RemoveCartItem(cartService, logg))
		})

		r.Route("/v1/transactions", func(r chi.Router) {
			r.Post("/", controllers.Checkout(transactionsService, logg))
			r.Get("/", controllers.ListTransactions(transactionsService, logg))
			r.Get("/{transactionId}", controllers.GetTransaction(transactionsService, logg))
			r.Post("/{transactionId}/accept", controllers.AcceptTransaction(transactionsService, logg))
			r.Post("/{transactionId}/reject", controllers.RejectTransaction(transactionsService, logg))
			r.Post("/{transactionId}/deliver", controllers.ConfirmDelivery(transactionsService, logg))
			r.Post("/{transactionId}/confirm-payment", controllers.ConfirmPayment(transactionsService, logg))
			r.Post("/{transactionId}/confirm-receipt", controllers.ConfirmReceipt(transactionsService, logg))
			r.Post("/{transactionId}/disputes", controllers.OpenDispute(disputesService, logg))
			r.Get("/{transactionId}/disputes", controllers.ListTransactionDisputes(disputesService, logg))
		})

		r.Route("/v1/disputes", func(r chi.Router) {
			r.Post("/{disputeId}/resolve", controllers.ResolveDispute(disputesService, logg))
		})

		r.Post("/v1/ratings", controllers.SubmitRating(ratingsService, logg))

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Get("/ping", controllers.AdminPing())
	})

	return r
}
