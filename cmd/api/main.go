package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fixlinkhq/fixlink/internal/admin"
	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/auth"
	"github.com/fixlinkhq/fixlink/internal/bidding"
	"github.com/fixlinkhq/fixlink/internal/db"
	"github.com/fixlinkhq/fixlink/internal/escrow"
	"github.com/fixlinkhq/fixlink/internal/jobs"
	mware "github.com/fixlinkhq/fixlink/internal/middleware"
	"github.com/fixlinkhq/fixlink/internal/reviews"
	"github.com/fixlinkhq/fixlink/internal/sweeper"
	"github.com/fixlinkhq/fixlink/internal/trust"
	"github.com/fixlinkhq/fixlink/internal/user"
	"github.com/fixlinkhq/fixlink/internal/wallet"
	"github.com/fixlinkhq/fixlink/internal/warranty"
)

func main() {
	_ = godotenv.Load()

	db.Init()
	escrow.Init()
	alerts.Init()
	defer alerts.Close()

	e := echo.New()

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "fixlink"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if db.Conn == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db not initialized"})
		}
		if err := db.Conn.Ping(context.Background()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", auth.Signup)
	authGroup.POST("/login", auth.Login)

	// Public routes
	e.GET("/user/:id/profile", user.GetPublicProfile)
	e.GET("/technicians/:id/reviews", reviews.GetTechnicianReviews)

	// Payment processor callbacks authenticate via the intent id, not a JWT.
	e.POST("/webhooks/payments", escrow.PaymentWebhook)

	// External schedulers hit the sweep with X-Sweep-Token.
	e.POST("/internal/sweep", sweeper.Handle)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware)

	api.GET("/auth/me", auth.Me)

	// Job lifecycle
	api.POST("/jobs", jobs.PostJob, mware.RequireRoles("dealer"))
	api.GET("/jobs", jobs.ListJobs)
	api.GET("/jobs/:id", jobs.GetJob)
	api.GET("/jobs/:id/status", jobs.GetJobStatus)
	api.POST("/jobs/:id/start", jobs.StartWork, mware.RequireRoles("technician", "admin", "superadmin"))
	api.POST("/jobs/:id/request-completion", jobs.RequestCompletion, mware.RequireRoles("technician"))
	api.POST("/jobs/:id/approve-completion", jobs.ApproveCompletion, mware.RequireRoles("dealer", "admin", "superadmin"))
	api.POST("/jobs/:id/reject-completion", jobs.RejectCompletion, mware.RequireRoles("dealer", "admin", "superadmin"))
	api.POST("/jobs/:id/cancel", jobs.CancelJob)
	api.POST("/jobs/:id/review", reviews.CreateReview, mware.RequireRoles("dealer"))

	// Bidding and the soft-lock window
	api.POST("/jobs/:id/bids", bidding.SubmitBid, mware.RequireRoles("technician"))
	api.GET("/jobs/:id/bids", bidding.ListJobBids)
	api.POST("/bids/:id/counter", bidding.CounterOffer)
	api.POST("/bids/:id/reject", bidding.RejectBid)
	api.POST("/bids/:id/withdraw", bidding.WithdrawBid, mware.RequireRoles("technician"))
	api.POST("/jobs/:id/accept-bid", bidding.AcceptBid, mware.RequireRoles("dealer", "admin", "superadmin"))
	api.POST("/jobs/:id/soft-lock/reset", bidding.ResetSoftLockTimer, mware.RequireRoles("dealer"))
	api.POST("/jobs/:id/soft-lock/confirm", bidding.ConfirmSoftLock, mware.RequireRoles("dealer", "admin", "superadmin"))
	api.POST("/jobs/:id/soft-lock/release", bidding.ReleaseSoftLock, mware.RequireRoles("dealer", "admin", "superadmin"))

	// Escrow
	api.POST("/jobs/:id/payment-intent", escrow.CreatePaymentIntent, mware.RequireRoles("dealer", "admin", "superadmin"))

	// Warranty holds
	api.GET("/warranty", warranty.ListMyHolds)
	api.GET("/warranty/:id", warranty.GetHold)
	api.POST("/warranty/:id/report", warranty.ReportIssue, mware.RequireRoles("dealer"))

	// Trust history (own, or admin)
	api.GET("/users/:id/trust-history", trust.GetHistory)

	// Wallet
	api.GET("/wallet/balance", wallet.Balance)
	api.GET("/wallet/transactions", wallet.GetUserTransactions)
	api.POST("/wallet/withdraw", wallet.InitWithdrawal)

	// Notifications
	api.GET("/notifications", alerts.ListNotifications)
	api.POST("/notifications/:id/read", alerts.MarkNotificationRead)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(mware.JWTMiddleware)
	adminGroup.Use(mware.AdminGuard)

	adminGroup.GET("/stats", admin.Stats)
	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.POST("/users/:id/suspend", admin.SuspendUser)
	adminGroup.POST("/users/:id/activate", admin.ActivateUser)
	adminGroup.POST("/users/:id/trust-adjust", trust.ManualAdjust)
	adminGroup.GET("/jobs", admin.ListJobs)
	adminGroup.GET("/payments", admin.ListPayments)
	adminGroup.GET("/warranty-holds", admin.ListWarrantyHolds)
	adminGroup.POST("/warranty/:id/resolve", warranty.ResolveIssue)
	adminGroup.GET("/wallets", admin.ListWallets)
	adminGroup.GET("/transactions", wallet.AdminGetAllTransactions)
	adminGroup.POST("/withdrawals/:id/confirm", wallet.ConfirmWithdrawal)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
