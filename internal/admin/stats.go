package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

// GET /admin/stats
func Stats(c echo.Context) error {
	ctx := context.Background()

	var users, jobs, bids, payments, holds, transactions int
	var escrowed, released int64

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&jobs)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM job_bids`).Scan(&bids)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM job_payments`).Scan(&payments)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM warranty_holds`).Scan(&holds)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&transactions)
	_ = db.Conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(gross_amount), 0) FROM job_payments WHERE status = 'escrow_hold'`).Scan(&escrowed)
	_ = db.Conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(net_amount), 0) FROM job_payments WHERE status = 'released'`).Scan(&released)

	return c.JSON(http.StatusOK, echo.Map{
		"users":           users,
		"jobs":            jobs,
		"bids":            bids,
		"payments":        payments,
		"warranty_holds":  holds,
		"transactions":    transactions,
		"amount_escrowed": escrowed,
		"amount_released": released,
	})
}
