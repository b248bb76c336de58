package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

// GET /admin/jobs?status=
func ListJobs(c echo.Context) error {
	ctx := context.Background()

	query := `SELECT id, job_number, dealer_id, technician_id, category, region, status,
	                 estimated_cost, final_price, created_at
	          FROM jobs ORDER BY created_at DESC LIMIT 200`
	args := []any{}
	if status := c.QueryParam("status"); status != "" {
		query = `SELECT id, job_number, dealer_id, technician_id, category, region, status,
		                estimated_cost, final_price, created_at
		         FROM jobs WHERE status = $1 ORDER BY created_at DESC LIMIT 200`
		args = append(args, status)
	}

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch jobs"})
	}
	defer rows.Close()

	type jobRow struct {
		ID            string  `json:"id"`
		JobNumber     string  `json:"job_number"`
		DealerID      string  `json:"dealer_id"`
		TechnicianID  *string `json:"technician_id,omitempty"`
		Category      string  `json:"category"`
		Region        string  `json:"region"`
		Status        string  `json:"status"`
		EstimatedCost int64   `json:"estimated_cost"`
		FinalPrice    *int64  `json:"final_price,omitempty"`
		CreatedAt     time.Time `json:"created_at"`
	}
	out := []jobRow{}
	for rows.Next() {
		var j jobRow
		if err := rows.Scan(&j.ID, &j.JobNumber, &j.DealerID, &j.TechnicianID, &j.Category, &j.Region,
			&j.Status, &j.EstimatedCost, &j.FinalPrice, &j.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read job record"})
		}
		out = append(out, j)
	}
	return c.JSON(http.StatusOK, echo.Map{"jobs": out})
}

// GET /admin/payments?status=
func ListPayments(c echo.Context) error {
	ctx := context.Background()

	query := `SELECT id, job_id, dealer_id, technician_id, gross_amount, commission_amount,
	                 net_amount, payment_type, status, created_at
	          FROM job_payments ORDER BY created_at DESC LIMIT 200`
	args := []any{}
	if status := c.QueryParam("status"); status != "" {
		query = `SELECT id, job_id, dealer_id, technician_id, gross_amount, commission_amount,
		                net_amount, payment_type, status, created_at
		         FROM job_payments WHERE status = $1 ORDER BY created_at DESC LIMIT 200`
		args = append(args, status)
	}

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch payments"})
	}
	defer rows.Close()

	type paymentRow struct {
		ID               string `json:"id"`
		JobID            string `json:"job_id"`
		DealerID         string `json:"dealer_id"`
		TechnicianID     string `json:"technician_id"`
		GrossAmount      int64  `json:"gross_amount"`
		CommissionAmount int64  `json:"commission_amount"`
		NetAmount        int64  `json:"net_amount"`
		PaymentType      string `json:"payment_type"`
		Status           string `json:"status"`
		CreatedAt        time.Time `json:"created_at"`
	}
	out := []paymentRow{}
	for rows.Next() {
		var p paymentRow
		if err := rows.Scan(&p.ID, &p.JobID, &p.DealerID, &p.TechnicianID, &p.GrossAmount,
			&p.CommissionAmount, &p.NetAmount, &p.PaymentType, &p.Status, &p.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read payment record"})
		}
		out = append(out, p)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": out})
}

// GET /admin/warranty-holds?status=
func ListWarrantyHolds(c echo.Context) error {
	ctx := context.Background()

	query := `SELECT id, job_id, technician_id, dealer_id, hold_amount, status, expires_at, created_at
	          FROM warranty_holds ORDER BY created_at DESC LIMIT 200`
	args := []any{}
	if status := c.QueryParam("status"); status != "" {
		query = `SELECT id, job_id, technician_id, dealer_id, hold_amount, status, expires_at, created_at
		         FROM warranty_holds WHERE status = $1 ORDER BY created_at DESC LIMIT 200`
		args = append(args, status)
	}

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch warranty holds"})
	}
	defer rows.Close()

	type holdRow struct {
		ID           string `json:"id"`
		JobID        string `json:"job_id"`
		TechnicianID string `json:"technician_id"`
		DealerID     string `json:"dealer_id"`
		HoldAmount   int64  `json:"hold_amount"`
		Status       string `json:"status"`
		ExpiresAt    time.Time `json:"expires_at"`
		CreatedAt    time.Time `json:"created_at"`
	}
	out := []holdRow{}
	for rows.Next() {
		var h holdRow
		if err := rows.Scan(&h.ID, &h.JobID, &h.TechnicianID, &h.DealerID, &h.HoldAmount,
			&h.Status, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read hold record"})
		}
		out = append(out, h)
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": out})
}

// GET /admin/wallets
func ListWallets(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT w.user_id, u.name, u.role, w.balance, w.escrow
		 FROM wallets w JOIN users u ON u.id = w.user_id
		 ORDER BY w.balance DESC LIMIT 200`,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch wallets"})
	}
	defer rows.Close()

	type walletRow struct {
		UserID  string `json:"user_id"`
		Name    string `json:"name"`
		Role    string `json:"role"`
		Balance int64  `json:"balance"`
		Escrow  int64  `json:"escrow"`
	}
	out := []walletRow{}
	for rows.Next() {
		var w walletRow
		if err := rows.Scan(&w.UserID, &w.Name, &w.Role, &w.Balance, &w.Escrow); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read wallet record"})
		}
		out = append(out, w)
	}
	return c.JSON(http.StatusOK, echo.Map{"wallets": out})
}
