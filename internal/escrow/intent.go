package escrow

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/commission"
	"github.com/fixlinkhq/fixlink/internal/db"
)

// CreatePaymentIntent opens the escrow funding leg for a confirmed job. It
// is idempotent per job: while a pending intent exists the same one is
// returned, so a dealer double-clicking pay cannot open two. The commission
// split is computed and frozen on the payment row here, before capture, so
// the audit trail reproduces exactly.
// POST /jobs/:id/payment-intent
func CreatePaymentIntent(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	ctx := context.Background()

	var dealerID, jobNumber, category, region, status string
	var lockedBy *string
	var finalPrice *int64
	var deadline *time.Time
	err := db.Conn.QueryRow(ctx,
		`SELECT dealer_id, job_number, category, region, status, soft_locked_by, final_price, payment_deadline_at
		 FROM jobs WHERE id = $1`, jobID,
	).Scan(&dealerID, &jobNumber, &category, &region, &status, &lockedBy, &finalPrice, &deadline)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}

	if userID != dealerID && role != "admin" && role != "superadmin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the job's dealer may pay"})
	}
	if status != "waiting_for_payment" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job is not awaiting payment"})
	}
	if lockedBy == nil || finalPrice == nil || *finalPrice <= 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job has no locked technician or price"})
	}
	if deadline == nil || !deadline.After(time.Now()) {
		// The window lapsed; revert instead of taking money for a job that
		// is about to reopen.
		if n, _ := ExpirePaymentDeadlines(ctx, time.Now()); n > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment window expired; job reopened for bidding"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "payment window expired"})
	}

	// Reuse the live intent if one exists.
	var existingIntent string
	err = db.Conn.QueryRow(ctx,
		`SELECT intent_id FROM job_payments
		 WHERE job_id = $1 AND payment_type = 'service' AND status = 'pending' AND intent_id IS NOT NULL`,
		jobID,
	).Scan(&existingIntent)
	if err == nil && existingIntent != "" {
		return c.JSON(http.StatusOK, echo.Map{"intent_id": existingIntent, "amount": *finalPrice, "reused": true})
	}

	rules, err := loadCommissionRules(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load commission rules"})
	}
	split := commission.Calculate(*finalPrice, resolveRule(rules, category, region, dealerID))

	intentID, err := requestIntent(ctx, processor, *finalPrice, jobNumber)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment processor unavailable"})
	}

	_, err = db.Conn.Exec(ctx,
		`INSERT INTO job_payments (id, job_id, dealer_id, technician_id, intent_id, gross_amount,
		        commission_type, commission_value, commission_amount, net_amount, payment_type, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'service', 'pending', $11)`,
		uuid.New().String(), jobID, dealerID, *lockedBy, intentID, *finalPrice,
		split.Type, split.Value, split.CommissionAmount, split.NetAmount, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"intent_id":  intentID,
		"amount":     *finalPrice,
		"commission": split.CommissionAmount,
		"net_amount": split.NetAmount,
	})
}
