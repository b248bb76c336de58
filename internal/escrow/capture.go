package escrow

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/db"
)

type captureCallback struct {
	IntentID string `json:"intent_id"`
	Status   string `json:"status"` // approved | failed
}

// PaymentWebhook receives the processor's asynchronous settlement result.
// The intent id is the idempotency key: replays and duplicates of an
// already-settled intent are rejected and logged, never applied twice.
// POST /webhooks/payments
func PaymentWebhook(c echo.Context) error {
	var cb captureCallback
	if err := c.Bind(&cb); err != nil || cb.IntentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "intent_id required"})
	}

	switch cb.Status {
	case "approved":
		return captureSuccess(c, cb.IntentID)
	case "failed", "rejected", "cancelled":
		return captureFailure(c, cb.IntentID)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown capture status"})
	}
}

func captureSuccess(c echo.Context, intentID string) error {
	ctx := context.Background()

	var paymentID, jobID, dealerID, technicianID, paymentStatus string
	var gross, net int64
	err := db.Conn.QueryRow(ctx,
		`SELECT id, job_id, dealer_id, technician_id, status, gross_amount, net_amount
		 FROM job_payments WHERE intent_id = $1`, intentID,
	).Scan(&paymentID, &jobID, &dealerID, &technicianID, &paymentStatus, &gross, &net)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown payment intent"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch payment"})
	}

	if paymentStatus != StatusPending {
		log.Printf("[escrow] duplicate capture callback for intent %s (payment %s is %s)", intentID, paymentID, paymentStatus)
		return c.JSON(http.StatusConflict, echo.Map{"error": "payment already settled"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE job_payments SET status = 'escrow_hold', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, paymentID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update payment"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "payment settled concurrently"})
	}

	// The job may have been cancelled or expired between intent creation
	// and capture; in that case the money must not assign the job.
	res, err = tx.Exec(ctx,
		`UPDATE jobs SET status = 'assigned', technician_id = soft_locked_by, assigned_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'waiting_for_payment'`, jobID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update job"})
	}
	if res.RowsAffected() == 0 {
		var jobStatus string
		_ = db.Conn.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&jobStatus)
		log.Printf("[escrow] capture for intent %s but job %s is %s; leaving payment pending for refund", intentID, jobID, jobStatus)
		return c.JSON(http.StatusConflict, echo.Map{"error": "job no longer awaiting payment"})
	}

	// The technician's net entitlement now sits in escrow; the commission
	// slice never touches their wallet figure.
	if err := adjustEscrowInTx(ctx, tx, technicianID, net); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update wallet"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	log.Printf("[escrow] captured %d for job %s (intent %s); technician assigned", gross, jobID, intentID)

	var techEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, technicianID).Scan(&techEmail)
	if techEmail != "" {
		_ = alerts.EnqueuePaymentCaptured(jobID, dealerID, technicianID, techEmail, gross)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "payment captured; job assigned"})
}

func captureFailure(c echo.Context, intentID string) error {
	ctx := context.Background()

	res, err := db.Conn.Exec(ctx,
		`UPDATE job_payments SET status = 'failed', updated_at = NOW()
		 WHERE intent_id = $1 AND status = 'pending'`, intentID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update payment"})
	}
	if res.RowsAffected() == 0 {
		log.Printf("[escrow] failure callback for intent %s ignored; payment not pending", intentID)
		return c.JSON(http.StatusConflict, echo.Map{"error": "payment already settled"})
	}

	// The job stays in waiting_for_payment; the dealer can retry with a
	// fresh intent until the deadline sweep reverts it.
	log.Printf("[escrow] capture failed for intent %s", intentID)
	return c.JSON(http.StatusOK, echo.Map{"message": "payment failure recorded"})
}
