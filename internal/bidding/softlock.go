package bidding

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/config"
	"github.com/fixlinkhq/fixlink/internal/db"
)

// ResetSoftLockTimer re-arms the exclusivity window from the moment the
// dealer actually looks at the locked job, so the countdown never runs out
// behind their back.
// POST /jobs/:id/soft-lock/reset
func ResetSoftLockTimer(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	expiresAt := time.Now().Add(config.SoftLockDuration())

	res, err := db.Conn.Exec(context.Background(),
		`UPDATE jobs SET soft_lock_expires_at = $1, updated_at = NOW()
		 WHERE id = $2 AND status = 'soft_locked' AND soft_lock_expires_at > NOW()
		   AND (dealer_id = $3 OR $4 IN ('admin','superadmin'))`,
		expiresAt, jobID, userID, role,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reset soft lock"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job is not soft-locked, the lock expired, or it is not yours"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":              "soft lock timer reset",
		"soft_lock_expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// ConfirmSoftLock commits the dealer to the locked technician and price.
// The price freezes and the payment window opens. Confirmation and expiry
// are mutually exclusive: the conditional update checks the deadline, and a
// confirm that arrives late reverts the job instead of succeeding.
// POST /jobs/:id/soft-lock/confirm
func ConfirmSoftLock(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	ctx := context.Background()

	var dealerID string
	err := db.Conn.QueryRow(ctx, `SELECT dealer_id FROM jobs WHERE id = $1`, jobID).Scan(&dealerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}
	if userID != dealerID && role != "admin" && role != "superadmin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the job's dealer may confirm"})
	}

	deadline := time.Now().Add(config.PaymentWindow())
	res, err := db.Conn.Exec(ctx,
		`UPDATE jobs SET status = 'waiting_for_payment', price_locked = TRUE,
		        payment_deadline_at = $1, updated_at = NOW()
		 WHERE id = $2 AND status = 'soft_locked' AND soft_lock_expires_at > NOW()`,
		deadline, jobID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm soft lock"})
	}
	if res.RowsAffected() == 0 {
		var status string
		var lockExpiry *time.Time
		if err := db.Conn.QueryRow(ctx,
			`SELECT status, soft_lock_expires_at FROM jobs WHERE id = $1`, jobID,
		).Scan(&status, &lockExpiry); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
		}
		switch {
		case status == "waiting_for_payment":
			return c.JSON(http.StatusConflict, echo.Map{"error": "soft lock already confirmed"})
		case status == "soft_locked" && lockExpiry != nil && !lockExpiry.After(time.Now()):
			// The window lapsed but the sweep has not caught it yet; revert
			// now so the dealer gets a truthful answer.
			if _, _, err := revertExpiredLock(ctx, jobID); err == nil {
				return c.JSON(http.StatusConflict, echo.Map{"error": "soft lock expired; job reopened for bidding"})
			}
			return c.JSON(http.StatusConflict, echo.Map{"error": "soft lock expired"})
		default:
			return c.JSON(http.StatusConflict, echo.Map{"error": "job is not soft-locked", "status": status})
		}
	}

	var technicianID string
	var price int64
	_ = db.Conn.QueryRow(ctx,
		`SELECT soft_locked_by, final_price FROM jobs WHERE id = $1`, jobID,
	).Scan(&technicianID, &price)

	var dealerEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, dealerID).Scan(&dealerEmail)
	if dealerEmail != "" {
		_ = alerts.EnqueuePaymentDue(jobID, dealerID, dealerEmail, price, deadline)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":             "soft lock confirmed; awaiting payment",
		"final_price":         price,
		"payment_deadline_at": deadline.UTC().Format(time.RFC3339),
	})
}

// ReleaseSoftLock lets the dealer pass on the locked technician before
// confirming; the job reopens for bidding immediately.
// POST /jobs/:id/soft-lock/release
func ReleaseSoftLock(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	ctx := context.Background()

	var dealerID string
	if err := db.Conn.QueryRow(ctx, `SELECT dealer_id FROM jobs WHERE id = $1`, jobID).Scan(&dealerID); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
	}
	if userID != dealerID && role != "admin" && role != "superadmin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the job's dealer may release the lock"})
	}

	reverted, _, err := revertExpiredLock(ctx, jobID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release soft lock"})
	}
	if !reverted {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job is not soft-locked"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "soft lock released; job reopened for bidding"})
}

// revertExpiredLock returns a soft-locked job to the open pool: lock fields
// cleared, accepted bid reopened so the dealer can pick again. Safe to call
// on a job in any state; it only acts when the CAS on soft_locked wins.
func revertExpiredLock(ctx context.Context, jobID string) (reverted bool, technicianID string, err error) {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return false, "", err
	}
	defer tx.Rollback(ctx)

	// Row lock first so the lock holder is read and cleared atomically.
	var status string
	var lockedBy *string
	err = tx.QueryRow(ctx,
		`SELECT status, soft_locked_by FROM jobs WHERE id = $1 FOR UPDATE`, jobID,
	).Scan(&status, &lockedBy)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, "", nil
		}
		return false, "", err
	}
	if status != "soft_locked" {
		return false, "", nil
	}
	if lockedBy != nil {
		technicianID = *lockedBy
	}

	_, err = tx.Exec(ctx,
		`UPDATE jobs SET status = 'pending', soft_locked_by = NULL, soft_locked_at = NULL,
		        soft_lock_expires_at = NULL, final_price = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'soft_locked'`, jobID,
	)
	if err != nil {
		return false, "", err
	}

	// The accepted bid goes back to pending so the negotiation stays live
	// and a later accept (same or different technician) remains possible.
	_, err = tx.Exec(ctx,
		`UPDATE job_bids SET status = 'pending', updated_at = NOW()
		 WHERE job_id = $1 AND status = 'accepted'`, jobID,
	)
	if err != nil {
		return false, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, "", err
	}
	return true, technicianID, nil
}
