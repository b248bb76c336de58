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

type AcceptBidRequest struct {
	BidID string `json:"bid_id"`
}

// AcceptBid is the race-prevention boundary: the dealer picks a technician
// offer and the job is soft-locked for that technician, atomically. Two
// dealers' requests (or a retry) racing here are serialized by the
// conditional update on the job status; exactly one wins.
// POST /jobs/:id/accept-bid
func AcceptBid(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	var req AcceptBidRequest
	if err := c.Bind(&req); err != nil || req.BidID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bid_id required"})
	}

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
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the job's dealer may accept a bid"})
	}

	var technicianID, bidStatus, offeredBy string
	var amount int64
	err = db.Conn.QueryRow(ctx,
		`SELECT technician_id, status, offered_by, amount FROM job_bids WHERE id = $1 AND job_id = $2`,
		req.BidID, jobID,
	).Scan(&technicianID, &bidStatus, &offeredBy, &amount)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bid not found on this job"})
	}
	if bidStatus != StatusPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bid is not open for acceptance"})
	}
	if offeredBy != "technician" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot accept your own counter-offer; wait for the technician to agree"})
	}

	now := time.Now()
	expiresAt := now.Add(config.SoftLockDuration())

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	// Compare-and-swap on status: only the first accept moves the job out
	// of pending. A loser re-reads and gets told who holds the lock.
	res, err := tx.Exec(ctx,
		`UPDATE jobs SET status = 'soft_locked', soft_locked_by = $1, soft_locked_at = $2,
		        soft_lock_expires_at = $3, final_price = $4, updated_at = NOW()
		 WHERE id = $5 AND status = 'pending'`,
		technicianID, now, expiresAt, amount, jobID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to lock job"})
	}
	if res.RowsAffected() == 0 {
		var current string
		_ = db.Conn.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&current)
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  "job is no longer open for bidding",
			"status": current,
		})
	}

	res, err = tx.Exec(ctx,
		`UPDATE job_bids SET status = 'accepted', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, req.BidID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to accept bid"})
	}
	if res.RowsAffected() == 0 {
		// Bid changed under us; roll the job lock back via tx abort.
		return c.JSON(http.StatusConflict, echo.Map{"error": "bid was answered concurrently"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	// Notify the winning technician (best-effort).
	var techEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, technicianID).Scan(&techEmail)
	if techEmail != "" {
		_ = alerts.EnqueueBidAccepted(jobID, dealerID, technicianID, techEmail, amount, expiresAt)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":              "bid accepted; job soft-locked",
		"soft_locked_by":       technicianID,
		"soft_lock_expires_at": expiresAt.UTC().Format(time.RFC3339),
		"price":                amount,
	})
}
