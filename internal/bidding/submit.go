package bidding

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

type SubmitBidRequest struct {
	Amount int64 `json:"amount"`
}

// SubmitBid lets a technician offer a price on an open job.
// POST /jobs/:id/bids
func SubmitBid(c echo.Context) error {
	technicianID, ok := c.Get("user_id").(string)
	if !ok || technicianID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid job id"})
	}

	var req SubmitBidRequest
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bid amount must be positive"})
	}

	ctx := context.Background()

	var dealerID, status string
	err := db.Conn.QueryRow(ctx,
		`SELECT dealer_id, status FROM jobs WHERE id = $1`, jobID,
	).Scan(&dealerID, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}
	if dealerID == technicianID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot bid on your own job"})
	}
	if status != "pending" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job is not open for bidding"})
	}

	// One live negotiation per technician per job.
	var existing int
	err = db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_bids
		 WHERE job_id = $1 AND technician_id = $2 AND status IN ('pending','countered','accepted')`,
		jobID, technicianID,
	).Scan(&existing)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check existing bids"})
	}
	if existing > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "you already have an active bid on this job"})
	}

	bidID := uuid.New().String()
	_, err = db.Conn.Exec(ctx,
		`INSERT INTO job_bids (id, job_id, technician_id, amount, status, offered_by, created_at)
		 VALUES ($1, $2, $3, $4, 'pending', 'technician', $5)`,
		bidID, jobID, technicianID, req.Amount, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create bid"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"bid_id": bidID, "status": "pending"})
}

// WithdrawBid retires a technician's live negotiation on a job.
// POST /bids/:id/withdraw
func WithdrawBid(c echo.Context) error {
	technicianID, ok := c.Get("user_id").(string)
	if !ok || technicianID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	bidID := c.Param("id")
	if bidID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing bid id"})
	}

	ctx := context.Background()

	var jobID string
	err := db.Conn.QueryRow(ctx,
		`SELECT job_id FROM job_bids WHERE id = $1 AND technician_id = $2`,
		bidID, technicianID,
	).Scan(&jobID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bid not found or not yours"})
	}

	// Withdrawing retires the whole chain: a technician has exactly one
	// negotiation per job, so every non-terminal row of the pair is theirs.
	res, err := db.Conn.Exec(ctx,
		`UPDATE job_bids SET status = 'withdrawn', updated_at = NOW()
		 WHERE job_id = $1 AND technician_id = $2 AND status IN ('pending','countered')`,
		jobID, technicianID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to withdraw bid"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bid is no longer withdrawable"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "bid withdrawn"})
}
