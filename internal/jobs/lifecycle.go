package jobs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/db"
	"github.com/fixlinkhq/fixlink/internal/escrow"
	"github.com/fixlinkhq/fixlink/internal/jobstate"
	"github.com/fixlinkhq/fixlink/internal/trust"
)

// StartWork moves an assigned job into progress.
// POST /jobs/:id/start
func StartWork(c echo.Context) error {
	return simpleTransition(c, jobstate.StatusAssigned, jobstate.StatusInProgress,
		requireAssignedTechnician, "work started", "")
}

// RequestCompletion is the technician declaring the work done; the dealer
// must approve before money moves.
// POST /jobs/:id/request-completion
func RequestCompletion(c echo.Context) error {
	return simpleTransition(c, jobstate.StatusInProgress, jobstate.StatusCompletionApproval,
		requireAssignedTechnician, "completion requested; awaiting dealer approval", "completion:requested")
}

// RejectCompletion sends the job back for rework.
// POST /jobs/:id/reject-completion
func RejectCompletion(c echo.Context) error {
	return simpleTransition(c, jobstate.StatusCompletionApproval, jobstate.StatusInProgress,
		requireDealer, "completion rejected; job back in progress", "completion:rejected")
}

type ownerCheck func(userID string, dealerID string, technicianID *string) bool

func requireDealer(userID, dealerID string, _ *string) bool {
	return userID == dealerID
}

func requireAssignedTechnician(userID, _ string, technicianID *string) bool {
	return technicianID != nil && userID == *technicianID
}

// simpleTransition handles the lifecycle moves that carry no money: validate
// against the state machine, then compare-and-swap on the current status so
// concurrent attempts serialize.
func simpleTransition(c echo.Context, from, to jobstate.Status, owns ownerCheck, okMsg, notifyType string) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	ctx := context.Background()

	var dealerID string
	var technicianID *string
	var current jobstate.Status
	err := db.Conn.QueryRow(ctx,
		`SELECT dealer_id, technician_id, status FROM jobs WHERE id = $1`, jobID,
	).Scan(&dealerID, &technicianID, &current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}

	isAdmin := role == "admin" || role == "superadmin"
	if !isAdmin && !owns(userID, dealerID, technicianID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you are not a party to this job"})
	}
	if allowed, reason := jobstate.ValidateTransition(current, to, actorRole(role)); !allowed {
		return c.JSON(http.StatusConflict, echo.Map{"error": reason})
	}

	res, err := db.Conn.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, jobID, from,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update job"})
	}
	if res.RowsAffected() == 0 {
		var now jobstate.Status
		_ = db.Conn.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&now)
		return c.JSON(http.StatusConflict, echo.Map{"error": "job state changed concurrently", "status": now})
	}

	if notifyType != "" {
		// Tell the other party (best-effort).
		other := dealerID
		if userID == dealerID && technicianID != nil {
			other = *technicianID
		}
		_ = alerts.CreateNotification(other, notifyType, okMsg, "", &jobID, nil)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": okMsg, "status": to})
}

// ApproveCompletion is the dealer signing off the work. In one transaction
// the job completes and the escrowed funds split into the technician's
// immediate payout plus a warranty hold; trust scores recompute after
// commit.
// POST /jobs/:id/approve-completion
func ApproveCompletion(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	ctx := context.Background()

	var dealerID string
	var technicianID *string
	var current jobstate.Status
	err := db.Conn.QueryRow(ctx,
		`SELECT dealer_id, technician_id, status FROM jobs WHERE id = $1`, jobID,
	).Scan(&dealerID, &technicianID, &current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}

	isAdmin := role == "admin" || role == "superadmin"
	if !isAdmin && userID != dealerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the job's dealer may approve completion"})
	}
	if allowed, reason := jobstate.ValidateTransition(current, jobstate.StatusCompleted, actorRole(role)); !allowed {
		return c.JSON(http.StatusConflict, echo.Map{"error": reason})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE jobs SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'completion_pending_approval'`, jobID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update job"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job state changed concurrently"})
	}

	release, err := escrow.ReleaseInTx(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, escrow.ErrNothingToRelease) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no escrowed payment found for this job"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release escrow"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	// Reputation reflects the outcome for both parties.
	_ = trust.Recalculate(ctx, release.TechnicianID, "technician", "job_completed", jobID)
	_ = trust.Recalculate(ctx, dealerID, "dealer", "job_completed", jobID)

	var techEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, release.TechnicianID).Scan(&techEmail)
	if techEmail != "" {
		_ = alerts.EnqueueJobCompleted(jobID, dealerID, release.TechnicianID, techEmail, release.Immediate, release.HoldAmount)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":             "job completed; payout released",
		"released_amount":     release.Immediate,
		"warranty_hold":       release.HoldAmount,
		"warranty_expires_at": release.HoldExpiresAt.UTC().Format(time.RFC3339),
	})
}

// CancelJob cancels a job from any non-terminal state the caller's role is
// allowed to. All live bids die with it, and captured-but-unreleased funds
// go back to the dealer.
// POST /jobs/:id/cancel
func CancelJob(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&req)

	ctx := context.Background()

	var dealerID string
	var technicianID *string
	var current jobstate.Status
	err := db.Conn.QueryRow(ctx,
		`SELECT dealer_id, technician_id, status FROM jobs WHERE id = $1`, jobID,
	).Scan(&dealerID, &technicianID, &current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}

	isAdmin := role == "admin" || role == "superadmin"
	if !isAdmin && userID != dealerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the job's dealer may cancel"})
	}
	if allowed, reason := jobstate.ValidateTransition(current, jobstate.StatusCancelled, actorRole(role)); !allowed {
		return c.JSON(http.StatusConflict, echo.Map{"error": reason})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE jobs SET status = 'cancelled', cancelled_at = NOW(),
		        soft_locked_by = NULL, soft_locked_at = NULL, soft_lock_expires_at = NULL,
		        payment_deadline_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = $2`, jobID, current,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel job"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job state changed concurrently"})
	}

	// The whole negotiation log dies with the job, atomically.
	_, err = tx.Exec(ctx,
		`UPDATE job_bids SET status = 'rejected', updated_at = NOW()
		 WHERE job_id = $1 AND status IN ('pending','countered','accepted')`, jobID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel bids"})
	}

	refund, err := escrow.RefundInTx(ctx, tx, jobID, req.Reason)
	if err != nil {
		if errors.Is(err, escrow.ErrAlreadyReleased) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "funds already released; job can no longer be cancelled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to refund escrow"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	// Cancelling out from under an assigned technician costs reputation.
	if technicianID != nil && !isAdmin {
		_ = trust.Recalculate(ctx, dealerID, "dealer", "job_cancelled", jobID)
	}
	if technicianID != nil {
		var techEmail string
		_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, *technicianID).Scan(&techEmail)
		if techEmail != "" {
			_ = alerts.EnqueueJobCancelled(jobID, dealerID, *technicianID, techEmail, refund.Amount)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":         "job cancelled",
		"refunded_amount": refund.Amount,
	})
}
