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

type CounterOfferRequest struct {
	Amount int64 `json:"amount"`
}

// CounterOffer appends a revised price to a negotiation chain. The caller
// must be the party the chain is waiting on: the job's dealer for a
// technician offer, the bidding technician for a dealer counter.
// POST /bids/:id/counter
func CounterOffer(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	bidID := c.Param("id")
	if bidID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing bid id"})
	}

	var req CounterOfferRequest
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "counter amount must be positive"})
	}

	ctx := context.Background()

	var jobID, technicianID, bidStatus, offeredBy, dealerID, jobStatus string
	err := db.Conn.QueryRow(ctx,
		`SELECT b.job_id, b.technician_id, b.status, b.offered_by, j.dealer_id, j.status
		 FROM job_bids b JOIN jobs j ON j.id = b.job_id
		 WHERE b.id = $1`, bidID,
	).Scan(&jobID, &technicianID, &bidStatus, &offeredBy, &dealerID, &jobStatus)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bid not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch bid"})
	}

	if jobStatus != "pending" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job is no longer negotiable"})
	}
	if bidStatus != StatusPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bid is not awaiting a response"})
	}

	// Only the awaited side may counter.
	var counterBy string
	switch {
	case offeredBy == "technician" && userID == dealerID:
		counterBy = "dealer"
	case offeredBy == "dealer" && userID == technicianID:
		counterBy = "technician"
	case role == "admin" || role == "superadmin":
		if offeredBy == "technician" {
			counterBy = "dealer"
		} else {
			counterBy = "technician"
		}
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "it is not your turn to respond on this bid"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	// Supersede the countered bid; guard on status so concurrent responses
	// to the same offer cannot both land.
	res, err := tx.Exec(ctx,
		`UPDATE job_bids SET status = 'countered', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, bidID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update bid"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bid was answered concurrently"})
	}

	counterID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO job_bids (id, job_id, technician_id, amount, status, is_counter_offer, offered_by, previous_bid_id, created_at)
		 VALUES ($1, $2, $3, $4, 'pending', TRUE, $5, $6, $7)`,
		counterID, jobID, technicianID, req.Amount, counterBy, bidID, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create counter-offer"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"bid_id": counterID, "previous_bid_id": bidID})
}

// RejectBid declines the offer currently awaiting the caller. Rejecting a
// counter-offer reopens the bid it answered, so the negotiation survives.
// POST /bids/:id/reject
func RejectBid(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	bidID := c.Param("id")
	if bidID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing bid id"})
	}

	ctx := context.Background()

	var technicianID, offeredBy, dealerID string
	var previousBidID *string
	err := db.Conn.QueryRow(ctx,
		`SELECT b.technician_id, b.offered_by, b.previous_bid_id, j.dealer_id
		 FROM job_bids b JOIN jobs j ON j.id = b.job_id
		 WHERE b.id = $1`, bidID,
	).Scan(&technicianID, &offeredBy, &previousBidID, &dealerID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bid not found"})
	}

	allowed := (offeredBy == "technician" && userID == dealerID) ||
		(offeredBy == "dealer" && userID == technicianID) ||
		role == "admin" || role == "superadmin"
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "it is not your turn to respond on this bid"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE job_bids SET status = 'rejected', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, bidID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reject bid"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bid is not awaiting a response"})
	}

	if previousBidID != nil {
		_, err = tx.Exec(ctx,
			`UPDATE job_bids SET status = 'pending', updated_at = NOW()
			 WHERE id = $1 AND status = 'countered'`, *previousBidID,
		)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reopen previous bid"})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	msg := "bid rejected"
	if previousBidID != nil {
		msg = "counter-offer rejected; previous offer reopened"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}
