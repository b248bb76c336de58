package wallet

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

type confirmRequest struct {
	Outcome string `json:"outcome"` // paid | rejected
}

// ConfirmWithdrawal settles a pending withdrawal. Marking it paid finalizes
// the earlier debit; rejecting it returns the funds to the wallet. Sits
// behind AdminGuard.
// POST /admin/withdrawals/:id/confirm
func ConfirmWithdrawal(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Outcome = strings.ToLower(strings.TrimSpace(req.Outcome))
	if req.Outcome != "paid" && req.Outcome != "rejected" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "outcome must be paid or rejected"})
	}

	withdrawalID := c.Param("id")
	ctx := context.Background()

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start transaction"})
	}
	defer tx.Rollback(ctx)

	var userID, status string
	var amount int64
	err = tx.QueryRow(ctx,
		`SELECT user_id, amount, status FROM withdrawals WHERE id = $1 FOR UPDATE`, withdrawalID,
	).Scan(&userID, &amount, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "withdrawal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch withdrawal"})
	}
	if status != "pending" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "withdrawal already " + status})
	}

	_, err = tx.Exec(ctx,
		`UPDATE withdrawals SET status = $1, confirmed_at = NOW() WHERE id = $2`,
		req.Outcome, withdrawalID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update withdrawal"})
	}

	if req.Outcome == "rejected" {
		_, err = tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`, amount, userID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not return funds"})
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO transactions (id, user_id, type, amount, status, reference, created_at)
			 VALUES ($1, $2, 'credit', $3, 'withdrawal_rejected', $4, NOW())`,
			uuid.New().String(), userID, amount, withdrawalID,
		)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record transaction"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not confirm withdrawal"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"withdrawal_id": withdrawalID,
		"status":        req.Outcome,
	})
}
