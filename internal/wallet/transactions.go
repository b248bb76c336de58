package wallet

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

type TransactionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Reference *string   `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetUserTransactions returns the caller's wallet ledger, newest first.
// GET /wallet/transactions
func GetUserTransactions(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, user_id, type, amount, status, reference, created_at
		 FROM transactions WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT 200`, userID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	defer rows.Close()

	txs := []TransactionResponse{}
	for rows.Next() {
		var t TransactionResponse
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transaction record"})
		}
		txs = append(txs, t)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// AdminGetAllTransactions returns the whole transaction ledger for
// monitoring. Sits behind AdminGuard.
// GET /admin/transactions
func AdminGetAllTransactions(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, user_id, type, amount, status, reference, created_at
		 FROM transactions ORDER BY created_at DESC LIMIT 500`,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	defer rows.Close()

	txs := []TransactionResponse{}
	for rows.Next() {
		var t TransactionResponse
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transaction record"})
		}
		txs = append(txs, t)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}
