package wallet

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

// Balance returns the authenticated user's wallet balance
func Balance(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var balance, escrow int64
	err := db.Conn.QueryRow(context.Background(),
		`SELECT balance, escrow FROM wallets WHERE user_id = $1`, userID).
		Scan(&balance, &escrow)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "wallet not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id": userID,
		"balance": balance,
		"escrow":  escrow,
	})
}
