package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

type MeResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Region     string    `json:"region,omitempty"`
	TrustScore int       `json:"trust_score"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Me returns the authenticated user's profile.
func Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var resp MeResponse
	err := db.Conn.QueryRow(context.Background(),
		`SELECT id, name, email, role, region, trust_score, is_active, created_at
		 FROM users WHERE id = $1`, userID,
	).Scan(&resp.ID, &resp.Name, &resp.Email, &resp.Role, &resp.Region, &resp.TrustScore, &resp.IsActive, &resp.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, resp)
}
