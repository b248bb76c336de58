package trust

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

type adjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// ManualAdjust applies an operator correction to a user's score. Admins are
// bounded to five points either way; a superadmin may move the score
// anywhere. The result is always clamped and always leaves a history row.
// POST /admin/users/:id/trust-adjust
func ManualAdjust(c echo.Context) error {
	actorID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)

	var req adjustRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Delta == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "delta must be non-zero"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}
	if role != "superadmin" && (req.Delta > 5 || req.Delta < -5) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "adjustments beyond ±5 require superadmin"})
	}

	targetID := c.Param("id")
	ctx := context.Background()

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	defer tx.Rollback(ctx)

	var previous int
	var userType string
	err = tx.QueryRow(ctx,
		`SELECT trust_score, role FROM users WHERE id = $1 FOR UPDATE`, targetID,
	).Scan(&previous, &userType)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}
	if userType != "dealer" && userType != "technician" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only dealer and technician accounts carry a trust score"})
	}

	newScore := Clamp(previous + req.Delta)

	reasonCode := "manual_adjust"
	if req.Delta < 0 {
		reasonCode = "penalty"
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO trust_score_history (id, user_id, user_type, previous_score, new_score, reason_code, reason, actor_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), targetID, userType, previous, newScore, reasonCode, req.Reason, actorID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record adjustment"})
	}
	_, err = tx.Exec(ctx,
		`UPDATE users SET trust_score = $1 WHERE id = $2`, newScore, targetID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update score"})
	}
	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit adjustment"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id":        targetID,
		"previous_score": previous,
		"new_score":      newScore,
	})
}
