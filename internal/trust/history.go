package trust

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

type historyRow struct {
	ID            string    `json:"id"`
	UserType      string    `json:"user_type"`
	PreviousScore int       `json:"previous_score"`
	NewScore      int       `json:"new_score"`
	ReasonCode    string    `json:"reason_code"`
	Reason        string    `json:"reason"`
	ActorID       *string   `json:"actor_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// GetHistory lists the score ledger for a user, newest first. Users may
// read their own; admins may read anyone's.
// GET /users/:id/trust-history
func GetHistory(c echo.Context) error {
	callerID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	targetID := c.Param("id")

	if callerID != targetID && role != "admin" && role != "superadmin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot view another user's trust history"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, user_type, previous_score, new_score, reason_code, reason, actor_id, created_at
		 FROM trust_score_history WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT 200`, targetID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch trust history"})
	}
	defer rows.Close()

	out := []historyRow{}
	for rows.Next() {
		var h historyRow
		if err := rows.Scan(&h.ID, &h.UserType, &h.PreviousScore, &h.NewScore, &h.ReasonCode, &h.Reason, &h.ActorID, &h.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read trust history"})
		}
		out = append(out, h)
	}
	return c.JSON(http.StatusOK, echo.Map{"history": out})
}
