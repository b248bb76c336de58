package warranty

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

const holdColumns = `id, job_id, payment_id, technician_id, dealer_id, hold_amount, status,
	issue_description, issue_reported_by, issue_reported_at,
	resolution, resolved_by, resolved_at, created_at, expires_at`

func scanHold(row pgx.Row) (Hold, error) {
	var h Hold
	err := row.Scan(&h.ID, &h.JobID, &h.PaymentID, &h.TechnicianID, &h.DealerID, &h.HoldAmount, &h.Status,
		&h.IssueDesc, &h.IssueReportedBy, &h.IssueReportedAt,
		&h.Resolution, &h.ResolvedBy, &h.ResolvedAt, &h.CreatedAt, &h.ExpiresAt)
	return h, err
}

// GetHold returns one hold. Visible to its dealer, its technician, and admins.
// GET /warranty/:id
func GetHold(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	holdID := c.Param("id")

	h, err := scanHold(db.Conn.QueryRow(context.Background(),
		`SELECT `+holdColumns+` FROM warranty_holds WHERE id = $1`, holdID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "warranty hold not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch warranty hold"})
	}
	if userID != h.DealerID && userID != h.TechnicianID && role != "admin" && role != "superadmin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a party to this hold"})
	}
	return c.JSON(http.StatusOK, h)
}

// ListMyHolds returns the caller's holds, newest first. Technicians see
// holds on their payouts; dealers see holds on jobs they paid for.
// GET /warranty
func ListMyHolds(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	ownerCol := "technician_id"
	if role == "dealer" {
		ownerCol = "dealer_id"
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT `+holdColumns+` FROM warranty_holds WHERE `+ownerCol+` = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch warranty holds"})
	}
	defer rows.Close()

	out := []Hold{}
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read warranty holds"})
		}
		out = append(out, h)
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": out})
}
