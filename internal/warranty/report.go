package warranty

import (
	"context"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/db"
)

type reportRequest struct {
	Description string `json:"description"`
}

// ReportIssue freezes a locked hold while the reported problem is reviewed.
// Only the job's dealer may report; rework goes back to the original
// technician, so the technician is notified immediately.
// POST /warranty/:id/report
func ReportIssue(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req reportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description is required"})
	}

	holdID := c.Param("id")
	ctx := context.Background()

	var dealerID, technicianID, jobID, status string
	err := db.Conn.QueryRow(ctx,
		`SELECT dealer_id, technician_id, job_id, status FROM warranty_holds WHERE id = $1`, holdID,
	).Scan(&dealerID, &technicianID, &jobID, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "warranty hold not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch warranty hold"})
	}
	if userID != dealerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the job's dealer may report an issue"})
	}
	if ok, reason := ValidateTransition(status, StatusFrozen); !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": reason})
	}

	// CAS on locked so a racing expiry sweep and a report cannot both win.
	tag, err := db.Conn.Exec(ctx,
		`UPDATE warranty_holds
		 SET status = 'frozen', issue_description = $1, issue_reported_by = $2, issue_reported_at = NOW()
		 WHERE id = $3 AND status = 'locked'`,
		req.Description, userID, holdID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to freeze hold"})
	}
	if tag.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold was released or frozen concurrently"})
	}

	title := "Warranty issue reported"
	_ = alerts.CreateNotification(technicianID, "warranty:frozen", title, req.Description, &jobID, nil)
	var techEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, technicianID).Scan(&techEmail)
	if techEmail != "" {
		_ = alerts.EnqueueWarrantyIssue(holdID, jobID, technicianID, techEmail, req.Description)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "issue reported; hold frozen pending review",
		"hold_id": holdID,
		"status":  StatusFrozen,
	})
}
