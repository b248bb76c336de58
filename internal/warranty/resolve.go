package warranty

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/db"
	"github.com/fixlinkhq/fixlink/internal/escrow"
	"github.com/fixlinkhq/fixlink/internal/trust"
)

type resolveRequest struct {
	Outcome string `json:"outcome"` // unfounded | released | forfeited
	Notes   string `json:"notes"`
}

// ResolveIssue rules on a frozen hold. Unfounded thaws it back to locked,
// released pays the technician out, forfeited claws the hold back to the
// dealer and costs the technician trust. Admin-only; the route sits behind
// AdminGuard.
// POST /warranty/:id/resolve
func ResolveIssue(c echo.Context) error {
	actorID, _ := c.Get("user_id").(string)

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Outcome = strings.ToLower(strings.TrimSpace(req.Outcome))

	target := ""
	switch req.Outcome {
	case ResolutionUnfounded:
		target = StatusLocked
	case ResolutionReleased:
		target = StatusReleased
	case ResolutionForfeited:
		target = StatusForfeited
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "outcome must be unfounded, released or forfeited"})
	}

	holdID := c.Param("id")
	ctx := context.Background()

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	defer tx.Rollback(ctx)

	var status, paymentID, technicianID, dealerID, jobID string
	var amount int64
	err = tx.QueryRow(ctx,
		`SELECT status, payment_id, technician_id, dealer_id, job_id, hold_amount
		 FROM warranty_holds WHERE id = $1 FOR UPDATE`, holdID,
	).Scan(&status, &paymentID, &technicianID, &dealerID, &jobID, &amount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "warranty hold not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch warranty hold"})
	}
	if status != StatusFrozen {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only a frozen hold can be resolved, current status is " + status})
	}
	if ok, reason := ValidateTransition(status, target); !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": reason})
	}

	switch req.Outcome {
	case ResolutionUnfounded:
		// Thaw; the expiry clock keeps running from the original window.
		_, err = tx.Exec(ctx,
			`UPDATE warranty_holds
			 SET status = 'locked', resolution = 'unfounded', resolved_by = $1, resolved_at = NOW()
			 WHERE id = $2`, actorID, holdID,
		)
	case ResolutionReleased:
		if err = escrow.ReleaseHoldInTx(ctx, tx, paymentID, false); err == nil {
			_, err = tx.Exec(ctx,
				`UPDATE warranty_holds
				 SET status = 'released', resolution = 'released', resolved_by = $1, resolved_at = NOW()
				 WHERE id = $2`, actorID, holdID,
			)
		}
	case ResolutionForfeited:
		if err = escrow.ReleaseHoldInTx(ctx, tx, paymentID, true); err == nil {
			_, err = tx.Exec(ctx,
				`UPDATE warranty_holds
				 SET status = 'forfeited', resolution = 'forfeited', resolved_by = $1, resolved_at = NOW()
				 WHERE id = $2`, actorID, holdID,
			)
		}
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve hold"})
	}
	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit resolution"})
	}

	switch req.Outcome {
	case ResolutionUnfounded:
		title := "Warranty issue dismissed"
		body := "The reported issue was ruled unfounded; your hold is locked again until its window ends."
		_ = alerts.CreateNotification(technicianID, "warranty:unfounded", title, body, &jobID, nil)
	case ResolutionReleased:
		title := "Warranty hold released"
		body := "The reported issue was resolved in your favor; the held amount has been paid out."
		_ = alerts.CreateNotification(technicianID, "warranty:released", title, body, &jobID, nil)
	case ResolutionForfeited:
		title := "Warranty hold forfeited"
		body := "The reported issue was confirmed; the held amount was returned to the dealer."
		_ = alerts.CreateNotification(technicianID, "warranty:forfeited", title, body, &jobID, nil)
		_ = alerts.CreateNotification(dealerID, "warranty:refunded", "Warranty claim upheld", "The technician's hold was returned to your wallet.", &jobID, nil)
		// The forfeit now counts against the technician's record.
		_ = trust.Recalculate(ctx, technicianID, "technician", "warranty_forfeited", jobID)
		_ = alerts.EnqueueAdminAlert(actorID, "warning",
			fmt.Sprintf("warranty hold %s on job %s forfeited; %d returned to dealer %s", holdID, jobID, amount, dealerID))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"hold_id": holdID,
		"status":  target,
		"amount":  amount,
	})
}
