package bidding

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

// ListJobBids returns a job's full negotiation log, grouped into ordered
// chains per technician, plus who each chain is waiting on.
// GET /jobs/:id/bids
func ListJobBids(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	jobID := c.Param("id")
	ctx := context.Background()

	var dealerID string
	if err := db.Conn.QueryRow(ctx, `SELECT dealer_id FROM jobs WHERE id = $1`, jobID).Scan(&dealerID); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
	}

	query := `SELECT id, job_id, technician_id, amount, status, is_counter_offer, offered_by, previous_bid_id, created_at, updated_at
	          FROM job_bids WHERE job_id = $1 ORDER BY created_at ASC`
	args := []any{jobID}
	// Technicians only see their own negotiation.
	if userID != dealerID && role != "admin" && role != "superadmin" {
		query = `SELECT id, job_id, technician_id, amount, status, is_counter_offer, offered_by, previous_bid_id, created_at, updated_at
		         FROM job_bids WHERE job_id = $1 AND technician_id = $2 ORDER BY created_at ASC`
		args = append(args, userID)
	}

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch bids"})
	}
	defer rows.Close()

	byTech := make(map[string][]Bid)
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.JobID, &b.TechnicianID, &b.Amount, &b.Status,
			&b.IsCounterOffer, &b.OfferedBy, &b.PreviousBidID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		byTech[b.TechnicianID] = append(byTech[b.TechnicianID], b)
	}

	type negotiation struct {
		TechnicianID     string `json:"technician_id"`
		Bids             []Bid  `json:"bids"`
		AwaitingResponse string `json:"awaiting_response,omitempty"`
	}
	out := make([]negotiation, 0, len(byTech))
	for tech, bids := range byTech {
		chain, err := Chain(bids)
		if err != nil {
			// A malformed chain is a data bug; surface the raw log rather
			// than hiding the bids.
			out = append(out, negotiation{TechnicianID: tech, Bids: bids})
			continue
		}
		out = append(out, negotiation{
			TechnicianID:     tech,
			Bids:             chain,
			AwaitingResponse: AwaitingResponse(chain),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"negotiations": out})
}
