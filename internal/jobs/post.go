package jobs

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

type PostJobRequest struct {
	Category      string `json:"category"`
	Subcategory   string `json:"subcategory"`
	Region        string `json:"region"`
	Description   string `json:"description"`
	EstimatedCost int64  `json:"estimated_cost"`
}

// PostJob creates a new job in pending status, open for bids.
// POST /jobs
func PostJob(c echo.Context) error {
	dealerID, ok := c.Get("user_id").(string)
	if !ok || dealerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req PostJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category is required"})
	}
	if req.EstimatedCost < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "estimated cost cannot be negative"})
	}

	ctx := context.Background()

	// Fall back to the dealer's region when the job doesn't carry one,
	// so region-scoped commission rules still apply.
	if req.Region == "" {
		_ = db.Conn.QueryRow(ctx, `SELECT region FROM users WHERE id = $1`, dealerID).Scan(&req.Region)
	}

	jobID := uuid.New().String()
	jobNumber := newJobNumber()
	_, err := db.Conn.Exec(ctx,
		`INSERT INTO jobs (id, job_number, dealer_id, category, subcategory, region, description, estimated_cost, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9)`,
		jobID, jobNumber, dealerID, req.Category, req.Subcategory, req.Region, req.Description, req.EstimatedCost, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create job"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"job_id":     jobID,
		"job_number": jobNumber,
		"status":     "pending",
	})
}

// newJobNumber builds the human-readable reference dealers quote on calls.
// Uniqueness is enforced by the column constraint; a collision on insert is
// astronomically unlikely but would surface as a 500 and a retry.
func newJobNumber() string {
	return fmt.Sprintf("FXL-%s-%04d", time.Now().Format("20060102"), rand.Intn(10000))
}
