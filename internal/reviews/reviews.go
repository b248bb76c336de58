package reviews

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/db"
	"github.com/fixlinkhq/fixlink/internal/trust"
)

type createRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type Review struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	DealerID     string    `json:"dealer_id"`
	TechnicianID string    `json:"technician_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateReview lets the dealer rate the technician once per completed job.
// The rating feeds the technician's trust score, so a recompute follows.
// POST /jobs/:id/review
func CreateReview(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}

	jobID := c.Param("id")
	ctx := context.Background()

	var dealerID, status string
	var technicianID *string
	err := db.Conn.QueryRow(ctx,
		`SELECT dealer_id, technician_id, status FROM jobs WHERE id = $1`, jobID,
	).Scan(&dealerID, &technicianID, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}
	if userID != dealerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the job's dealer may review"})
	}
	if status != "completed" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job is not completed"})
	}
	if technicianID == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job has no assigned technician"})
	}

	var exists bool
	err = db.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM job_reviews WHERE job_id = $1)`, jobID,
	).Scan(&exists)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check existing review"})
	}
	if exists {
		return c.JSON(http.StatusConflict, echo.Map{"error": "job already reviewed"})
	}

	reviewID := uuid.New().String()
	_, err = db.Conn.Exec(ctx,
		`INSERT INTO job_reviews (id, job_id, dealer_id, technician_id, rating, comment)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		reviewID, jobID, dealerID, *technicianID, req.Rating, strings.TrimSpace(req.Comment),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save review"})
	}

	_ = trust.Recalculate(ctx, *technicianID, "technician", "review_received", jobID)
	title := "New review"
	_ = alerts.CreateNotification(*technicianID, "review:created", title, "", &jobID, nil)

	return c.JSON(http.StatusCreated, echo.Map{"id": reviewID, "rating": req.Rating})
}

// GetTechnicianReviews lists a technician's reviews with the aggregate.
// GET /technicians/:id/reviews
func GetTechnicianReviews(c echo.Context) error {
	technicianID := c.Param("id")
	ctx := context.Background()

	var avg float64
	var count int
	err := db.Conn.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM job_reviews WHERE technician_id = $1`, technicianID,
	).Scan(&avg, &count)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch review summary"})
	}

	rows, err := db.Conn.Query(ctx,
		`SELECT id, job_id, dealer_id, technician_id, rating, comment, created_at
		 FROM job_reviews WHERE technician_id = $1 ORDER BY created_at DESC LIMIT 100`, technicianID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reviews"})
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.JobID, &r.DealerID, &r.TechnicianID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read reviews"})
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"average_rating": avg,
		"review_count":   count,
		"reviews":        out,
	})
}
