package user

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

type PublicProfile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	Region        string    `json:"region,omitempty"`
	TrustScore    int       `json:"trust_score"`
	JobsCompleted int       `json:"jobs_completed"`
	TotalReviews  int       `json:"total_reviews"`
	AverageRating float64   `json:"average_rating"`
	MemberSince   time.Time `json:"member_since"`
}

// GetPublicProfile returns the public view of a dealer or technician,
// including the denormalized trust score and review aggregates.
// GET /user/:id/profile
func GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if _, err := uuid.Parse(userID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx := context.Background()

	var p PublicProfile
	err := db.Conn.QueryRow(ctx,
		`SELECT id, name, role, region, trust_score, created_at
		 FROM users WHERE id = $1 AND is_active = TRUE`, userID,
	).Scan(&p.ID, &p.Name, &p.Role, &p.Region, &p.TrustScore, &p.MemberSince)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	switch p.Role {
	case "technician":
		_ = db.Conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM jobs WHERE technician_id = $1 AND status = 'completed'`, userID,
		).Scan(&p.JobsCompleted)
		_ = db.Conn.QueryRow(ctx,
			`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM job_reviews WHERE technician_id = $1`, userID,
		).Scan(&p.TotalReviews, &p.AverageRating)
	case "dealer":
		_ = db.Conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM jobs WHERE dealer_id = $1 AND status = 'completed'`, userID,
		).Scan(&p.JobsCompleted)
	}

	return c.JSON(http.StatusOK, p)
}
