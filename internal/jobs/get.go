package jobs

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
	"github.com/fixlinkhq/fixlink/internal/jobstate"
)

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.JobNumber, &j.DealerID, &j.TechnicianID, &j.Category, &j.Subcategory,
		&j.Region, &j.Description, &j.Status, &j.EstimatedCost, &j.FinalPrice, &j.PriceLocked,
		&j.SoftLockedBy, &j.SoftLockedAt, &j.SoftLockExpiresAt, &j.PaymentDeadlineAt,
		&j.CreatedAt, &j.AssignedAt, &j.CompletedAt, &j.CancelledAt)
	return j, err
}

// GetJob returns one job in full.
// GET /jobs/:id
func GetJob(c echo.Context) error {
	jobID := c.Param("id")
	j, err := scanJob(db.Conn.QueryRow(context.Background(),
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}
	return c.JSON(http.StatusOK, j)
}

// GetJobStatus is the cheap polling endpoint clients hit while waiting on
// locks and payments.
// GET /jobs/:id/status
func GetJobStatus(c echo.Context) error {
	jobID := c.Param("id")
	var status jobstate.Status
	var lockExpiry, payDeadline *string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT status, to_char(soft_lock_expires_at, 'YYYY-MM-DD"T"HH24:MI:SSZ'),
		        to_char(payment_deadline_at, 'YYYY-MM-DD"T"HH24:MI:SSZ')
		 FROM jobs WHERE id = $1`, jobID,
	).Scan(&status, &lockExpiry, &payDeadline)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":               status,
		"soft_lock_expires_at": lockExpiry,
		"payment_deadline_at":  payDeadline,
	})
}

// ListJobs returns open jobs for technicians to browse, or the caller's own
// jobs when mine=1.
// GET /jobs
func ListJobs(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	ctx := context.Background()

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = 'pending' ORDER BY created_at DESC LIMIT 100`
	args := []any{}
	if c.QueryParam("mine") == "1" && userID != "" {
		if role == "technician" {
			query = `SELECT ` + jobColumns + ` FROM jobs
			         WHERE technician_id = $1 OR soft_locked_by = $1
			         ORDER BY created_at DESC LIMIT 100`
		} else {
			query = `SELECT ` + jobColumns + ` FROM jobs WHERE dealer_id = $1 ORDER BY created_at DESC LIMIT 100`
		}
		args = append(args, userID)
	}

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch jobs"})
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		out = append(out, j)
	}
	return c.JSON(http.StatusOK, echo.Map{"jobs": out})
}
