package trust

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/fixlinkhq/fixlink/internal/db"
)

// Recalculate recomputes a user's score from their job, review and warranty
// history and persists it. The denormalized users.trust_score and the
// history row land in the same transaction, so the ledger never drifts from
// the live value.
func Recalculate(ctx context.Context, userID, userType, reasonCode, jobID string) error {
	stats, err := gatherStats(ctx, userID, userType)
	if err != nil {
		log.Printf("[trust] stats for %s failed: %v", userID, err)
		return err
	}
	newScore := ComputeScore(stats)

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var previous int
	err = tx.QueryRow(ctx,
		`SELECT trust_score FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&previous)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO trust_score_history (id, user_id, user_type, previous_score, new_score, reason_code, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), userID, userType, previous, newScore, reasonCode, "recomputed for job "+jobID,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE users SET trust_score = $1 WHERE id = $2`, newScore, userID,
	)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	if newScore != previous {
		log.Printf("[trust] %s %s: %d -> %d (%s)", userType, userID, previous, newScore, reasonCode)
	}
	return nil
}

func gatherStats(ctx context.Context, userID, userType string) (Stats, error) {
	var s Stats

	ownerCol := "technician_id"
	if userType == "dealer" {
		ownerCol = "dealer_id"
	}
	err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'cancelled' AND technician_id IS NOT NULL)
		 FROM jobs WHERE `+ownerCol+` = $1`, userID,
	).Scan(&s.CompletedJobs, &s.CancelledJobs)
	if err != nil {
		return s, err
	}

	if userType == "technician" {
		err = db.Conn.QueryRow(ctx,
			`SELECT COALESCE(ROUND(AVG(rating) * 100), 0), COUNT(*)
			 FROM job_reviews WHERE technician_id = $1`, userID,
		).Scan(&s.RatingHundredths, &s.ReviewCount)
		if err != nil {
			return s, err
		}

		err = db.Conn.QueryRow(ctx,
			`SELECT COUNT(*) FILTER (WHERE issue_reported_at IS NOT NULL),
			        COUNT(*) FILTER (WHERE status = 'forfeited')
			 FROM warranty_holds WHERE technician_id = $1`, userID,
		).Scan(&s.Complaints, &s.Penalties)
		if err != nil {
			return s, err
		}
		return s, nil
	}

	// Dealers have no review or warranty trail of their own; penalties come
	// from explicit manual rulings recorded in the history ledger.
	err = db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM trust_score_history
		 WHERE user_id = $1 AND reason_code = 'penalty'`, userID,
	).Scan(&s.Penalties)
	return s, err
}
