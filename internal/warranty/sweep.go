package warranty

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/db"
	"github.com/fixlinkhq/fixlink/internal/escrow"
)

// ReleaseExpired pays out every locked hold whose warranty window has
// passed with no open issue. Frozen holds are untouched; they wait for an
// admin ruling regardless of the clock. Each payout runs in its own
// transaction behind a CAS on locked, so re-running the sweep, or a report
// racing it, cannot double-settle a hold.
func ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT id FROM warranty_holds WHERE status = 'locked' AND expires_at <= $1`, now,
	)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()

	released := 0
	for _, id := range ids {
		ok, technicianID, jobID, err := releaseExpiredHold(ctx, id)
		if err != nil {
			log.Printf("[sweep] warranty release failed for hold %s: %v", id, err)
			continue
		}
		if !ok {
			continue
		}
		released++
		log.Printf("[sweep] warranty window elapsed, hold %s released", id)
		title := "Warranty hold released"
		body := "The warranty window passed with no issue; the held amount has been paid out."
		_ = alerts.CreateNotification(technicianID, "warranty:released", title, body, &jobID, nil)
	}
	return released, nil
}

func releaseExpiredHold(ctx context.Context, holdID string) (bool, string, string, error) {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return false, "", "", err
	}
	defer tx.Rollback(ctx)

	var technicianID, jobID, paymentID string
	err = tx.QueryRow(ctx,
		`SELECT technician_id, job_id, payment_id FROM warranty_holds
		 WHERE id = $1 AND status = 'locked' FOR UPDATE`, holdID,
	).Scan(&technicianID, &jobID, &paymentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			// A freeze or another sweeper won the race.
			return false, "", "", nil
		}
		return false, "", "", err
	}

	if err := escrow.ReleaseHoldInTx(ctx, tx, paymentID, false); err != nil {
		return false, "", "", err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE warranty_holds SET status = 'released', resolved_at = NOW()
		 WHERE id = $1 AND status = 'locked'`, holdID,
	)
	if err != nil {
		return false, "", "", err
	}
	if tag.RowsAffected() == 0 {
		return false, "", "", nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, "", "", err
	}
	return true, technicianID, jobID, nil
}
