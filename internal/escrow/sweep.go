package escrow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/db"
)

// ExpirePaymentDeadlines reopens every job whose dealer let the payment
// window lapse. Uncaptured intents are marked failed, the accepted bid goes
// back to pending, and the job returns to open bidding with its price
// unlocked. Each revert runs in its own transaction behind a status
// compare-and-swap, so concurrent sweepers and a racing capture cannot both
// win the same job.
func ExpirePaymentDeadlines(ctx context.Context, now time.Time) (int, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT id FROM jobs WHERE status = 'waiting_for_payment' AND payment_deadline_at <= $1`, now,
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

	reverted := 0
	for _, id := range ids {
		ok, dealerID, err := revertExpiredPayment(ctx, id)
		if err != nil {
			log.Printf("[sweep] payment-deadline revert failed for job %s: %v", id, err)
			continue
		}
		if !ok {
			continue
		}
		reverted++
		log.Printf("[sweep] payment window expired, job %s reopened for bidding", id)
		if dealerID != "" {
			title := "Payment window expired"
			body := "Your job was reopened for bidding because payment was not completed in time."
			_ = alerts.CreateNotification(dealerID, "payment:expired", title, body, &id, nil)
		}
	}
	return reverted, nil
}

func revertExpiredPayment(ctx context.Context, jobID string) (bool, string, error) {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return false, "", err
	}
	defer tx.Rollback(ctx)

	var status, dealerID string
	err = tx.QueryRow(ctx,
		`SELECT status, dealer_id FROM jobs WHERE id = $1 FOR UPDATE`, jobID,
	).Scan(&status, &dealerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, "", nil
		}
		return false, "", err
	}
	if status != "waiting_for_payment" {
		// Captured, cancelled, or already reverted under us.
		return false, "", nil
	}

	// A capture that slipped in between the deadline check and this lock
	// would have moved the job off waiting_for_payment, so any escrowed row
	// here means the webhook landed but the job update lost; leave it for
	// the operator rather than orphaning money.
	var escrowed int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_payments WHERE job_id = $1 AND status IN ('escrow_hold', 'released')`,
		jobID,
	).Scan(&escrowed)
	if err != nil {
		return false, "", err
	}
	if escrowed > 0 {
		log.Printf("[sweep] job %s has captured funds but sits in waiting_for_payment; skipping revert", jobID)
		_ = alerts.EnqueueAdminAlert("sweeper", "critical",
			fmt.Sprintf("job %s has captured funds but sits in waiting_for_payment; needs manual reconciliation", jobID))
		return false, "", nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE job_payments SET status = 'failed', updated_at = NOW()
		 WHERE job_id = $1 AND status = 'pending'`, jobID,
	)
	if err != nil {
		return false, "", err
	}
	_, err = tx.Exec(ctx,
		`UPDATE jobs SET status = 'pending', soft_locked_by = NULL, soft_locked_at = NULL,
		        soft_lock_expires_at = NULL, payment_deadline_at = NULL,
		        final_price = NULL, price_locked = FALSE, updated_at = NOW()
		 WHERE id = $1 AND status = 'waiting_for_payment'`, jobID,
	)
	if err != nil {
		return false, "", err
	}
	_, err = tx.Exec(ctx,
		`UPDATE job_bids SET status = 'pending', updated_at = NOW()
		 WHERE job_id = $1 AND status = 'accepted'`, jobID,
	)
	if err != nil {
		return false, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, "", err
	}
	return true, dealerID, nil
}
