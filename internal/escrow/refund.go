package escrow

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"

	"github.com/fixlinkhq/fixlink/internal/db"
)

// Refund is the result of reversing a job's escrow back to the dealer.
type Refund struct {
	Amount   int64
	DealerID string
}

// RefundInTx reverses a cancelled job's payments inside the caller's
// transaction: escrowed funds return to the dealer's wallet, open intents
// are marked failed. Once any leg has been released the job can no longer
// be refunded and ErrAlreadyReleased comes back.
func RefundInTx(ctx context.Context, tx pgx.Tx, jobID, reason string) (Refund, error) {
	var out Refund

	rows, err := tx.Query(ctx,
		`SELECT id, dealer_id, technician_id, gross_amount, net_amount, status FROM job_payments
		 WHERE job_id = $1 FOR UPDATE`, jobID,
	)
	if err != nil {
		return out, err
	}
	type row struct {
		id, dealerID, technicianID, status string
		gross, net                         int64
	}
	var payments []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.dealerID, &r.technicianID, &r.gross, &r.net, &r.status); err != nil {
			rows.Close()
			return out, err
		}
		payments = append(payments, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	for _, p := range payments {
		if p.status == StatusReleased {
			return Refund{}, ErrAlreadyReleased
		}
	}

	for _, p := range payments {
		switch p.status {
		case StatusEscrowHold:
			_, err = tx.Exec(ctx,
				`UPDATE job_payments SET status = 'refunded', updated_at = NOW() WHERE id = $1`, p.id)
			if err != nil {
				return Refund{}, err
			}
			if err := creditWalletInTx(ctx, tx, p.dealerID, p.gross, "refund", jobID); err != nil {
				return Refund{}, err
			}
			if err := adjustEscrowInTx(ctx, tx, p.technicianID, -p.net); err != nil {
				return Refund{}, err
			}
			out.Amount += p.gross
			out.DealerID = p.dealerID
		case StatusPending:
			_, err = tx.Exec(ctx,
				`UPDATE job_payments SET status = 'failed', updated_at = NOW() WHERE id = $1`, p.id)
			if err != nil {
				return Refund{}, err
			}
		}
	}

	if out.Amount > 0 {
		log.Printf("[escrow] refunded %d to dealer %s for job %s (%s)", out.Amount, out.DealerID, jobID, reason)
	}
	return out, nil
}

// ListJobPayments returns the escrow ledger for one job.
func ListJobPayments(ctx context.Context, jobID string) ([]Payment, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT id, job_id, dealer_id, technician_id, intent_id, gross_amount, commission_type,
		        commission_value, commission_amount, net_amount, payment_type, is_warranty_hold,
		        status, released_at, created_at
		 FROM job_payments WHERE job_id = $1 ORDER BY created_at ASC`, jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.JobID, &p.DealerID, &p.TechnicianID, &p.IntentID,
			&p.GrossAmount, &p.CommissionType, &p.CommissionValue, &p.CommissionAmount,
			&p.NetAmount, &p.PaymentType, &p.IsWarrantyHold, &p.Status, &p.ReleasedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
