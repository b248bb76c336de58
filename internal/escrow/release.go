package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fixlinkhq/fixlink/internal/commission"
	"github.com/fixlinkhq/fixlink/internal/config"
)

// Release is the outcome of splitting an escrowed payment at completion.
type Release struct {
	TechnicianID  string
	Immediate     int64
	HoldAmount    int64
	HoldID        string
	HoldExpiresAt time.Time
}

// ReleaseInTx settles a completed job inside the caller's transaction: the
// escrowed service payment splits into an immediate payout credited to the
// technician's wallet and a warranty-hold slice that stays in escrow. The
// released leg is monotonic; re-running on a job with no escrowed payment
// returns ErrNothingToRelease.
func ReleaseInTx(ctx context.Context, tx pgx.Tx, jobID string) (Release, error) {
	var out Release

	var paymentID, dealerID string
	var net int64
	err := tx.QueryRow(ctx,
		`SELECT id, dealer_id, technician_id, net_amount FROM job_payments
		 WHERE job_id = $1 AND payment_type = 'service' AND status = 'escrow_hold'
		 FOR UPDATE`, jobID,
	).Scan(&paymentID, &dealerID, &out.TechnicianID, &net)
	if err != nil {
		if err == pgx.ErrNoRows {
			return out, ErrNothingToRelease
		}
		return out, err
	}

	out.Immediate, out.HoldAmount = commission.SplitHold(net, config.WarrantyHoldPercent())

	// The service row keeps only the released leg; the retained slice moves
	// to its own row so the sum of released net across rows never exceeds
	// the job's final price.
	_, err = tx.Exec(ctx,
		`UPDATE job_payments SET net_amount = $1, status = 'released', released_at = NOW(), updated_at = NOW()
		 WHERE id = $2`, out.Immediate, paymentID,
	)
	if err != nil {
		return out, err
	}

	holdPaymentID := uuid.New().String()
	if out.HoldAmount > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO job_payments (id, job_id, dealer_id, technician_id, gross_amount,
			        commission_type, commission_value, commission_amount, net_amount,
			        payment_type, is_warranty_hold, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, 'percentage', 0, 0, $5, 'warranty_hold', TRUE, 'escrow_hold', NOW())`,
			holdPaymentID, jobID, dealerID, out.TechnicianID, out.HoldAmount,
		)
		if err != nil {
			return out, err
		}

		out.HoldID = uuid.New().String()
		out.HoldExpiresAt = time.Now().Add(config.WarrantyWindow())
		_, err = tx.Exec(ctx,
			`INSERT INTO warranty_holds (id, job_id, payment_id, technician_id, dealer_id, hold_amount, status, created_at, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, 'locked', NOW(), $7)`,
			out.HoldID, jobID, holdPaymentID, out.TechnicianID, dealerID, out.HoldAmount, out.HoldExpiresAt,
		)
		if err != nil {
			return out, err
		}
	}

	if err := creditWalletInTx(ctx, tx, out.TechnicianID, out.Immediate, "escrow_release", jobID); err != nil {
		return out, err
	}
	// The immediate leg leaves the technician's escrow figure; the warranty
	// slice stays counted there until the hold resolves.
	if err := adjustEscrowInTx(ctx, tx, out.TechnicianID, -out.Immediate); err != nil {
		return out, err
	}
	return out, nil
}

// adjustEscrowInTx moves a user's wallet escrow figure as funds enter or
// leave hold on their behalf, inside the caller's transaction.
func adjustEscrowInTx(ctx context.Context, tx pgx.Tx, userID string, delta int64) error {
	if delta == 0 || userID == "" {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE wallets SET escrow = escrow + $1 WHERE user_id = $2`, delta, userID,
	)
	return err
}

// creditWalletInTx settles an amount into a user's wallet with a matching
// ledger row, inside the caller's transaction.
func creditWalletInTx(ctx context.Context, tx pgx.Tx, userID string, amount int64, status, referenceID string) error {
	if amount <= 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`, amount, userID,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, user_id, amount, type, status, reference, created_at)
		 VALUES ($1, $2, $3, 'credit', $4, $5, NOW())`,
		uuid.New().String(), userID, amount, status, referenceID,
	)
	return err
}

// ReleaseHoldInTx pays out a warranty hold's retained slice when it
// releases, or returns it to the dealer when forfeited.
func ReleaseHoldInTx(ctx context.Context, tx pgx.Tx, paymentID string, toDealer bool) error {
	var technicianID, dealerID, status, jobID string
	var amount int64
	err := tx.QueryRow(ctx,
		`SELECT technician_id, dealer_id, status, job_id, net_amount FROM job_payments
		 WHERE id = $1 AND payment_type = 'warranty_hold' FOR UPDATE`, paymentID,
	).Scan(&technicianID, &dealerID, &status, &jobID, &amount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNothingToRelease
		}
		return err
	}
	if status != StatusEscrowHold {
		return ErrAlreadyReleased
	}

	// Either way the slice stops being escrowed for the technician.
	if err := adjustEscrowInTx(ctx, tx, technicianID, -amount); err != nil {
		return err
	}

	if toDealer {
		_, err = tx.Exec(ctx,
			`UPDATE job_payments SET status = 'refunded', updated_at = NOW() WHERE id = $1`, paymentID)
		if err != nil {
			return err
		}
		return creditWalletInTx(ctx, tx, dealerID, amount, "warranty_forfeit", jobID)
	}

	_, err = tx.Exec(ctx,
		`UPDATE job_payments SET status = 'released', released_at = NOW(), updated_at = NOW() WHERE id = $1`, paymentID)
	if err != nil {
		return err
	}
	return creditWalletInTx(ctx, tx, technicianID, amount, "warranty_release", jobID)
}
