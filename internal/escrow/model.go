package escrow

import (
	"errors"
	"time"
)

// Payment statuses. Movement is strictly forward: pending -> escrow_hold ->
// released; failed and refunded are terminal branches. A released row never
// moves again.
const (
	StatusPending    = "pending"
	StatusEscrowHold = "escrow_hold"
	StatusReleased   = "released"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

const (
	TypeService      = "service"
	TypeWarrantyHold = "warranty_hold"
)

var (
	ErrNothingToRelease = errors.New("no escrowed payment to release")
	ErrAlreadyReleased  = errors.New("payment already released")
	ErrAmountInvalid    = errors.New("payment amount must be positive")
)

// Payment is one escrow ledger row for a job. A job normally ends up with
// two: the service payment and the warranty-hold slice carved out of it.
type Payment struct {
	ID               string     `json:"id"`
	JobID            string     `json:"job_id"`
	DealerID         string     `json:"dealer_id"`
	TechnicianID     string     `json:"technician_id"`
	IntentID         *string    `json:"intent_id,omitempty"`
	GrossAmount      int64      `json:"gross_amount"`
	CommissionType   string     `json:"commission_type"`
	CommissionValue  int64      `json:"commission_value"`
	CommissionAmount int64      `json:"commission_amount"`
	NetAmount        int64      `json:"net_amount"`
	PaymentType      string     `json:"payment_type"`
	IsWarrantyHold   bool       `json:"is_warranty_hold"`
	Status           string     `json:"status"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
