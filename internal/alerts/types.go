package alerts

import "time"

// Task type constants
const (
	TaskBidAccepted     = "email:bid_accepted"
	TaskPaymentDue      = "email:payment_due"
	TaskPaymentCaptured = "email:payment_captured"
	TaskJobCompleted    = "email:job_completed"
	TaskJobCancelled    = "email:job_cancelled"
	TaskWarrantyIssue   = "email:warranty_issue"
	TaskAdminAlert      = "email:admin_alert"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Bid accepted payload (sent to technician when the dealer locks them in)
type BidAcceptedPayload struct {
	JobID        string        `json:"job_id"`
	DealerID     string        `json:"dealer_id"`
	TechnicianID string        `json:"technician_id"`
	Email        string        `json:"email"`
	Amount       int64         `json:"amount"`
	LockExpires  time.Time     `json:"lock_expires"`
	Envelope     EmailEnvelope `json:"envelope"`
	SentAt       time.Time     `json:"sent_at"`
}

// Payment due payload (sent to dealer after soft-lock confirmation)
type PaymentDuePayload struct {
	JobID    string        `json:"job_id"`
	DealerID string        `json:"dealer_id"`
	Email    string        `json:"email"`
	Amount   int64         `json:"amount"`
	Deadline time.Time     `json:"deadline"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Payment captured payload (sent to technician once funds are escrowed)
type PaymentCapturedPayload struct {
	JobID        string        `json:"job_id"`
	DealerID     string        `json:"dealer_id"`
	TechnicianID string        `json:"technician_id"`
	Email        string        `json:"email"`
	Amount       int64         `json:"amount"`
	Envelope     EmailEnvelope `json:"envelope"`
	SentAt       time.Time     `json:"sent_at"`
}

// Job completed payload (sent to technician when payout splits)
type JobCompletedPayload struct {
	JobID        string        `json:"job_id"`
	DealerID     string        `json:"dealer_id"`
	TechnicianID string        `json:"technician_id"`
	Email        string        `json:"email"`
	Immediate    int64         `json:"immediate"`
	HoldAmount   int64         `json:"hold_amount"`
	Envelope     EmailEnvelope `json:"envelope"`
	SentAt       time.Time     `json:"sent_at"`
}

// Job cancelled payload (sent to the assigned technician)
type JobCancelledPayload struct {
	JobID        string        `json:"job_id"`
	DealerID     string        `json:"dealer_id"`
	TechnicianID string        `json:"technician_id"`
	Email        string        `json:"email"`
	Refund       int64         `json:"refund"`
	Envelope     EmailEnvelope `json:"envelope"`
	SentAt       time.Time     `json:"sent_at"`
}

// Warranty issue payload (sent to technician when a dealer freezes a hold)
type WarrantyIssuePayload struct {
	HoldID       string        `json:"hold_id"`
	JobID        string        `json:"job_id"`
	TechnicianID string        `json:"technician_id"`
	Email        string        `json:"email"`
	Description  string        `json:"description"`
	Envelope     EmailEnvelope `json:"envelope"`
	SentAt       time.Time     `json:"sent_at"`
}

// Admin alert payload
type AdminAlertPayload struct {
	AdminID  string        `json:"admin_id"`
	Severity string        `json:"severity"` // info|warning|critical
	Message  string        `json:"message"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
