package bidding

import "time"

// Bid statuses. A bid is non-terminal while pending or countered; countered
// means a counter-offer superseded it and the chain head is awaiting a
// response. Rejecting that counter flips the countered bid back to pending.
const (
	StatusPending   = "pending"
	StatusCountered = "countered"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusWithdrawn = "withdrawn"
)

// Bid is one entry in a job's negotiation log. Counter-offers reference the
// bid they respond to via PreviousBidID, forming an append-only chain.
type Bid struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id"`
	TechnicianID   string    `json:"technician_id"`
	Amount         int64     `json:"amount"`
	Status         string    `json:"status"`
	IsCounterOffer bool      `json:"is_counter_offer"`
	OfferedBy      string    `json:"offered_by"` // dealer | technician
	PreviousBidID  *string   `json:"previous_bid_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
