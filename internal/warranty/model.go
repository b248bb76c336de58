package warranty

import "time"

// Hold statuses. The lattice is one-way: locked -> frozen -> released or
// forfeited. The only backward edge is frozen -> locked, taken when an
// admin rules a reported issue unfounded.
const (
	StatusLocked    = "locked"
	StatusFrozen    = "frozen"
	StatusReleased  = "released"
	StatusForfeited = "forfeited"
)

// Resolution outcomes an admin may record on a frozen hold.
const (
	ResolutionUnfounded = "unfounded"
	ResolutionReleased  = "released"
	ResolutionForfeited = "forfeited"
)

// Hold is the retained slice of a technician's payout during the warranty
// window.
type Hold struct {
	ID              string     `json:"id"`
	JobID           string     `json:"job_id"`
	PaymentID       string     `json:"payment_id"`
	TechnicianID    string     `json:"technician_id"`
	DealerID        string     `json:"dealer_id"`
	HoldAmount      int64      `json:"hold_amount"`
	Status          string     `json:"status"`
	IssueDesc       *string    `json:"issue_description,omitempty"`
	IssueReportedBy *string    `json:"issue_reported_by,omitempty"`
	IssueReportedAt *time.Time `json:"issue_reported_at,omitempty"`
	Resolution      *string    `json:"resolution,omitempty"`
	ResolvedBy      *string    `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

// ValidateTransition reports whether a hold may move from one status to
// another. It is pure; callers apply timestamps and money movement only
// after it approves.
func ValidateTransition(current, requested string) (bool, string) {
	switch current {
	case StatusLocked:
		switch requested {
		case StatusFrozen, StatusReleased:
			return true, ""
		}
	case StatusFrozen:
		switch requested {
		case StatusLocked, StatusReleased, StatusForfeited:
			return true, ""
		}
	case StatusReleased, StatusForfeited:
		return false, "hold is in terminal status " + current
	default:
		return false, "unknown hold status " + current
	}
	return false, "cannot move hold from " + current + " to " + requested
}
