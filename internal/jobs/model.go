package jobs

import (
	"time"

	"github.com/fixlinkhq/fixlink/internal/jobstate"
)

// Job is a unit of work posted by a dealer. Money fields are integer minor
// units. Jobs are never deleted; terminal rows stay for audit.
type Job struct {
	ID                string          `json:"id"`
	JobNumber         string          `json:"job_number"`
	DealerID          string          `json:"dealer_id"`
	TechnicianID      *string         `json:"technician_id,omitempty"`
	Category          string          `json:"category"`
	Subcategory       string          `json:"subcategory,omitempty"`
	Region            string          `json:"region,omitempty"`
	Description       string          `json:"description,omitempty"`
	Status            jobstate.Status `json:"status"`
	EstimatedCost     int64           `json:"estimated_cost"`
	FinalPrice        *int64          `json:"final_price,omitempty"`
	PriceLocked       bool            `json:"price_locked"`
	SoftLockedBy      *string         `json:"soft_locked_by,omitempty"`
	SoftLockedAt      *time.Time      `json:"soft_locked_at,omitempty"`
	SoftLockExpiresAt *time.Time      `json:"soft_lock_expires_at,omitempty"`
	PaymentDeadlineAt *time.Time      `json:"payment_deadline_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	AssignedAt        *time.Time      `json:"assigned_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
}

const jobColumns = `id, job_number, dealer_id, technician_id, category, subcategory, region, description,
	status, estimated_cost, final_price, price_locked, soft_locked_by, soft_locked_at,
	soft_lock_expires_at, payment_deadline_at, created_at, assigned_at, completed_at, cancelled_at`

// actorRole maps a JWT role onto the state machine's actor model.
func actorRole(role string) jobstate.Role {
	switch role {
	case "dealer":
		return jobstate.RoleDealer
	case "technician":
		return jobstate.RoleTechnician
	case "admin", "superadmin":
		return jobstate.RoleAdmin
	default:
		return jobstate.Role(role)
	}
}
