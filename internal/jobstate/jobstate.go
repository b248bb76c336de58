package jobstate

import "fmt"

// Status is the lifecycle state of a job post.
type Status string

const (
	StatusPending            Status = "pending"
	StatusSoftLocked         Status = "soft_locked"
	StatusWaitingForPayment  Status = "waiting_for_payment"
	StatusAssigned           Status = "assigned"
	StatusInProgress         Status = "in_progress"
	StatusCompletionApproval Status = "completion_pending_approval"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
)

// Role identifies who is asking for a transition.
type Role string

const (
	RoleDealer     Role = "dealer"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
	// RoleSystem covers background sweeps and processor callbacks.
	RoleSystem Role = "system"
)

// AllStatuses in lifecycle order, for validation and listings.
var AllStatuses = []Status{
	StatusPending,
	StatusSoftLocked,
	StatusWaitingForPayment,
	StatusAssigned,
	StatusInProgress,
	StatusCompletionApproval,
	StatusCompleted,
	StatusCancelled,
}

// IsTerminal reports whether no further transitions are allowed from s.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func Valid(s Status) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type edge struct {
	from, to Status
}

// transitions maps each legal edge to the roles allowed to request it.
// This table is the single authority for job lifecycle moves; callers
// apply side effects (timestamps, notifications) only after it says yes.
var transitions = map[edge][]Role{
	// Dealer accepts a bid, granting the technician exclusivity.
	{StatusPending, StatusSoftLocked}: {RoleDealer, RoleAdmin},
	// Lock expires (sweep) or dealer declines; job reopens for bidding.
	{StatusSoftLocked, StatusPending}: {RoleDealer, RoleAdmin, RoleSystem},
	// Dealer confirms the lock; price freezes and payment window opens.
	{StatusSoftLocked, StatusWaitingForPayment}: {RoleDealer, RoleAdmin},
	// Payment deadline passes without capture; job reopens.
	{StatusWaitingForPayment, StatusPending}: {RoleAdmin, RoleSystem},
	// Processor reports capture; technician is assigned.
	{StatusWaitingForPayment, StatusAssigned}: {RoleAdmin, RoleSystem},
	{StatusAssigned, StatusInProgress}:        {RoleTechnician, RoleAdmin},
	// Only the technician may declare the work done.
	{StatusInProgress, StatusCompletionApproval}: {RoleTechnician},
	// Dealer sends the job back for rework or signs it off.
	{StatusCompletionApproval, StatusInProgress}: {RoleDealer, RoleAdmin},
	{StatusCompletionApproval, StatusCompleted}:  {RoleDealer, RoleAdmin},

	{StatusPending, StatusCancelled}:            {RoleDealer, RoleAdmin},
	{StatusSoftLocked, StatusCancelled}:         {RoleDealer, RoleAdmin},
	{StatusWaitingForPayment, StatusCancelled}:  {RoleDealer, RoleAdmin},
	{StatusAssigned, StatusCancelled}:           {RoleDealer, RoleAdmin},
	{StatusInProgress, StatusCancelled}:         {RoleAdmin},
	{StatusCompletionApproval, StatusCancelled}: {RoleAdmin},
}

// ValidateTransition checks whether actor may move a job from current to
// requested. It is pure: no storage reads, no side effects. The reason is
// suitable for returning to the caller verbatim.
func ValidateTransition(current, requested Status, actor Role) (bool, string) {
	if !Valid(current) {
		return false, fmt.Sprintf("unknown status %q", current)
	}
	if !Valid(requested) {
		return false, fmt.Sprintf("unknown status %q", requested)
	}
	if IsTerminal(current) {
		return false, fmt.Sprintf("job is %s and cannot change state", current)
	}
	roles, ok := transitions[edge{current, requested}]
	if !ok {
		return false, fmt.Sprintf("cannot move job from %s to %s", current, requested)
	}
	for _, r := range roles {
		if r == actor {
			return true, ""
		}
	}
	return false, fmt.Sprintf("%s may not move job from %s to %s", actor, current, requested)
}
