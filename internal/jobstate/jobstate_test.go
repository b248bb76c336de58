package jobstate

import "testing"

func TestValidateTransition_LegalEdges(t *testing.T) {
	cases := []struct {
		name    string
		from    Status
		to      Status
		actor   Role
		allowed bool
	}{
		{"dealer accepts bid", StatusPending, StatusSoftLocked, RoleDealer, true},
		{"technician cannot lock job", StatusPending, StatusSoftLocked, RoleTechnician, false},
		{"sweep reverts expired lock", StatusSoftLocked, StatusPending, RoleSystem, true},
		{"technician cannot revert lock", StatusSoftLocked, StatusPending, RoleTechnician, false},
		{"dealer confirms lock", StatusSoftLocked, StatusWaitingForPayment, RoleDealer, true},
		{"system cannot confirm lock", StatusSoftLocked, StatusWaitingForPayment, RoleSystem, false},
		{"sweep expires payment window", StatusWaitingForPayment, StatusPending, RoleSystem, true},
		{"dealer cannot expire payment window", StatusWaitingForPayment, StatusPending, RoleDealer, false},
		{"capture assigns technician", StatusWaitingForPayment, StatusAssigned, RoleSystem, true},
		{"technician starts work", StatusAssigned, StatusInProgress, RoleTechnician, true},
		{"dealer cannot start work", StatusAssigned, StatusInProgress, RoleDealer, false},
		{"technician requests completion", StatusInProgress, StatusCompletionApproval, RoleTechnician, true},
		{"admin cannot request completion", StatusInProgress, StatusCompletionApproval, RoleAdmin, false},
		{"dealer approves completion", StatusCompletionApproval, StatusCompleted, RoleDealer, true},
		{"dealer requests rework", StatusCompletionApproval, StatusInProgress, RoleDealer, true},
		{"technician cannot self-approve", StatusCompletionApproval, StatusCompleted, RoleTechnician, false},
		{"dealer cancels pending job", StatusPending, StatusCancelled, RoleDealer, true},
		{"dealer cancels before capture", StatusWaitingForPayment, StatusCancelled, RoleDealer, true},
		{"dealer cannot cancel in-progress work", StatusInProgress, StatusCancelled, RoleDealer, false},
		{"admin cancels in-progress work", StatusInProgress, StatusCancelled, RoleAdmin, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := ValidateTransition(tc.from, tc.to, tc.actor)
			if ok != tc.allowed {
				t.Fatalf("ValidateTransition(%s, %s, %s) = %v (%s), want %v",
					tc.from, tc.to, tc.actor, ok, reason, tc.allowed)
			}
			if !ok && reason == "" {
				t.Fatal("rejected transition must carry a reason")
			}
		})
	}
}

func TestValidateTransition_TerminalStatesAreFrozen(t *testing.T) {
	roles := []Role{RoleDealer, RoleTechnician, RoleAdmin, RoleSystem}
	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		for _, to := range AllStatuses {
			for _, actor := range roles {
				if ok, _ := ValidateTransition(terminal, to, actor); ok {
					t.Fatalf("transition out of terminal %s to %s by %s was allowed", terminal, to, actor)
				}
			}
		}
	}
}

// Every (from, to, role) combination not in the table must be rejected, and
// every edge in the table must be reachable by at least one role.
func TestValidateTransition_TableIsExhaustive(t *testing.T) {
	roles := []Role{RoleDealer, RoleTechnician, RoleAdmin, RoleSystem}
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			var anyAllowed bool
			for _, actor := range roles {
				ok, _ := ValidateTransition(from, to, actor)
				if ok {
					anyAllowed = true
				}
			}
			_, inTable := transitions[edge{from, to}]
			if anyAllowed != inTable {
				t.Errorf("edge %s -> %s: allowed=%v but table membership=%v", from, to, anyAllowed, inTable)
			}
		}
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	if ok, _ := ValidateTransition("limbo", StatusPending, RoleAdmin); ok {
		t.Fatal("unknown current status accepted")
	}
	if ok, _ := ValidateTransition(StatusPending, "limbo", RoleAdmin); ok {
		t.Fatal("unknown requested status accepted")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range AllStatuses {
		want := s == StatusCompleted || s == StatusCancelled
		if IsTerminal(s) != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, IsTerminal(s), want)
		}
	}
}
