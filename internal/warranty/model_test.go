package warranty

import "testing"

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		name      string
		current   string
		requested string
		ok        bool
	}{
		{"freeze a locked hold", StatusLocked, StatusFrozen, true},
		{"expiry releases a locked hold", StatusLocked, StatusReleased, true},
		{"locked cannot forfeit directly", StatusLocked, StatusForfeited, false},
		{"unfounded ruling thaws a frozen hold", StatusFrozen, StatusLocked, true},
		{"frozen resolves to released", StatusFrozen, StatusReleased, true},
		{"frozen resolves to forfeited", StatusFrozen, StatusForfeited, true},
		{"released is terminal", StatusReleased, StatusFrozen, false},
		{"released cannot forfeit", StatusReleased, StatusForfeited, false},
		{"forfeited is terminal", StatusForfeited, StatusLocked, false},
		{"forfeited cannot release", StatusForfeited, StatusReleased, false},
		{"no self loop", StatusLocked, StatusLocked, false},
		{"unknown status rejected", "pending", StatusFrozen, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := ValidateTransition(tc.current, tc.requested)
			if ok != tc.ok {
				t.Fatalf("ValidateTransition(%s, %s) = %v (%q), want %v", tc.current, tc.requested, ok, reason, tc.ok)
			}
			if !ok && reason == "" {
				t.Fatal("rejection must carry a reason")
			}
		})
	}
}

// Every observable status sequence must be a subsequence of
// locked -> frozen -> {released|forfeited}, with frozen -> locked the only
// backward edge.
func TestLatticeHasNoEscapeFromTerminals(t *testing.T) {
	all := []string{StatusLocked, StatusFrozen, StatusReleased, StatusForfeited}
	for _, from := range []string{StatusReleased, StatusForfeited} {
		for _, to := range all {
			if ok, _ := ValidateTransition(from, to); ok {
				t.Errorf("terminal %s must not transition to %s", from, to)
			}
		}
	}
}
