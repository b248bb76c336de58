package commission

import "testing"

func TestCalculate_PercentageSplit(t *testing.T) {
	cases := []struct {
		name       string
		amount     int64
		bps        int64
		commission int64
	}{
		{"15 percent of 10000", 10_000, 1500, 1500},
		{"rounds half up", 333, 1500, 50}, // 49.95 -> 50
		{"rounds down below half", 100, 1540, 15},
		{"zero amount", 0, 1500, 0},
		{"100 percent", 4_200, 10_000, 4_200},
		{"over 100 percent clamps to gross", 4_200, 12_000, 4_200},
		{"negative rate clamps to zero", 4_200, -500, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Calculate(tc.amount, Rule{Scope: ScopeGlobal, Type: TypePercentage, Value: tc.bps})
			if b.CommissionAmount != tc.commission {
				t.Fatalf("commission = %d, want %d", b.CommissionAmount, tc.commission)
			}
			if b.CommissionAmount+b.NetAmount != tc.amount {
				t.Fatalf("split does not reconstruct gross: %d + %d != %d",
					b.CommissionAmount, b.NetAmount, tc.amount)
			}
		})
	}
}

func TestCalculate_FlatSplit(t *testing.T) {
	b := Calculate(10_000, Rule{Type: TypeFlat, Value: 2_500})
	if b.CommissionAmount != 2_500 || b.NetAmount != 7_500 {
		t.Fatalf("flat split = %d/%d, want 2500/7500", b.CommissionAmount, b.NetAmount)
	}
	// Flat fee larger than the job amount eats the whole job, never more.
	b = Calculate(1_000, Rule{Type: TypeFlat, Value: 2_500})
	if b.CommissionAmount != 1_000 || b.NetAmount != 0 {
		t.Fatalf("oversized flat fee = %d/%d, want 1000/0", b.CommissionAmount, b.NetAmount)
	}
}

// The sum invariant must hold for any positive amount and any rate.
func TestCalculate_SumInvariantSweep(t *testing.T) {
	amounts := []int64{1, 7, 99, 101, 999, 12_345, 1_000_000, 987_654_321}
	rates := []int64{0, 1, 250, 999, 1500, 3333, 5000, 9999, 10_000}
	for _, a := range amounts {
		for _, r := range rates {
			b := Calculate(a, Rule{Type: TypePercentage, Value: r})
			if b.CommissionAmount+b.NetAmount != a {
				t.Fatalf("amount=%d rate=%d: %d + %d != gross", a, r, b.CommissionAmount, b.NetAmount)
			}
			if b.CommissionAmount < 0 || b.NetAmount < 0 {
				t.Fatalf("amount=%d rate=%d: negative leg", a, r)
			}
		}
	}
}

func TestResolve_Precedence(t *testing.T) {
	rules := []Rule{
		{Scope: ScopeGlobal, Type: TypePercentage, Value: 1500},
		{Scope: ScopeCategory, Key: "plumbing", Type: TypePercentage, Value: 1200},
		{Scope: ScopeRegion, Key: "lagos", Type: TypePercentage, Value: 1000},
		{Scope: ScopeDealer, Key: "dealer-1", Type: TypeFlat, Value: 500},
	}
	cases := []struct {
		name                     string
		category, region, dealer string
		wantScope                Scope
	}{
		{"dealer override wins", "plumbing", "lagos", "dealer-1", ScopeDealer},
		{"region beats category", "plumbing", "lagos", "dealer-2", ScopeRegion},
		{"category beats global", "plumbing", "abuja", "dealer-2", ScopeCategory},
		{"global fallback", "electrical", "abuja", "dealer-2", ScopeGlobal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, ok := Resolve(rules, tc.category, tc.region, tc.dealer)
			if !ok || r.Scope != tc.wantScope {
				t.Fatalf("Resolve = %+v ok=%v, want scope %s", r, ok, tc.wantScope)
			}
		})
	}

	if _, ok := Resolve(nil, "plumbing", "lagos", "dealer-1"); ok {
		t.Fatal("empty rule set must report no match")
	}
}

// End-to-end numbers from the payout flow: 10,000 gross at 15%, 10% warranty
// retention on the net.
func TestEscrowRoundTrip(t *testing.T) {
	b := Calculate(10_000, Rule{Type: TypePercentage, Value: 1500})
	if b.CommissionAmount != 1_500 || b.NetAmount != 8_500 {
		t.Fatalf("split = %d/%d, want 1500/8500", b.CommissionAmount, b.NetAmount)
	}
	immediate, hold := SplitHold(b.NetAmount, 10)
	if immediate != 7_650 || hold != 850 {
		t.Fatalf("hold split = %d/%d, want 7650/850", immediate, hold)
	}
	if immediate+hold != b.NetAmount {
		t.Fatalf("hold split does not reconstruct net")
	}
}

func TestSplitHold_Bounds(t *testing.T) {
	if i, h := SplitHold(0, 10); i != 0 || h != 0 {
		t.Fatalf("zero net split = %d/%d", i, h)
	}
	if i, h := SplitHold(100, 0); i != 100 || h != 0 {
		t.Fatalf("zero percent split = %d/%d", i, h)
	}
	if i, h := SplitHold(100, 150); i != 0 || h != 100 {
		t.Fatalf("over-100 percent split = %d/%d", i, h)
	}
	// Rounding never loses a unit.
	for net := int64(1); net < 500; net++ {
		i, h := SplitHold(net, 10)
		if i+h != net {
			t.Fatalf("net=%d: %d + %d != net", net, i, h)
		}
	}
}
