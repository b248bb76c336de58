package bidding

import (
	"errors"
	"testing"
	"time"
)

func link(id string) *string { return &id }

func chainFixture() []Bid {
	t0 := time.Now()
	return []Bid{
		{ID: "b1", JobID: "j1", TechnicianID: "t1", Amount: 10_000, Status: StatusCountered, OfferedBy: "technician", CreatedAt: t0},
		{ID: "b2", JobID: "j1", TechnicianID: "t1", Amount: 8_000, Status: StatusCountered, IsCounterOffer: true, OfferedBy: "dealer", PreviousBidID: link("b1"), CreatedAt: t0.Add(time.Minute)},
		{ID: "b3", JobID: "j1", TechnicianID: "t1", Amount: 9_000, Status: StatusPending, IsCounterOffer: true, OfferedBy: "technician", PreviousBidID: link("b2"), CreatedAt: t0.Add(2 * time.Minute)},
	}
}

func TestChain_OrdersLog(t *testing.T) {
	bids := chainFixture()
	// Shuffle the input; ordering must come from the links, not insertion.
	shuffled := []Bid{bids[2], bids[0], bids[1]}
	ordered, err := Chain(shuffled)
	if err != nil {
		t.Fatalf("Chain returned error: %v", err)
	}
	want := []string{"b1", "b2", "b3"}
	for i, id := range want {
		if ordered[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, ordered[i].ID, id)
		}
	}
}

func TestChain_EmptyLog(t *testing.T) {
	ordered, err := Chain(nil)
	if err != nil || ordered != nil {
		t.Fatalf("empty log should yield empty chain, got %v, %v", ordered, err)
	}
}

func TestChain_DetectsCycle(t *testing.T) {
	bids := []Bid{
		{ID: "b1", PreviousBidID: link("b2")},
		{ID: "b2", PreviousBidID: link("b1")},
	}
	if _, err := Chain(bids); !errors.Is(err, ErrChainCycle) {
		t.Fatalf("expected ErrChainCycle, got %v", err)
	}
}

func TestChain_DetectsFork(t *testing.T) {
	bids := []Bid{
		{ID: "b1"},
		{ID: "b2", PreviousBidID: link("b1")},
		{ID: "b3", PreviousBidID: link("b1")},
	}
	if _, err := Chain(bids); !errors.Is(err, ErrChainFork) {
		t.Fatalf("expected ErrChainFork, got %v", err)
	}
}

func TestChain_DetectsMissingLink(t *testing.T) {
	bids := []Bid{
		{ID: "b1"},
		{ID: "b3", PreviousBidID: link("b2")},
	}
	if _, err := Chain(bids); !errors.Is(err, ErrChainBroken) {
		t.Fatalf("expected ErrChainBroken, got %v", err)
	}
}

func TestAwaitingResponse(t *testing.T) {
	bids := chainFixture()
	ordered, err := Chain(bids)
	if err != nil {
		t.Fatal(err)
	}

	// Head is a technician offer, so the dealer owes a response.
	if got := AwaitingResponse(ordered); got != "dealer" {
		t.Fatalf("AwaitingResponse = %q, want dealer", got)
	}

	// Dealer-offered head flips it.
	ordered[2].OfferedBy = "dealer"
	if got := AwaitingResponse(ordered); got != "technician" {
		t.Fatalf("AwaitingResponse = %q, want technician", got)
	}

	// A settled head means nobody is awaited.
	ordered[2].Status = StatusAccepted
	if got := AwaitingResponse(ordered); got != "" {
		t.Fatalf("AwaitingResponse on settled chain = %q, want empty", got)
	}
}

func TestActive(t *testing.T) {
	ordered, _ := Chain(chainFixture())
	if !Active(ordered) {
		t.Fatal("chain with a pending head must be active")
	}
	for i := range ordered {
		ordered[i].Status = StatusRejected
	}
	if Active(ordered) {
		t.Fatal("fully rejected chain must be inactive")
	}
	// A countered bid can be reopened, so it keeps the chain alive.
	ordered[0].Status = StatusCountered
	if !Active(ordered) {
		t.Fatal("countered bid must keep the chain active")
	}
}
