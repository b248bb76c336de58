package bidding

import "errors"

// Negotiation chains are stored as an append-only log of bid rows linked by
// previous_bid_id. Who is currently awaiting a response is never stored; it
// is derived here from the log alone.

var (
	ErrChainCycle  = errors.New("negotiation chain contains a cycle")
	ErrChainBroken = errors.New("negotiation chain references a missing bid")
	ErrChainFork   = errors.New("negotiation chain forks")
)

// Chain orders one technician's bids on a job from the opening bid to the
// latest offer, validating that the links form a single acyclic path.
func Chain(bids []Bid) ([]Bid, error) {
	if len(bids) == 0 {
		return nil, nil
	}
	byID := make(map[string]Bid, len(bids))
	referenced := make(map[string]string, len(bids)) // previous id -> successor id
	for _, b := range bids {
		byID[b.ID] = b
		if b.PreviousBidID != nil {
			prev := *b.PreviousBidID
			if _, ok := referenced[prev]; ok {
				return nil, ErrChainFork
			}
			referenced[prev] = b.ID
		}
	}

	// The root is the one bid that answers nothing.
	var root *Bid
	for i := range bids {
		if bids[i].PreviousBidID == nil {
			if root != nil {
				return nil, ErrChainFork
			}
			root = &bids[i]
		} else if _, ok := byID[*bids[i].PreviousBidID]; !ok {
			return nil, ErrChainBroken
		}
	}
	if root == nil {
		return nil, ErrChainCycle
	}

	ordered := make([]Bid, 0, len(bids))
	seen := make(map[string]bool, len(bids))
	cur := root.ID
	for {
		if seen[cur] {
			return nil, ErrChainCycle
		}
		seen[cur] = true
		ordered = append(ordered, byID[cur])
		next, ok := referenced[cur]
		if !ok {
			break
		}
		cur = next
	}
	if len(ordered) != len(bids) {
		return nil, ErrChainBroken
	}
	return ordered, nil
}

// Head returns the latest offer in an ordered chain.
func Head(chain []Bid) *Bid {
	if len(chain) == 0 {
		return nil
	}
	return &chain[len(chain)-1]
}

// AwaitingResponse reports which party the chain is waiting on: the side
// opposite the head's offerer, but only while the head is still pending.
// Empty string means the negotiation is settled or dead.
func AwaitingResponse(chain []Bid) string {
	head := Head(chain)
	if head == nil || head.Status != StatusPending {
		return ""
	}
	if head.OfferedBy == "dealer" {
		return "technician"
	}
	return "dealer"
}

// Active reports whether the chain still has a live offer (pending head or a
// countered bid that could be reopened).
func Active(chain []Bid) bool {
	for _, b := range chain {
		if b.Status == StatusPending || b.Status == StatusCountered {
			return true
		}
	}
	return false
}
