package trust

import "math"

// Score bounds. Every path that writes a score clamps into this range.
const (
	MinScore = 0
	MaxScore = 100
)

// Component weights. They sum to MaxScore.
const (
	weightCompletion = 40
	weightRating     = 30
	weightComplaints = 15
	weightPenalties  = 15
)

// Stats is the per-user input to the score function, gathered from job,
// review and warranty history.
type Stats struct {
	CompletedJobs int
	CancelledJobs int
	// RatingHundredths is the average review rating scaled by 100
	// (1.00-5.00 -> 100-500). Zero means no reviews yet.
	RatingHundredths int
	ReviewCount      int
	Complaints       int
	Penalties        int
}

// ComputeScore maps history stats onto a bounded score. It is pure and
// deterministic: identical stats always produce the identical score.
// Users with no history land on the neutral midpoint of the completion
// and rating components, so new accounts score 50.
func ComputeScore(s Stats) int {
	// Completion component: share of jobs that reached completed out of
	// all that terminated. No history reads as a 50% rate.
	completionRate := 0.5
	if total := s.CompletedJobs + s.CancelledJobs; total > 0 {
		completionRate = float64(s.CompletedJobs) / float64(total)
	}
	completion := completionRate * weightCompletion

	// Rating component: 1.00 maps to the bottom, 5.00 to the top. No
	// reviews reads as the midpoint.
	ratingFrac := 0.5
	if s.ReviewCount > 0 {
		ratingFrac = (float64(s.RatingHundredths) - 100) / 400
		if ratingFrac < 0 {
			ratingFrac = 0
		}
		if ratingFrac > 1 {
			ratingFrac = 1
		}
	}
	rating := ratingFrac * weightRating

	// Complaints and penalties only subtract: a clean record keeps the
	// full component.
	complaints := float64(weightComplaints - 3*s.Complaints)
	if complaints < 0 {
		complaints = 0
	}
	penalties := float64(weightPenalties - 5*s.Penalties)
	if penalties < 0 {
		penalties = 0
	}

	score := int(math.Round(completion + rating + complaints + penalties))
	return Clamp(score)
}

// Clamp bounds a score into [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
