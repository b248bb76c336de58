package trust

import "testing"

func TestComputeScore(t *testing.T) {
	cases := []struct {
		name  string
		stats Stats
		want  int
	}{
		{
			name:  "no history lands on neutral 50",
			stats: Stats{},
			want:  50,
		},
		{
			name: "perfect record scores 100",
			stats: Stats{
				CompletedJobs:    20,
				RatingHundredths: 500,
				ReviewCount:      12,
			},
			want: 100,
		},
		{
			name: "worst record scores 0",
			stats: Stats{
				CancelledJobs:    10,
				RatingHundredths: 100,
				ReviewCount:      3,
				Complaints:       5,
				Penalties:        3,
			},
			want: 0,
		},
		{
			name: "half completion with average rating",
			stats: Stats{
				CompletedJobs:    5,
				CancelledJobs:    5,
				RatingHundredths: 300,
				ReviewCount:      4,
			},
			// 20 completion + 15 rating + 15 + 15
			want: 65,
		},
		{
			name: "single complaint costs three points",
			stats: Stats{
				CompletedJobs:    10,
				RatingHundredths: 500,
				ReviewCount:      10,
				Complaints:       1,
			},
			want: 97,
		},
		{
			name: "single penalty costs five points",
			stats: Stats{
				CompletedJobs:    10,
				RatingHundredths: 500,
				ReviewCount:      10,
				Penalties:        1,
			},
			want: 95,
		},
		{
			name: "excess complaints cannot push a component negative",
			stats: Stats{
				CompletedJobs:    10,
				RatingHundredths: 500,
				ReviewCount:      10,
				Complaints:       50,
				Penalties:        50,
			},
			want: 70,
		},
		{
			name: "rating outside range is absorbed",
			stats: Stats{
				CompletedJobs:    1,
				RatingHundredths: 900,
				ReviewCount:      1,
			},
			want: 100,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeScore(tc.stats)
			if got != tc.want {
				t.Fatalf("ComputeScore(%+v) = %d, want %d", tc.stats, got, tc.want)
			}
			if got < MinScore || got > MaxScore {
				t.Fatalf("score %d outside [%d,%d]", got, MinScore, MaxScore)
			}
		})
	}
}

func TestComputeScoreDeterministic(t *testing.T) {
	s := Stats{CompletedJobs: 7, CancelledJobs: 2, RatingHundredths: 437, ReviewCount: 5, Complaints: 1}
	first := ComputeScore(s)
	for i := 0; i < 100; i++ {
		if got := ComputeScore(s); got != first {
			t.Fatalf("run %d: got %d, want %d", i, got, first)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ in, want int }{
		{-10, 0}, {0, 0}, {57, 57}, {100, 100}, {140, 100},
	}
	for _, tc := range cases {
		if got := Clamp(tc.in); got != tc.want {
			t.Errorf("Clamp(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
