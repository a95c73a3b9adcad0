package analytics

import "testing"

// S4: growth rate special cases.
func TestGrowthRateSpecialCases(t *testing.T) {
	cases := []struct {
		current, histMean, want float64
	}{
		{0, 0, 0},
		{5, 0, 100},
		{10, 2.0, 400},
	}
	for _, c := range cases {
		got := growthRate(c.current, c.histMean)
		if got != c.want {
			t.Errorf("growthRate(%v, %v) = %v, want %v", c.current, c.histMean, got, c.want)
		}
	}
}

func TestTrendScoreRounding(t *testing.T) {
	got := trendScore(10, 10, 50)
	want := 0.8
	if got != want {
		t.Errorf("trendScore = %v, want %v", got, want)
	}
}
