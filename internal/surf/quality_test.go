package surf

import (
	"testing"
	"time"
)

func TestRateQuality(t *testing.T) {
	tests := []struct {
		name     string
		heightFt float64
		periodS  float64
		want     Quality
	}{
		{"overhead long period", 5.0, 14, QualityGood},
		{"good threshold exact", 4.0, 12, QualityGood},
		{"big but short period", 5.0, 8, QualityPoorFair},
		{"mid size mid period", 3.0, 11, QualityFair},
		{"small clean", 1.8, 13, QualityPoorFair},
		{"flat", 0.8, 15, QualityPoor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RateQuality(tt.heightFt, tt.periodS); got != tt.want {
				t.Errorf("RateQuality(%v, %v) = %s, want %s", tt.heightFt, tt.periodS, got, tt.want)
			}
		})
	}
}

func TestSummarizeDays(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	// 08:00 UTC is 01:00 local; spread estimates across two local days.
	day1 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	waves := []WaveEstimate{
		{Timestamp: day1, BreakingHeightFt: 4.0, PeriodS: 12, Available: true},
		{Timestamp: day1.Add(3 * time.Hour), BreakingHeightFt: 6.0, PeriodS: 14, Available: true},
		{Timestamp: day1.Add(6 * time.Hour), Available: false},
		{Timestamp: day1.Add(24 * time.Hour), BreakingHeightFt: 1.0, PeriodS: 8, Available: true},
	}

	days := SummarizeDays(waves, loc)
	if len(days) != 2 {
		t.Fatalf("days: got %d, want 2", len(days))
	}

	if days[0].AvgHeightFt != 5.0 {
		t.Errorf("day 1 avg height: got %v, want 5.0 (unavailable estimate excluded)", days[0].AvgHeightFt)
	}
	if days[0].AvgPeriodS != 13.0 {
		t.Errorf("day 1 avg period: got %v, want 13.0", days[0].AvgPeriodS)
	}
	if days[0].Quality != QualityGood {
		t.Errorf("day 1 quality: got %s, want Good", days[0].Quality)
	}
	if days[1].Quality != QualityPoor {
		t.Errorf("day 2 quality: got %s, want Poor", days[1].Quality)
	}
	if days[0].DayName != days[0].Date.Format("Monday") {
		t.Errorf("day name mismatch: %s", days[0].DayName)
	}
}

func TestSummarizeDays_AllUnavailable(t *testing.T) {
	waves := []WaveEstimate{
		{Timestamp: time.Now(), Available: false},
		{Timestamp: time.Now().Add(3 * time.Hour), Available: false},
	}
	if days := SummarizeDays(waves, time.UTC); len(days) != 0 {
		t.Errorf("expected no summaries, got %d", len(days))
	}
}

func TestCompass(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{90, "E"},
		{180, "S"},
		{225, "SW"},
		{270, "W"},
		{340, "NNW"},
		{359, "N"},
	}
	for _, tt := range tests {
		if got := Compass(tt.deg); got != tt.want {
			t.Errorf("Compass(%v) = %s, want %s", tt.deg, got, tt.want)
		}
	}
}

func TestWindStrength(t *testing.T) {
	tests := []struct {
		mph  float64
		want string
	}{
		{2, "Light"},
		{5, "Moderate"},
		{14.9, "Moderate"},
		{20, "Strong"},
		{30, "Very Strong"},
	}
	for _, tt := range tests {
		if got := WindStrength(tt.mph); got != tt.want {
			t.Errorf("WindStrength(%v) = %s, want %s", tt.mph, got, tt.want)
		}
	}
}

func TestTideEventQuality(t *testing.T) {
	if got := TideEventQuality(TideHigh, 6.5); got != "Excellent" {
		t.Errorf("big high: got %s", got)
	}
	if got := TideEventQuality(TideHigh, 3.0); got != "Poor" {
		t.Errorf("weak high: got %s", got)
	}
	if got := TideEventQuality(TideLow, 0.2); got != "Excellent" {
		t.Errorf("drained low: got %s", got)
	}
	if got := TideEventQuality(TideLow, 2.0); got != "Poor" {
		t.Errorf("high low: got %s", got)
	}
}
