package target

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAdjustedAnnualTargetByHireQuarter(t *testing.T) {
	cases := []struct {
		hireMonth time.Month
		want      float64
	}{
		{time.February, 875_000},  // Q1: ramp + 3 full quarters
		{time.May, 625_000},       // Q2: ramp + 2 full quarters
		{time.August, 375_000},    // Q3: ramp + 1 full quarter
		{time.November, 125_000},  // Q4: ramp only
	}

	for _, tc := range cases {
		res := Calculate(Input{
			AnnualTarget:   1_000_000,
			StartDate:      datePtr(2026, tc.hireMonth, 15),
			View:           ViewYTD,
			CurrentYear:    2026,
			CurrentQuarter: 4,
		})
		assert.Equal(t, tc.want, res.AdjustedAnnualTarget, "hire month %s", tc.hireMonth)
		assert.Equal(t, res.AdjustedAnnualTarget, res.Target, "ytd target equals adjusted annual")
		assert.True(t, res.IsRampQuarter)
	}
}

func TestFullyRampedWhenHiredPriorYear(t *testing.T) {
	res := Calculate(Input{
		AnnualTarget:   800_000,
		StartDate:      datePtr(2024, time.June, 1),
		View:           ViewYTD,
		CurrentYear:    2026,
		CurrentQuarter: 2,
	})
	assert.Equal(t, float64(800_000), res.AdjustedAnnualTarget)
	assert.False(t, res.IsRampQuarter)
	assert.Equal(t, "Annual Target", res.Label)
}

func TestQTDTargetHalvedOnlyInHireQuarter(t *testing.T) {
	hire := datePtr(2026, time.April, 10) // Q2

	ramp := Calculate(Input{
		AnnualTarget: 1_000_000, StartDate: hire,
		View: ViewQTD, CurrentYear: 2026, CurrentQuarter: 2,
	})
	assert.Equal(t, float64(125_000), ramp.Target)
	assert.True(t, ramp.IsRampQuarter)
	assert.Equal(t, "Q2 Target (Ramp)", ramp.Label)

	later := Calculate(Input{
		AnnualTarget: 1_000_000, StartDate: hire,
		View: ViewQTD, CurrentYear: 2026, CurrentQuarter: 3,
	})
	assert.Equal(t, float64(250_000), later.Target)
	assert.False(t, later.IsRampQuarter)
}

func TestPrevQWrapsToQ4OfPriorYear(t *testing.T) {
	res := Calculate(Input{
		AnnualTarget:   400_000,
		StartDate:      datePtr(2025, time.October, 1), // Q4 2025
		View:           ViewPrevQ,
		CurrentYear:    2026,
		CurrentQuarter: 1,
	})
	assert.Equal(t, float64(50_000), res.Target) // half of 100k
	assert.True(t, res.IsRampQuarter)
	assert.Equal(t, "Q4 Target (Ramp)", res.Label)
}

func TestZeroAndNonFiniteTargets(t *testing.T) {
	zero := Calculate(Input{AnnualTarget: 0, View: ViewQTD, CurrentYear: 2026, CurrentQuarter: 1})
	assert.Equal(t, float64(0), zero.Target)
	assert.Equal(t, "No target set", zero.Label)

	nan := Calculate(Input{AnnualTarget: math.NaN(), View: ViewYTD, CurrentYear: 2026, CurrentQuarter: 1})
	assert.Equal(t, float64(0), nan.AdjustedAnnualTarget)
}

func TestQuarterHelpers(t *testing.T) {
	y, q := QuarterOf(time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2026, y)
	assert.Equal(t, 3, q)

	py, pq := PreviousQuarter(2026, 1)
	assert.Equal(t, 2025, py)
	assert.Equal(t, 4, pq)

	start, end := QuarterRangeUTC(2026, 2)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.June, 30, 23, 59, 59, 0, time.UTC), end)
}
