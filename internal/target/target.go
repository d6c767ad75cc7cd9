// Package target computes ramp-adjusted quota targets from a hire date.
package target

import (
	"fmt"
	"math"
	"time"
)

type View string

const (
	ViewQTD   View = "qtd"
	ViewYTD   View = "ytd"
	ViewPrevQ View = "prevq"
)

func ParseView(raw string) (View, bool) {
	switch View(raw) {
	case ViewQTD, ViewYTD, ViewPrevQ:
		return View(raw), true
	default:
		return "", false
	}
}

type Input struct {
	AnnualTarget   float64
	StartDate      *time.Time
	View           View
	CurrentYear    int
	CurrentQuarter int
}

type Result struct {
	Target               float64
	AdjustedAnnualTarget float64
	IsRampQuarter        bool
	Label                string
}

// QuarterOf returns the 1-based calendar quarter containing t.
func QuarterOf(t time.Time) (year, quarter int) {
	return t.Year(), int(t.Month()-1)/3 + 1
}

// PreviousQuarter wraps Q1 back to Q4 of the prior year.
func PreviousQuarter(year, quarter int) (int, int) {
	if quarter == 1 {
		return year - 1, 4
	}
	return year, quarter - 1
}

// QuarterRangeUTC returns the inclusive UTC window of a calendar quarter.
func QuarterRangeUTC(year, quarter int) (start, end time.Time) {
	startMonth := time.Month((quarter-1)*3 + 1)
	start = time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 3, 0).Add(-time.Second)
	return start, end
}

// Calculate resolves the effective quota target for a reporting view.
// The hire quarter carries half a quarterly target; quarters before the hire
// quarter contribute nothing to the adjusted annual target. AEs hired in a
// prior year are fully ramped.
func Calculate(in Input) Result {
	annualTarget := finiteOrZero(in.AnnualTarget)
	if annualTarget <= 0 {
		return Result{Label: "No target set"}
	}

	quarterlyTarget := annualTarget / 4

	startedThisYear := false
	startQuarter := 0
	if in.StartDate != nil && in.StartDate.Year() == in.CurrentYear {
		startedThisYear = true
		_, startQuarter = QuarterOf(*in.StartDate)
	}

	adjustedAnnualTarget := annualTarget
	if startedThisYear {
		fullQuartersRemaining := 4 - startQuarter
		adjustedAnnualTarget = quarterlyTarget*0.5 + float64(fullQuartersRemaining)*quarterlyTarget
	}

	switch in.View {
	case ViewQTD:
		isRamp := startedThisYear && startQuarter == in.CurrentQuarter
		t := quarterlyTarget
		label := fmt.Sprintf("Q%d Target", in.CurrentQuarter)
		if isRamp {
			t = quarterlyTarget * 0.5
			label = fmt.Sprintf("Q%d Target (Ramp)", in.CurrentQuarter)
		}
		return Result{Target: t, AdjustedAnnualTarget: adjustedAnnualTarget, IsRampQuarter: isRamp, Label: label}

	case ViewYTD:
		label := "Annual Target"
		if startedThisYear {
			label = "Annual Target (ramp adjusted)"
		}
		return Result{Target: adjustedAnnualTarget, AdjustedAnnualTarget: adjustedAnnualTarget, IsRampQuarter: startedThisYear, Label: label}

	case ViewPrevQ:
		prevYear, prevQ := PreviousQuarter(in.CurrentYear, in.CurrentQuarter)
		isRamp := false
		if in.StartDate != nil && in.StartDate.Year() == prevYear {
			if _, q := QuarterOf(*in.StartDate); q == prevQ {
				isRamp = true
			}
		}
		t := quarterlyTarget
		label := fmt.Sprintf("Q%d Target", prevQ)
		if isRamp {
			t = quarterlyTarget * 0.5
			label = fmt.Sprintf("Q%d Target (Ramp)", prevQ)
		}
		return Result{Target: t, AdjustedAnnualTarget: adjustedAnnualTarget, IsRampQuarter: isRamp, Label: label}
	}

	return Result{Target: annualTarget, AdjustedAnnualTarget: adjustedAnnualTarget, Label: "Annual Target"}
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
