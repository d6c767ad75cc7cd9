package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func TestResolveForCloseDatePicksContainingWindow(t *testing.T) {
	plans := []CommissionPlan{
		{ID: 1, Name: "FY25", EffectiveStartDate: day(2025, 1, 1), EffectiveEndDate: dayPtr(2025, 12, 31)},
		{ID: 2, Name: "FY26", EffectiveStartDate: day(2026, 1, 1)},
	}

	got, err := ResolveForCloseDate(plans, day(2025, 6, 15))
	require.NoError(t, err)
	assert.Equal(t, "FY25", got.Name)

	got, err = ResolveForCloseDate(plans, day(2026, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, "FY26", got.Name)
}

func TestResolveForCloseDateOpenEndedWindow(t *testing.T) {
	plans := []CommissionPlan{
		{ID: 1, EffectiveStartDate: day(2024, 1, 1)},
	}
	got, err := ResolveForCloseDate(plans, day(2030, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, plans[0].ID, got.ID)
}

func TestResolveForCloseDateOverlapLatestStartWins(t *testing.T) {
	plans := []CommissionPlan{
		{ID: 1, Name: "old", EffectiveStartDate: day(2026, 1, 1)},
		{ID: 2, Name: "revised", EffectiveStartDate: day(2026, 3, 1)},
	}
	got, err := ResolveForCloseDate(plans, day(2026, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Name)
}

func TestResolveForCloseDateNoActivePlan(t *testing.T) {
	plans := []CommissionPlan{
		{ID: 1, EffectiveStartDate: day(2026, 1, 1), EffectiveEndDate: dayPtr(2026, 6, 30)},
	}
	_, err := ResolveForCloseDate(plans, day(2026, 7, 1))
	assert.ErrorIs(t, err, ErrNoActivePlan)

	_, err = ResolveForCloseDate(nil, day(2026, 1, 1))
	assert.ErrorIs(t, err, ErrNoActivePlan)
}

func TestResolveForCloseDateBoundariesInclusive(t *testing.T) {
	plans := []CommissionPlan{
		{ID: 1, EffectiveStartDate: day(2026, 1, 1), EffectiveEndDate: dayPtr(2026, 3, 31)},
	}
	_, err := ResolveForCloseDate(plans, day(2026, 1, 1))
	assert.NoError(t, err)
	_, err = ResolveForCloseDate(plans, day(2026, 3, 31))
	assert.NoError(t, err)
	_, err = ResolveForCloseDate(plans, day(2025, 12, 31))
	assert.ErrorIs(t, err, ErrNoActivePlan)
}
