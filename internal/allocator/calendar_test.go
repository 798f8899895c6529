package allocator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-space-master/internal/models"
)

func weekLabels(days []ScheduledDay) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Week
	}
	return out
}

func repeat(label string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = label
	}
	return out
}

func TestCalendarDefaultsToTwoWeekBlockCycle(t *testing.T) {
	days, err := SchedulePlan{Start: date(t, "2025-09-01")}.Calendar()
	require.NoError(t, err)
	require.Len(t, days, DefaultSchoolDays)

	assert.Equal(t, "2025-09-01", days[0].Date.Format(time.DateOnly))
	assert.Equal(t, "2025-09-12", days[9].Date.Format(time.DateOnly))
	assert.Equal(t, append(repeat(models.WeekA, 5), repeat(models.WeekB, 5)...), weekLabels(days))
	for _, d := range days {
		assert.NotEqual(t, time.Saturday, d.Date.Weekday())
		assert.NotEqual(t, time.Sunday, d.Date.Weekday())
	}
}

func TestCalendarBlockCycleAlternates(t *testing.T) {
	days, err := SchedulePlan{Start: date(t, "2025-09-01"), Weeks: 4}.Calendar()
	require.NoError(t, err)
	require.Len(t, days, 20)
	assert.Equal(t, models.WeekA, days[0].Week)
	assert.Equal(t, models.WeekB, days[5].Week)
	assert.Equal(t, models.WeekA, days[10].Week)
	assert.Equal(t, models.WeekB, days[19].Week)
}

func TestCalendarBlockCycleCountsSchoolDaysNotMondays(t *testing.T) {
	// A Wednesday start keeps blocks of five school days regardless of weekday.
	days, err := SchedulePlan{Start: date(t, "2025-09-03"), Days: 7}.Calendar()
	require.NoError(t, err)
	assert.Equal(t, append(repeat(models.WeekA, 5), repeat(models.WeekB, 2)...), weekLabels(days))
	assert.Equal(t, "2025-09-09", days[4].Date.Format(time.DateOnly))
}

func TestCalendarFixedSplit(t *testing.T) {
	days, err := SchedulePlan{Start: date(t, "2025-09-01"), Days: 15, Policy: WeekPolicyFixedSplit}.Calendar()
	require.NoError(t, err)
	assert.Equal(t, append(repeat(models.WeekA, 5), repeat(models.WeekB, 10)...), weekLabels(days))
}

func TestCalendarMondayToggle(t *testing.T) {
	plan := SchedulePlan{
		Start:     date(t, "2025-09-04"),
		End:       date(t, "2025-09-16"),
		Policy:    WeekPolicyMondayToggle,
		StartWeek: "B",
	}
	days, err := plan.Calendar()
	require.NoError(t, err)
	require.Len(t, days, 9)

	expected := append(repeat(models.WeekB, 2), repeat(models.WeekA, 5)...)
	expected = append(expected, repeat(models.WeekB, 2)...)
	assert.Equal(t, expected, weekLabels(days))
}

func TestCalendarMondayStartDoesNotToggle(t *testing.T) {
	days, err := SchedulePlan{Start: date(t, "2025-09-01"), Days: 6, Policy: WeekPolicyMondayToggle}.Calendar()
	require.NoError(t, err)
	assert.Equal(t, models.WeekA, days[0].Week)
	assert.Equal(t, models.WeekB, days[5].Week)
}

func TestCalendarEndDateRange(t *testing.T) {
	days, err := SchedulePlan{Start: date(t, "2025-09-05"), End: date(t, "2025-09-08")}.Calendar()
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "Friday", days[0].DayName())
	assert.Equal(t, "Monday", days[1].DayName())
}

func TestCalendarValidation(t *testing.T) {
	_, err := SchedulePlan{}.Calendar()
	assert.ErrorIs(t, err, ErrMissingStartDate)

	_, err = SchedulePlan{Start: date(t, "2025-09-05"), End: date(t, "2025-09-01")}.Calendar()
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = SchedulePlan{Start: date(t, "2025-09-05"), Days: -1}.Calendar()
	assert.ErrorIs(t, err, ErrNegativeDayCount)

	_, err = SchedulePlan{Start: date(t, "2025-09-05"), Policy: "lunar"}.Calendar()
	assert.ErrorIs(t, err, ErrUnknownWeekPolicy)
}

func TestParseWeekPolicy(t *testing.T) {
	p, err := ParseWeekPolicy("")
	require.NoError(t, err)
	assert.Equal(t, WeekPolicyBlockCycle, p)

	p, err = ParseWeekPolicy(" Monday-Toggle ")
	require.NoError(t, err)
	assert.Equal(t, WeekPolicyMondayToggle, p)
}
