package medication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestNextDue_Daily(t *testing.T) {
	data := Data{
		Name:      "Lisinopril",
		Dosage:    "10mg",
		Frequency: FrequencyDaily,
		Times:     []string{"08:00", "20:00"},
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first time", at(2026, 3, 10, 6, 0), at(2026, 3, 10, 8, 0)},
		{"exactly at a time", at(2026, 3, 10, 8, 0), at(2026, 3, 10, 8, 0)},
		{"between times", at(2026, 3, 10, 12, 0), at(2026, 3, 10, 20, 0)},
		{"after last time rolls to next day", at(2026, 3, 10, 21, 0), at(2026, 3, 11, 8, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := NextDue(data, tt.now)
			require.True(t, ok)
			assert.Equal(t, tt.want, next)
			assert.False(t, next.Before(tt.now))
		})
	}
}

func TestNextDue_NoSchedule(t *testing.T) {
	now := at(2026, 3, 10, 12, 0)

	asNeeded := Data{Name: "Ibuprofen", Dosage: "200mg", Frequency: FrequencyAsNeeded}
	_, ok := NextDue(asNeeded, now)
	assert.False(t, ok)

	emptyTimes := Data{Name: "Vitamin D", Dosage: "1000 IU", Frequency: FrequencyDaily}
	_, ok = NextDue(emptyTimes, now)
	assert.False(t, ok)
}

func TestNextDue_Weekly(t *testing.T) {
	start := at(2026, 3, 9, 0, 0) // a Monday
	data := Data{
		Name:      "Methotrexate",
		Dosage:    "15mg",
		Frequency: FrequencyWeekly,
		Times:     []string{"09:00"},
		StartDate: &start,
	}

	// Tuesday: next occurrence is the following Monday.
	next, ok := NextDue(data, at(2026, 3, 10, 12, 0))
	require.True(t, ok)
	assert.Equal(t, at(2026, 3, 16, 9, 0), next)

	// Monday morning before the dose time.
	next, ok = NextDue(data, at(2026, 3, 16, 7, 0))
	require.True(t, ok)
	assert.Equal(t, at(2026, 3, 16, 9, 0), next)
}

func TestNextDue_MonthlyClampsShortMonths(t *testing.T) {
	start := at(2026, 1, 31, 0, 0)
	data := Data{
		Name:      "Alendronate",
		Dosage:    "70mg",
		Frequency: FrequencyMonthly,
		Times:     []string{"08:00"},
		StartDate: &start,
	}

	// February 2026 has 28 days, so day 31 clamps to the 28th.
	next, ok := NextDue(data, at(2026, 2, 1, 0, 0))
	require.True(t, ok)
	assert.Equal(t, at(2026, 2, 28, 8, 0), next)

	next, ok = NextDue(data, at(2026, 3, 1, 0, 0))
	require.True(t, ok)
	assert.Equal(t, at(2026, 3, 31, 8, 0), next)
}

func TestNextDue_ActiveWindow(t *testing.T) {
	start := at(2026, 3, 15, 0, 0)
	end := at(2026, 3, 20, 23, 59)
	data := Data{
		Name:      "Amoxicillin",
		Dosage:    "500mg",
		Frequency: FrequencyDaily,
		Times:     []string{"08:00"},
		StartDate: &start,
		EndDate:   &end,
	}

	// Before the window opens, next due is the first in-window instant.
	next, ok := NextDue(data, at(2026, 3, 10, 12, 0))
	require.True(t, ok)
	assert.Equal(t, at(2026, 3, 15, 8, 0), next)

	// Past the window, there is no next due.
	_, ok = NextDue(data, at(2026, 3, 21, 12, 0))
	assert.False(t, ok)
}

func TestPrevDue_Daily(t *testing.T) {
	data := Data{
		Name:      "Lisinopril",
		Dosage:    "10mg",
		Frequency: FrequencyDaily,
		Times:     []string{"08:00", "20:00"},
	}

	prev, ok := PrevDue(data, at(2026, 3, 10, 9, 30))
	require.True(t, ok)
	assert.Equal(t, at(2026, 3, 10, 8, 0), prev)

	prev, ok = PrevDue(data, at(2026, 3, 10, 21, 0))
	require.True(t, ok)
	assert.Equal(t, at(2026, 3, 10, 20, 0), prev)

	// Early morning reaches back to yesterday's evening dose.
	prev, ok = PrevDue(data, at(2026, 3, 10, 6, 0))
	require.True(t, ok)
	assert.Equal(t, at(2026, 3, 9, 20, 0), prev)
}

func TestPrevDue_BeforeStart(t *testing.T) {
	start := at(2026, 3, 15, 0, 0)
	data := Data{
		Name:      "Amoxicillin",
		Dosage:    "500mg",
		Frequency: FrequencyDaily,
		Times:     []string{"08:00"},
		StartDate: &start,
	}

	_, ok := PrevDue(data, at(2026, 3, 10, 12, 0))
	assert.False(t, ok)
}

func TestDueInstantsBetween(t *testing.T) {
	data := Data{
		Name:      "Lisinopril",
		Dosage:    "10mg",
		Frequency: FrequencyDaily,
		Times:     []string{"08:00", "20:00"},
	}

	instants := DueInstantsBetween(data, at(2026, 3, 10, 0, 0), at(2026, 3, 12, 8, 0))
	require.Len(t, instants, 5)
	assert.Equal(t, at(2026, 3, 10, 8, 0), instants[0])
	assert.Equal(t, at(2026, 3, 12, 8, 0), instants[4])
}

func TestDataValidate(t *testing.T) {
	valid := Data{
		Name:                    "Lisinopril",
		Dosage:                  "10mg",
		Frequency:               FrequencyDaily,
		Times:                   []string{"08:00"},
		PillsPerDose:            1,
		RefillReminderThreshold: 7,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Data)
	}{
		{"missing name", func(d *Data) { d.Name = "" }},
		{"missing dosage", func(d *Data) { d.Dosage = "" }},
		{"bad frequency", func(d *Data) { d.Frequency = "hourly" }},
		{"bad time of day", func(d *Data) { d.Times = []string{"25:00"} }},
		{"negative supply", func(d *Data) { n := -1; d.CurrentSupply = &n }},
		{"zero pills per dose", func(d *Data) { d.PillsPerDose = 0 }},
		{"end before start", func(d *Data) {
			d.StartDate = timePtr(at(2026, 3, 10, 0, 0))
			d.EndDate = timePtr(at(2026, 3, 1, 0, 0))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}
