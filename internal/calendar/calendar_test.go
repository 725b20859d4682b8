package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/medtrack-cli/internal/medication"
)

func day(d, h, min int) time.Time {
	return time.Date(2026, 3, d, h, min, 0, 0, time.UTC)
}

func doseDoc() medication.Document {
	return medication.Document{
		ID: "med-1",
		Data: medication.Data{
			Name:      "Lisinopril",
			Dosage:    "10mg",
			Frequency: medication.FrequencyDaily,
			Times:     []string{"08:00"},
		},
		DoseHistory: []medication.DoseRecord{
			{Timestamp: day(10, 8, 5), Taken: true, Notes: "with food"},
			{Timestamp: day(11, 8, 0), Taken: false},
			{Timestamp: day(20, 8, 0), Taken: true},
		},
	}
}

func TestRangeDoseEvents(t *testing.T) {
	events := Range([]medication.Document{doseDoc()}, day(10, 0, 0), day(12, 0, 0), day(12, 0, 0))
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "Taken: Lisinopril (10mg)", first.Summary)
	assert.Equal(t, day(10, 8, 5), first.Start)
	assert.Equal(t, day(10, 8, 10), first.End)
	assert.Equal(t, "med-1", first.MedicationID)
	assert.Contains(t, first.Description, "Notes: with food")
	assert.Contains(t, first.Description, "Frequency: daily")

	second := events[1]
	assert.Equal(t, "Skipped: Lisinopril (10mg)", second.Summary)
	assert.NotEqual(t, first.UID, second.UID)
}

func TestRangeBoundsCompareByDay(t *testing.T) {
	// A query starting mid-day still includes that morning's dose.
	events := Range([]medication.Document{doseDoc()}, day(10, 12, 0), day(10, 23, 0), day(10, 23, 0))
	require.Len(t, events, 1)
	assert.Equal(t, day(10, 8, 5), events[0].Start)
}

func TestRangeRefillEvent(t *testing.T) {
	supply := 4
	doc := medication.Document{
		ID: "med-2",
		Data: medication.Data{
			Name:                    "Metformin",
			Dosage:                  "500mg",
			Frequency:               medication.FrequencyDaily,
			Times:                   []string{"08:00", "20:00"},
			SupplyTrackingEnabled:   true,
			ShowRefillOnCalendar:    true,
			CurrentSupply:           &supply,
			PillsPerDose:            1,
			RefillReminderThreshold: 7,
		},
	}

	// Two pills a day, four left: refill in two days at 09:00.
	events := Range([]medication.Document{doc}, day(10, 0, 0), day(15, 0, 0), day(10, 0, 0))
	require.Len(t, events, 1)
	assert.Equal(t, "Refill Needed: Metformin", events[0].Summary)
	assert.Equal(t, day(12, 9, 0), events[0].Start)
	assert.Equal(t, day(12, 10, 0), events[0].End)
	assert.Contains(t, events[0].Description, "Current Supply: 4 units")
	assert.Contains(t, events[0].Description, "Days Remaining: 2.0")
	assert.Contains(t, events[0].UID, "refill")
}

func TestRangeRefillProjectsFromNow(t *testing.T) {
	supply := 4
	doc := medication.Document{
		ID: "med-2",
		Data: medication.Data{
			Name:                    "Metformin",
			Dosage:                  "500mg",
			Frequency:               medication.FrequencyDaily,
			Times:                   []string{"08:00", "20:00"},
			SupplyTrackingEnabled:   true,
			ShowRefillOnCalendar:    true,
			CurrentSupply:           &supply,
			PillsPerDose:            1,
			RefillReminderThreshold: 7,
		},
	}

	// Querying last week must not render the reminder at a historical
	// position; the refill is still two days from now, outside the range.
	events := Range([]medication.Document{doc}, day(1, 0, 0), day(8, 0, 0), day(10, 0, 0))
	assert.Empty(t, events)

	// A range covering the projected date still shows it.
	events = Range([]medication.Document{doc}, day(1, 0, 0), day(15, 0, 0), day(10, 0, 0))
	require.Len(t, events, 1)
	assert.Equal(t, day(12, 9, 0), events[0].Start)
}

func TestRangeRefillHiddenWithoutFlag(t *testing.T) {
	supply := 4
	doc := medication.Document{
		ID: "med-2",
		Data: medication.Data{
			Name:                  "Metformin",
			Dosage:                "500mg",
			Frequency:             medication.FrequencyDaily,
			Times:                 []string{"08:00", "20:00"},
			SupplyTrackingEnabled: true,
			CurrentSupply:         &supply,
			PillsPerDose:          1,
		},
	}

	events := Range([]medication.Document{doc}, day(10, 0, 0), day(15, 0, 0), day(10, 0, 0))
	assert.Empty(t, events)
}

func TestRangeSortedAcrossMedications(t *testing.T) {
	other := medication.Document{
		ID: "med-3",
		Data: medication.Data{
			Name:      "Aspirin",
			Dosage:    "81mg",
			Frequency: medication.FrequencyDaily,
		},
		DoseHistory: []medication.DoseRecord{
			{Timestamp: day(10, 7, 0), Taken: true},
			{Timestamp: day(11, 7, 0), Taken: true},
		},
	}

	events := Range([]medication.Document{doseDoc(), other}, day(10, 0, 0), day(12, 0, 0), day(12, 0, 0))
	require.Len(t, events, 4)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Start.Before(events[i-1].Start))
	}
	assert.Equal(t, day(10, 7, 0), events[0].Start)
}
