package medication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyEntry(times ...string) *Entry {
	return NewEntry("med-1", Data{
		Name:                    "Lisinopril",
		Dosage:                  "10mg",
		Frequency:               FrequencyDaily,
		Times:                   times,
		PillsPerDose:            1,
		RefillReminderThreshold: 7,
	})
}

func TestUpdateStatus_DueThenOverdue(t *testing.T) {
	e := dailyEntry("08:00")
	e.GracePeriod = 2 * time.Hour

	// 09:30, dose not logged, inside the 2h grace window.
	assert.Equal(t, StatusDue, e.UpdateStatus(at(2026, 3, 10, 9, 30)))

	// 11:00, grace expired.
	assert.Equal(t, StatusOverdue, e.UpdateStatus(at(2026, 3, 10, 11, 0)))
}

func TestUpdateStatus_TakenAndSkipped(t *testing.T) {
	now := at(2026, 3, 10, 8, 15)

	e := dailyEntry("08:00")
	e.RecordDoseTaken(now, "")
	assert.Equal(t, StatusTaken, e.UpdateStatus(now))

	e2 := dailyEntry("08:00")
	e2.RecordDoseSkipped(now, "out of town")
	assert.Equal(t, StatusSkipped, e2.UpdateStatus(now))
}

func TestUpdateStatus_TakenResetsAtNextDose(t *testing.T) {
	e := dailyEntry("08:00", "20:00")
	e.RecordDoseTaken(at(2026, 3, 10, 8, 5), "")

	assert.Equal(t, StatusTaken, e.UpdateStatus(at(2026, 3, 10, 12, 0)))

	// The evening dose opens a fresh window.
	assert.Equal(t, StatusDue, e.UpdateStatus(at(2026, 3, 10, 20, 30)))
}

func TestUpdateStatus_NotDueBeforeFirstDose(t *testing.T) {
	start := at(2026, 3, 15, 0, 0)
	e := NewEntry("med-2", Data{
		Name:      "Amoxicillin",
		Dosage:    "500mg",
		Frequency: FrequencyDaily,
		Times:     []string{"08:00"},
		StartDate: &start,
	})

	assert.Equal(t, StatusNotDue, e.UpdateStatus(at(2026, 3, 12, 12, 0)))
	require.NotNil(t, e.NextDue)
	assert.Equal(t, at(2026, 3, 15, 8, 0), *e.NextDue)
}

func TestUpdateStatus_AsNeededNeverOverdue(t *testing.T) {
	e := NewEntry("med-3", Data{
		Name:      "Ibuprofen",
		Dosage:    "200mg",
		Frequency: FrequencyAsNeeded,
	})

	now := at(2026, 3, 10, 12, 0)
	assert.Equal(t, StatusNotDue, e.UpdateStatus(now))
	assert.Nil(t, e.NextDue)

	// A logged dose shows up as taken for the recent-log window, then
	// reverts to not_due. It never becomes overdue.
	e.RecordDoseTaken(now, "")
	assert.Equal(t, StatusTaken, e.UpdateStatus(now.Add(time.Hour)))
	assert.Equal(t, StatusNotDue, e.UpdateStatus(now.Add(24*time.Hour)))
	assert.Equal(t, StatusNotDue, e.UpdateStatus(now.Add(30*24*time.Hour)))
}

func TestResetSchedule(t *testing.T) {
	e := dailyEntry("08:00")
	e.UpdateStatus(at(2026, 3, 10, 6, 0))
	require.NotNil(t, e.NextDue)

	e.ResetSchedule()
	assert.Nil(t, e.NextDue)

	e.UpdateStatus(at(2026, 3, 10, 6, 0))
	require.NotNil(t, e.NextDue)
	assert.Equal(t, at(2026, 3, 10, 8, 0), *e.NextDue)
}

func TestBackdatedRecordSettlesEarlierWindow(t *testing.T) {
	e := dailyEntry("08:00")

	// Log yesterday's dose after the fact; today's status is unaffected.
	e.RecordDoseTaken(at(2026, 3, 9, 8, 10), "logged late")
	assert.Equal(t, StatusDue, e.UpdateStatus(at(2026, 3, 10, 8, 30)))
}

func TestMissedDosesAndAdherence(t *testing.T) {
	e := dailyEntry("08:00")
	grace := 2 * time.Hour

	// Three scheduled days: taken, missed, taken.
	e.RecordDoseTaken(at(2026, 3, 10, 8, 5), "")
	e.RecordDoseTaken(at(2026, 3, 12, 8, 20), "")

	since := at(2026, 3, 9, 23, 0)
	now := at(2026, 3, 12, 12, 0)

	assert.Equal(t, 1, MissedDoses(e.Data, e.History, since, now, grace))

	rate, ok := AdherenceRate(e.Data, e.History, since, now, grace)
	require.True(t, ok)
	assert.InDelta(t, 66.7, rate, 0.1)
}

func TestDoseHistoryQueries(t *testing.T) {
	h := NewDoseHistory(nil)
	h.Append(DoseRecord{Timestamp: at(2026, 3, 10, 8, 0), Taken: true})
	h.Append(DoseRecord{Timestamp: at(2026, 3, 10, 20, 0), Taken: false, Notes: "nausea"})
	h.Append(DoseRecord{Timestamp: at(2026, 3, 11, 8, 0), Taken: true})

	last, ok := h.LastTaken()
	require.True(t, ok)
	assert.Equal(t, at(2026, 3, 11, 8, 0), last)

	assert.Equal(t, 2, h.CountTakenInRange(at(2026, 3, 10, 0, 0), at(2026, 3, 11, 23, 59)))
	assert.Equal(t, 1, h.CountTakenInRange(at(2026, 3, 11, 0, 0), at(2026, 3, 11, 23, 59)))
	assert.Len(t, h.RecordsInRange(at(2026, 3, 10, 0, 0), at(2026, 3, 10, 23, 59)), 2)
}

func TestDocumentRoundTrip(t *testing.T) {
	e := dailyEntry("08:00", "20:00")
	e.Data.SupplyTrackingEnabled = true
	supply := 42
	e.Data.CurrentSupply = &supply

	now := at(2026, 3, 10, 9, 0)
	e.RecordDoseTaken(at(2026, 3, 10, 8, 5), "with breakfast")
	e.UpdateStatus(now)

	restored := FromDocument(e.Document())
	restored.UpdateStatus(now)

	assert.Equal(t, e.ID, restored.ID)
	assert.Equal(t, e.Status, restored.Status)
	assert.Equal(t, e.Data, restored.Data)
	assert.Equal(t, e.History.Records(), restored.History.Records())
	require.NotNil(t, restored.NextDue)
	assert.Equal(t, *e.NextDue, *restored.NextDue)
}

func TestDeviceIDStable(t *testing.T) {
	e := dailyEntry("08:00")
	assert.Equal(t, e.DeviceID(), e.DeviceID())
	assert.NotEqual(t, e.DeviceID(), NewEntry("med-9", e.Data).DeviceID())
}

func TestNotifierDecisions(t *testing.T) {
	assert.True(t, StatusChanged(StatusDue, StatusOverdue))
	assert.False(t, StatusChanged(StatusDue, StatusDue))

	assert.True(t, LowSupplyEdge(false, true))
	assert.False(t, LowSupplyEdge(true, true))
	assert.False(t, LowSupplyEdge(true, false))
	assert.False(t, LowSupplyEdge(false, false))
}
