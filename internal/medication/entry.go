package medication

import (
	"time"

	"github.com/google/uuid"
)

// Default engine timing knobs, overridable through configuration.
const (
	DefaultGracePeriod     = 2 * time.Hour
	DefaultRecentLogWindow = 4 * time.Hour
)

// Entry is the mutable aggregate for one tracked medication: prescription
// data, dose ledger, supply state, and the derived status. Entries are owned
// by the registry and must only be mutated through its operations.
type Entry struct {
	ID      string
	Data    Data
	History *DoseHistory

	// Derived by UpdateStatus.
	Status    Status
	NextDue   *time.Time
	LowSupply bool

	// GracePeriod separates due from overdue after a scheduled instant.
	GracePeriod time.Duration
	// RecentLogWindow is how long a logged dose keeps the taken/skipped
	// status on an unscheduled (as-needed) medication.
	RecentLogWindow time.Duration
}

// NewEntry creates an entry with an empty ledger. The data is assumed to be
// validated and normalized by the caller.
func NewEntry(id string, data Data) *Entry {
	return &Entry{
		ID:              id,
		Data:            data,
		History:         NewDoseHistory(nil),
		Status:          StatusNotDue,
		GracePeriod:     DefaultGracePeriod,
		RecentLogWindow: DefaultRecentLogWindow,
	}
}

// DeviceID derives a stable identifier from the entry id for external
// device-grouping integrations.
func (e *Entry) DeviceID() string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("medtrack:"+e.ID)).String()
}

// ResetSchedule discards the cached next-due instant, forcing the next
// UpdateStatus to recompute from the current data. Required after the data is
// replaced wholesale.
func (e *Entry) ResetSchedule() {
	e.NextDue = nil
}

// RecordDoseTaken appends a taken record and recomputes status. Backdated
// timestamps are accepted.
func (e *Entry) RecordDoseTaken(at time.Time, notes string) {
	e.History.Append(DoseRecord{Timestamp: at, Taken: true, Notes: notes})
	e.UpdateStatus(at)
}

// RecordDoseSkipped appends a skipped record and recomputes status.
func (e *Entry) RecordDoseSkipped(at time.Time, notes string) {
	e.History.Append(DoseRecord{Timestamp: at, Taken: false, Notes: notes})
	e.UpdateStatus(at)
}

// UpdateStatus recomputes the status as a pure function of the schedule, the
// ledger, and now, and refreshes the cached next-due instant and low-supply
// flag. It returns the new status.
func (e *Entry) UpdateStatus(now time.Time) Status {
	if next, ok := NextDue(e.Data, now); ok {
		e.NextDue = &next
	} else {
		e.NextDue = nil
	}

	e.Status = e.computeStatus(now)
	e.LowSupply = IsLowSupply(e.Data, e.History, now)
	return e.Status
}

func (e *Entry) computeStatus(now time.Time) Status {
	if !e.Data.HasSchedule() {
		return e.recentLogStatus(now)
	}

	prev, ok := PrevDue(e.Data, now)
	if !ok {
		// Before the first scheduled instant.
		return StatusNotDue
	}

	// A record between the most recent due instant and the one after it
	// settles the status for this dose window.
	upper := now.AddDate(1, 0, 0)
	if following, ok := NextDue(e.Data, prev.Add(time.Second)); ok {
		upper = following
	}
	if rec, ok := e.History.recordBetween(prev, upper); ok {
		if rec.Taken {
			return StatusTaken
		}
		return StatusSkipped
	}

	grace := e.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if now.Before(prev.Add(grace)) {
		return StatusDue
	}
	return StatusOverdue
}

// recentLogStatus reflects a recently logged dose on an unscheduled
// medication; otherwise the medication is simply not due.
func (e *Entry) recentLogStatus(now time.Time) Status {
	window := e.RecentLogWindow
	if window <= 0 {
		window = DefaultRecentLogWindow
	}
	rec, ok := e.History.Last()
	if !ok {
		return StatusNotDue
	}
	age := now.Sub(rec.Timestamp)
	if age < 0 || age > window {
		return StatusNotDue
	}
	if rec.Taken {
		return StatusTaken
	}
	return StatusSkipped
}

// Snapshot is the externally visible view of an entry at a point in time.
type Snapshot struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency Frequency  `json:"frequency"`
	Status    Status     `json:"status"`
	NextDue   *time.Time `json:"next_due,omitempty"`
	LastTaken *time.Time `json:"last_taken,omitempty"`
	DeviceID  string     `json:"device_id"`

	MissedDoses   int      `json:"missed_doses"`
	AdherenceRate *float64 `json:"adherence_rate,omitempty"`

	SupplyTrackingEnabled bool     `json:"supply_tracking_enabled"`
	CurrentSupply         *int     `json:"current_supply,omitempty"`
	DailyConsumption      *float64 `json:"daily_consumption,omitempty"`
	DaysRemaining         *float64 `json:"days_remaining,omitempty"`
	EstimatedRefillDate   *string  `json:"estimated_refill_date,omitempty"`
	LowSupply             bool     `json:"low_supply"`
}

// Snapshot renders the entry for API consumers. adherenceWindow bounds the
// trailing range for missed-dose and adherence statistics.
func (e *Entry) Snapshot(now time.Time, adherenceWindow time.Duration) Snapshot {
	snap := Snapshot{
		ID:                    e.ID,
		Name:                  e.Data.Name,
		Dosage:                e.Data.Dosage,
		Frequency:             e.Data.Frequency,
		Status:                e.Status,
		NextDue:               e.NextDue,
		DeviceID:              e.DeviceID(),
		SupplyTrackingEnabled: e.Data.SupplyTrackingEnabled,
		CurrentSupply:         e.Data.CurrentSupply,
		LowSupply:             e.LowSupply,
	}

	if last, ok := e.History.LastTaken(); ok {
		snap.LastTaken = &last
	}

	grace := e.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	since := now.Add(-adherenceWindow)
	if e.Data.StartDate != nil && e.Data.StartDate.After(since) {
		since = *e.Data.StartDate
	}
	snap.MissedDoses = MissedDoses(e.Data, e.History, since, now, grace)
	if rate, ok := AdherenceRate(e.Data, e.History, since, now, grace); ok {
		snap.AdherenceRate = &rate
	}

	if rate, ok := DailyConsumption(e.Data, e.History, now); ok {
		snap.DailyConsumption = &rate
	}
	if days, ok := DaysOfSupplyRemaining(e.Data, e.History, now); ok {
		snap.DaysRemaining = &days
	}
	if refill, ok := EstimatedRefillDate(e.Data, e.History, now); ok {
		s := refill.Format("2006-01-02")
		snap.EstimatedRefillDate = &s
	}

	return snap
}

// Document is the persisted shape of an entry: everything needed to
// reconstruct it exactly.
type Document struct {
	ID          string       `json:"id"`
	Data        Data         `json:"data"`
	DoseHistory []DoseRecord `json:"dose_history"`
	Status      Status       `json:"status,omitempty"`
	NextDue     *time.Time   `json:"next_due,omitempty"`
	LowSupply   bool         `json:"low_supply,omitempty"`
}

// Document serializes the entry for persistence.
func (e *Entry) Document() Document {
	return Document{
		ID:          e.ID,
		Data:        e.Data,
		DoseHistory: e.History.Records(),
		Status:      e.Status,
		NextDue:     e.NextDue,
		LowSupply:   e.LowSupply,
	}
}

// FromDocument reconstructs an entry from its persisted shape.
func FromDocument(doc Document) *Entry {
	status := doc.Status
	if status == "" {
		status = StatusNotDue
	}
	return &Entry{
		ID:              doc.ID,
		Data:            doc.Data,
		History:         NewDoseHistory(doc.DoseHistory),
		Status:          status,
		NextDue:         doc.NextDue,
		LowSupply:       doc.LowSupply,
		GracePeriod:     DefaultGracePeriod,
		RecentLogWindow: DefaultRecentLogWindow,
	}
}
