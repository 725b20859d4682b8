package medication

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/gmsas95/medtrack-cli/internal/errors"
)

// Frequency is how often a medication is scheduled.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAsNeeded Frequency = "as_needed"
)

// ParseFrequency converts a string into a Frequency, rejecting unknown values.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyAsNeeded:
		return Frequency(s), nil
	}
	return "", apperrors.Validation(fmt.Sprintf("unsupported frequency: %q", s))
}

// Valid reports whether the frequency is one of the known values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyAsNeeded:
		return true
	}
	return false
}

// Status is the derived state of a medication at a point in time.
type Status string

const (
	StatusNotDue  Status = "not_due"
	StatusDue     Status = "due"
	StatusOverdue Status = "overdue"
	StatusTaken   Status = "taken"
	StatusSkipped Status = "skipped"
)

// Data carries the prescription facts for a medication. It is treated as an
// immutable value: updates replace the whole struct rather than mutating
// individual fields, except for the supply counters which the engine owns.
type Data struct {
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"` // e.g., "10mg", "1 tablet"
	Frequency Frequency  `json:"frequency"`
	Times     []string   `json:"times"` // ["08:00", "20:00"]
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Notes     string     `json:"notes,omitempty"`

	// Supply tracking
	SupplyTrackingEnabled   bool       `json:"supply_tracking_enabled"`
	CurrentSupply           *int       `json:"current_supply,omitempty"`
	PillsPerDose            int        `json:"pills_per_dose"`
	RefillReminderThreshold int        `json:"refill_reminder_threshold"` // days
	LastRefillDate          *time.Time `json:"last_refill_date,omitempty"`
	ShowRefillOnCalendar    bool       `json:"show_refill_on_calendar"`
}

// Validate checks required fields and supply invariants before any mutation.
func (d *Data) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return apperrors.Validation("medication name is required")
	}
	if strings.TrimSpace(d.Dosage) == "" {
		return apperrors.Validation("dosage is required")
	}
	if !d.Frequency.Valid() {
		return apperrors.Validation(fmt.Sprintf("unsupported frequency: %q", d.Frequency))
	}
	for _, t := range d.Times {
		if _, _, err := parseClock(t); err != nil {
			return apperrors.Validation(fmt.Sprintf("invalid time of day: %q", t), err)
		}
	}
	if d.StartDate != nil && d.EndDate != nil && d.EndDate.Before(*d.StartDate) {
		return apperrors.Validation("end_date precedes start_date")
	}
	if d.PillsPerDose < 1 {
		return apperrors.Validation("pills_per_dose must be at least 1")
	}
	if d.RefillReminderThreshold < 1 {
		return apperrors.Validation("refill_reminder_threshold must be at least 1")
	}
	if d.CurrentSupply != nil && *d.CurrentSupply < 0 {
		return apperrors.Validation("current_supply cannot be negative")
	}
	return nil
}

// Normalize applies the defaults the engine expects: pills per dose and refill
// threshold fall back to 1 and 7, date-only bounds snap to day boundaries.
func (d *Data) Normalize() {
	if d.PillsPerDose == 0 {
		d.PillsPerDose = 1
	}
	if d.RefillReminderThreshold == 0 {
		d.RefillReminderThreshold = 7
	}
	if d.StartDate != nil {
		start := StartOfDay(*d.StartDate)
		d.StartDate = &start
	}
	if d.EndDate != nil && d.EndDate.Equal(StartOfDay(*d.EndDate)) {
		end := EndOfDay(*d.EndDate)
		d.EndDate = &end
	}
}

// HasSchedule reports whether the medication has scheduled dose instants at
// all. As-needed medications and empty time lists never become due.
func (d *Data) HasSchedule() bool {
	return d.Frequency != FrequencyAsNeeded && len(d.Times) > 0
}

// DoseRecord is one ledger entry, immutable once appended.
type DoseRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Taken     bool      `json:"taken"` // false = skipped
	Notes     string    `json:"notes,omitempty"`
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// parseClock parses an "HH:MM" time-of-day string.
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return hour, minute, nil
}
