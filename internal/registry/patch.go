package registry

import (
	"time"

	"github.com/gmsas95/medtrack-cli/internal/medication"
)

// Patch is a partial medication update. Nil fields are left untouched, so
// API clients can send only what changed. Times replaces the whole list when
// present; there is no per-element merge.
type Patch struct {
	Name      *string    `json:"name,omitempty"`
	Dosage    *string    `json:"dosage,omitempty"`
	Frequency *string    `json:"frequency,omitempty"`
	Times     []string   `json:"times,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Notes     *string    `json:"notes,omitempty"`

	SupplyTrackingEnabled   *bool `json:"supply_tracking_enabled,omitempty"`
	CurrentSupply           *int  `json:"current_supply,omitempty"`
	PillsPerDose            *int  `json:"pills_per_dose,omitempty"`
	RefillReminderThreshold *int  `json:"refill_reminder_threshold,omitempty"`
	ShowRefillOnCalendar    *bool `json:"show_refill_on_calendar,omitempty"`
}

// apply merges the patch into data and reports whether any field that feeds
// the schedule calculation changed.
func (p Patch) apply(d *medication.Data) bool {
	scheduleChanged := false

	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Dosage != nil {
		d.Dosage = *p.Dosage
	}
	if p.Frequency != nil {
		d.Frequency = medication.Frequency(*p.Frequency)
		scheduleChanged = true
	}
	if p.Times != nil {
		d.Times = p.Times
		scheduleChanged = true
	}
	if p.StartDate != nil {
		d.StartDate = p.StartDate
		scheduleChanged = true
	}
	if p.EndDate != nil {
		d.EndDate = p.EndDate
		scheduleChanged = true
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	if p.SupplyTrackingEnabled != nil {
		d.SupplyTrackingEnabled = *p.SupplyTrackingEnabled
	}
	if p.CurrentSupply != nil {
		d.CurrentSupply = p.CurrentSupply
	}
	if p.PillsPerDose != nil {
		d.PillsPerDose = *p.PillsPerDose
	}
	if p.RefillReminderThreshold != nil {
		d.RefillReminderThreshold = *p.RefillReminderThreshold
	}
	if p.ShowRefillOnCalendar != nil {
		d.ShowRefillOnCalendar = *p.ShowRefillOnCalendar
	}
	return scheduleChanged
}
