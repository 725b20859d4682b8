package medication

// Notification decisions are pure comparisons over before/after snapshots;
// delivery belongs to the host.

// StatusChanged reports whether a state-changed notification must be emitted.
func StatusChanged(before, after Status) bool {
	return before != after
}

// LowSupplyEdge reports whether a low-supply notification must be emitted.
// Edge-triggered: fires on the false→true crossing only, not on every
// evaluation while supply stays low.
func LowSupplyEdge(before, after bool) bool {
	return !before && after
}

// StatusTransition records one status change observed during a sweep.
type StatusTransition struct {
	MedicationID string `json:"medication_id"`
	Name         string `json:"name"`
	From         Status `json:"from"`
	To           Status `json:"to"`
}

// SupplyAlert records one low-supply crossing.
type SupplyAlert struct {
	MedicationID        string   `json:"medication_id"`
	Name                string   `json:"name"`
	CurrentSupply       *int     `json:"current_supply,omitempty"`
	PillsPerDose        int      `json:"pills_per_dose"`
	DaysRemaining       *float64 `json:"days_remaining,omitempty"`
	ThresholdDays       int      `json:"refill_threshold_days"`
	EstimatedRefillDate *string  `json:"estimated_refill_date,omitempty"`
}
