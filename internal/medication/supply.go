package medication

import (
	"time"

	apperrors "github.com/gmsas95/medtrack-cli/internal/errors"
)

// asNeededLookback is the trailing window used to estimate consumption for
// as-needed medications from the ledger.
const asNeededLookback = 30 * 24 * time.Hour

// DecrementSupply reduces the supply by one dose, clamped at zero. Returns
// false (a reported no-op) when tracking is disabled or no count is set.
func DecrementSupply(d *Data) bool {
	if !d.SupplyTrackingEnabled || d.CurrentSupply == nil {
		return false
	}
	remaining := *d.CurrentSupply - d.PillsPerDose
	if remaining < 0 {
		remaining = 0
	}
	d.CurrentSupply = &remaining
	return true
}

// Refill adds amount to the supply and records the refill date. Fails with a
// precondition error when supply tracking is disabled.
func Refill(d *Data, amount int, at time.Time) error {
	if !d.SupplyTrackingEnabled {
		return apperrors.ErrSupplyDisabled
	}
	if amount <= 0 {
		return apperrors.Validation("refill amount must be positive")
	}
	current := 0
	if d.CurrentSupply != nil {
		current = *d.CurrentSupply
	}
	current += amount
	d.CurrentSupply = &current
	d.LastRefillDate = &at
	return nil
}

// SetSupply overrides the supply count absolutely. Same enablement
// precondition as Refill.
func SetSupply(d *Data, value int) error {
	if !d.SupplyTrackingEnabled {
		return apperrors.ErrSupplyDisabled
	}
	if value < 0 {
		return apperrors.Validation("current_supply cannot be negative")
	}
	d.CurrentSupply = &value
	return nil
}

// DailyConsumption estimates pills consumed per day. Scheduled frequencies
// derive it from the time list; as-needed medications fall back to the
// historical dose rate over the trailing month, with false when there is not
// enough history to estimate.
func DailyConsumption(d Data, h *DoseHistory, now time.Time) (float64, bool) {
	perDose := float64(d.PillsPerDose)

	switch d.Frequency {
	case FrequencyDaily:
		doses := float64(len(d.Times))
		if doses == 0 {
			doses = 1
		}
		return perDose * doses, true
	case FrequencyWeekly:
		if len(d.Times) == 0 {
			return 0, false
		}
		return perDose * float64(len(d.Times)) / 7, true
	case FrequencyMonthly:
		if len(d.Times) == 0 {
			return 0, false
		}
		return perDose * float64(len(d.Times)) / 30, true
	case FrequencyAsNeeded:
		since := now.Add(-asNeededLookback)
		taken := h.CountTakenInRange(since, now)
		if taken == 0 {
			return 0, false
		}
		first, ok := firstTakenSince(h, since)
		if !ok {
			return 0, false
		}
		days := now.Sub(first).Hours() / 24
		if days < 1 {
			days = 1
		}
		return perDose * float64(taken) / days, true
	default:
		return 0, false
	}
}

// DaysOfSupplyRemaining divides the current supply by the estimated daily
// consumption.
func DaysOfSupplyRemaining(d Data, h *DoseHistory, now time.Time) (float64, bool) {
	if !d.SupplyTrackingEnabled || d.CurrentSupply == nil {
		return 0, false
	}
	rate, ok := DailyConsumption(d, h, now)
	if !ok || rate <= 0 {
		return 0, false
	}
	return float64(*d.CurrentSupply) / rate, true
}

// EstimatedRefillDate projects the date the supply runs out, rounded down to
// whole days from today.
func EstimatedRefillDate(d Data, h *DoseHistory, now time.Time) (time.Time, bool) {
	days, ok := DaysOfSupplyRemaining(d, h, now)
	if !ok {
		return time.Time{}, false
	}
	return StartOfDay(now).AddDate(0, 0, int(days)), true
}

// IsLowSupply reports whether the remaining days of supply have fallen to the
// refill reminder threshold or below.
func IsLowSupply(d Data, h *DoseHistory, now time.Time) bool {
	days, ok := DaysOfSupplyRemaining(d, h, now)
	if !ok {
		return false
	}
	return days <= float64(d.RefillReminderThreshold)
}

func firstTakenSince(h *DoseHistory, since time.Time) (time.Time, bool) {
	for _, r := range h.records {
		if r.Taken && !r.Timestamp.Before(since) {
			return r.Timestamp, true
		}
	}
	return time.Time{}, false
}
