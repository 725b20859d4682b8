package medication

import (
	"sort"
	"time"
)

// maxScanDays bounds the calendar walk when searching for due instants. Two
// years covers any gap a monthly schedule with a bounded window can produce.
const maxScanDays = 2 * 366

// NextDue computes the earliest scheduled dose instant at or after now.
// The second return is false when the medication has no schedule (as-needed
// or empty time list) or the active window has closed.
func NextDue(d Data, now time.Time) (time.Time, bool) {
	if !d.HasSchedule() {
		return time.Time{}, false
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return time.Time{}, false
	}

	day := StartOfDay(now)
	if d.StartDate != nil && d.StartDate.After(now) {
		day = StartOfDay(*d.StartDate)
	}

	anchor := scheduleAnchor(d, now)
	for i := 0; i < maxScanDays; i++ {
		if d.EndDate != nil && day.After(*d.EndDate) {
			break
		}
		if matchesPattern(d.Frequency, anchor, day) {
			for _, instant := range doseInstantsOn(d, day) {
				if instant.Before(now) {
					continue
				}
				if withinWindow(d, instant) {
					return instant, true
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

// PrevDue computes the most recent scheduled dose instant at or before now.
func PrevDue(d Data, now time.Time) (time.Time, bool) {
	if !d.HasSchedule() {
		return time.Time{}, false
	}
	if d.StartDate != nil && now.Before(*d.StartDate) {
		return time.Time{}, false
	}

	day := StartOfDay(now)
	if d.EndDate != nil && d.EndDate.Before(now) {
		day = StartOfDay(*d.EndDate)
	}

	anchor := scheduleAnchor(d, now)
	for i := 0; i < maxScanDays; i++ {
		if d.StartDate != nil && day.Before(StartOfDay(*d.StartDate)) {
			break
		}
		if matchesPattern(d.Frequency, anchor, day) {
			instants := doseInstantsOn(d, day)
			for j := len(instants) - 1; j >= 0; j-- {
				instant := instants[j]
				if instant.After(now) {
					continue
				}
				if withinWindow(d, instant) {
					return instant, true
				}
			}
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, false
}

// DueInstantsBetween lists scheduled dose instants in (from, to], oldest
// first. Used for missed-dose and adherence queries over the ledger.
func DueInstantsBetween(d Data, from, to time.Time) []time.Time {
	if !d.HasSchedule() || !from.Before(to) {
		return nil
	}

	var out []time.Time
	day := StartOfDay(from)
	anchor := scheduleAnchor(d, to)
	for i := 0; i < maxScanDays && !day.After(to); i++ {
		if matchesPattern(d.Frequency, anchor, day) {
			for _, instant := range doseInstantsOn(d, day) {
				if instant.After(from) && !instant.After(to) && withinWindow(d, instant) {
					out = append(out, instant)
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// scheduleAnchor is the date the weekly/monthly recurrence counts from:
// the start date when set, otherwise the evaluation time.
func scheduleAnchor(d Data, now time.Time) time.Time {
	if d.StartDate != nil {
		return StartOfDay(*d.StartDate)
	}
	return StartOfDay(now)
}

// matchesPattern reports whether day carries scheduled doses for the
// frequency. The switch is total over the supported frequencies; as_needed
// is filtered out before this point.
func matchesPattern(f Frequency, anchor, day time.Time) bool {
	switch f {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return daysBetween(anchor, day)%7 == 0
	case FrequencyMonthly:
		return day.Day() == clampDayOfMonth(anchor.Day(), day.Year(), day.Month())
	default:
		return false
	}
}

// doseInstantsOn combines the day with each configured time of day, sorted
// ascending. Unparseable entries were rejected by Validate and are skipped.
func doseInstantsOn(d Data, day time.Time) []time.Time {
	instants := make([]time.Time, 0, len(d.Times))
	for _, t := range d.Times {
		hour, minute, err := parseClock(t)
		if err != nil {
			continue
		}
		instants = append(instants, time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()))
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })
	return instants
}

func withinWindow(d Data, instant time.Time) bool {
	if d.StartDate != nil && instant.Before(*d.StartDate) {
		return false
	}
	if d.EndDate != nil && instant.After(*d.EndDate) {
		return false
	}
	return true
}

// daysBetween counts civil days from a to b, both at midnight. Rounding
// absorbs DST transitions where a day is 23 or 25 hours.
func daysBetween(a, b time.Time) int {
	hours := b.Sub(a).Hours()
	if hours >= 0 {
		return int(hours/24 + 0.5)
	}
	return -int(-hours/24 + 0.5)
}

// clampDayOfMonth clamps a calendar day to the last valid day of the month,
// so a schedule anchored on the 31st fires on Feb 28/29.
func clampDayOfMonth(day int, year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}
