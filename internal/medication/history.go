package medication

import "time"

// DoseHistory is the append-only ledger of taken and skipped doses for one
// medication. Records are held in insertion order; the engine inserts in real
// time so insertion order and timestamp order coincide for live logging.
// Backdated inserts are accepted without reordering.
type DoseHistory struct {
	records []DoseRecord
}

// NewDoseHistory builds a ledger from previously persisted records.
func NewDoseHistory(records []DoseRecord) *DoseHistory {
	return &DoseHistory{records: records}
}

// Append adds a record to the ledger.
func (h *DoseHistory) Append(r DoseRecord) {
	h.records = append(h.records, r)
}

// Len returns the number of records.
func (h *DoseHistory) Len() int {
	return len(h.records)
}

// Records returns a copy of the ledger, oldest first.
func (h *DoseHistory) Records() []DoseRecord {
	out := make([]DoseRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Last returns the most recently appended record.
func (h *DoseHistory) Last() (DoseRecord, bool) {
	if len(h.records) == 0 {
		return DoseRecord{}, false
	}
	return h.records[len(h.records)-1], true
}

// LastTaken returns the timestamp of the most recent taken dose.
func (h *DoseHistory) LastTaken() (time.Time, bool) {
	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].Taken {
			return h.records[i].Timestamp, true
		}
	}
	return time.Time{}, false
}

// CountTakenInRange counts taken doses with timestamps in [start, end].
func (h *DoseHistory) CountTakenInRange(start, end time.Time) int {
	count := 0
	for _, r := range h.records {
		if r.Taken && !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			count++
		}
	}
	return count
}

// RecordsInRange returns records with timestamps in [start, end], in
// insertion order.
func (h *DoseHistory) RecordsInRange(start, end time.Time) []DoseRecord {
	var out []DoseRecord
	for _, r := range h.records {
		if !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			out = append(out, r)
		}
	}
	return out
}

// takenWithin reports whether any taken record falls in [start, end).
func (h *DoseHistory) takenWithin(start, end time.Time) bool {
	for i := len(h.records) - 1; i >= 0; i-- {
		r := h.records[i]
		if r.Taken && !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			return true
		}
	}
	return false
}

// recordBetween finds the latest record with timestamp in [start, end).
func (h *DoseHistory) recordBetween(start, end time.Time) (DoseRecord, bool) {
	for i := len(h.records) - 1; i >= 0; i-- {
		r := h.records[i]
		if !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			return r, true
		}
	}
	return DoseRecord{}, false
}

// MissedDoses counts scheduled due instants in (since, now] with no taken
// record inside the grace window following each instant. Adherence reporting
// consumes this; the engine itself only appends and queries.
func MissedDoses(d Data, h *DoseHistory, since, now time.Time, grace time.Duration) int {
	missed := 0
	for _, due := range DueInstantsBetween(d, since, now) {
		// Doses still inside their grace window are pending, not missed.
		if now.Before(due.Add(grace)) {
			continue
		}
		if !h.takenWithin(due, due.Add(grace)) {
			missed++
		}
	}
	return missed
}

// AdherenceRate is the percentage of scheduled doses in (since, now] that
// were taken within the grace window. Returns false when nothing was
// scheduled in the range.
func AdherenceRate(d Data, h *DoseHistory, since, now time.Time, grace time.Duration) (float64, bool) {
	scheduled := 0
	taken := 0
	for _, due := range DueInstantsBetween(d, since, now) {
		if now.Before(due.Add(grace)) {
			continue
		}
		scheduled++
		if h.takenWithin(due, due.Add(grace)) {
			taken++
		}
	}
	if scheduled == 0 {
		return 0, false
	}
	return float64(taken) / float64(scheduled) * 100, true
}
