package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gmsas95/medtrack-cli/internal/medication"
)

const doseEventDuration = 5 * time.Minute

// Event is one calendar entry: a logged dose or a projected refill.
type Event struct {
	UID          string    `json:"uid"`
	MedicationID string    `json:"medication_id"`
	Summary      string    `json:"summary"`
	Description  string    `json:"description"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// Range renders calendar events for all medications between start and end.
// Dose records produce short events at their logged time; supply-tracked
// medications with the calendar flag also get a one-hour refill reminder at
// 09:00 on the estimated refill date, projected from now rather than from
// the range start so a query over a past window does not rewrite history.
// Range bounds compare by day so events near midnight are not lost to
// timezone offsets.
func Range(docs []medication.Document, start, end, now time.Time) []Event {
	var events []Event
	startDay := medication.StartOfDay(start)
	endDay := medication.EndOfDay(end)

	for _, doc := range docs {
		history := medication.NewDoseHistory(doc.DoseHistory)

		for _, rec := range doc.DoseHistory {
			if rec.Timestamp.Before(startDay) || rec.Timestamp.After(endDay) {
				continue
			}
			events = append(events, Event{
				UID:          fmt.Sprintf("medtrack_%s_%s", doc.ID, rec.Timestamp.Format(time.RFC3339)),
				MedicationID: doc.ID,
				Summary:      doseSummary(doc.Data, rec),
				Description:  doseDescription(doc.Data, rec),
				Start:        rec.Timestamp,
				End:          rec.Timestamp.Add(doseEventDuration),
			})
		}

		if doc.Data.SupplyTrackingEnabled && doc.Data.ShowRefillOnCalendar {
			if refill, ok := medication.EstimatedRefillDate(doc.Data, history, now); ok {
				if !refill.Before(startDay) && !refill.After(endDay) {
					at := time.Date(refill.Year(), refill.Month(), refill.Day(), 9, 0, 0, 0, refill.Location())
					events = append(events, Event{
						UID:          fmt.Sprintf("medtrack_%s_refill_%s", doc.ID, refill.Format("2006-01-02")),
						MedicationID: doc.ID,
						Summary:      fmt.Sprintf("Refill Needed: %s", doc.Data.Name),
						Description:  refillDescription(doc.Data, history, now),
						Start:        at,
						End:          at.Add(time.Hour),
					})
				}
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].UID < events[j].UID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

func doseSummary(d medication.Data, rec medication.DoseRecord) string {
	status := "Taken"
	if !rec.Taken {
		status = "Skipped"
	}
	return fmt.Sprintf("%s: %s (%s)", status, d.Name, d.Dosage)
}

func doseDescription(d medication.Data, rec medication.DoseRecord) string {
	status := "Taken"
	if !rec.Taken {
		status = "Skipped"
	}
	parts := []string{
		"Medication: " + d.Name,
		"Dosage: " + d.Dosage,
		"Status: " + status,
		"Time: " + rec.Timestamp.Format("03:04 PM"),
	}
	if rec.Notes != "" {
		parts = append(parts, "Notes: "+rec.Notes)
	}
	if d.Frequency != "" {
		parts = append(parts, "Frequency: "+string(d.Frequency))
	}
	return strings.Join(parts, "\n")
}

func refillDescription(d medication.Data, h *medication.DoseHistory, now time.Time) string {
	parts := []string{"Medication: " + d.Name}
	if d.CurrentSupply != nil {
		parts = append(parts, fmt.Sprintf("Current Supply: %d units", *d.CurrentSupply))
	}
	if rate, ok := medication.DailyConsumption(d, h, now); ok {
		parts = append(parts, fmt.Sprintf("Daily Consumption: %.1f units/day", rate))
	}
	if days, ok := medication.DaysOfSupplyRemaining(d, h, now); ok {
		parts = append(parts, fmt.Sprintf("Days Remaining: %.1f", days))
	}
	if d.LastRefillDate != nil {
		parts = append(parts, "Last Refill: "+d.LastRefillDate.Format("2006-01-02"))
	}
	return strings.Join(parts, "\n")
}
