package store

import (
	"encoding/json"
	"time"

	"github.com/gmsas95/medtrack-cli/internal/medication"
)

// MedicationRow is the SQLite row for one medication. Prescription data and
// the dose ledger are serialized JSON; the queryable columns exist for
// inspection and reporting, the engine reads the JSON back whole.
type MedicationRow struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"index" json:"name"`
	Frequency   string     `json:"frequency"`
	Status      string     `json:"status"`
	NextDue     *time.Time `json:"next_due"`
	LowSupply   bool       `json:"low_supply"`
	DataJSON    string     `gorm:"type:text" json:"-"`
	HistoryJSON string     `gorm:"type:text" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func rowFromDocument(doc medication.Document) (MedicationRow, error) {
	dataJSON, err := json.Marshal(doc.Data)
	if err != nil {
		return MedicationRow{}, err
	}
	historyJSON, err := json.Marshal(doc.DoseHistory)
	if err != nil {
		return MedicationRow{}, err
	}
	return MedicationRow{
		ID:          doc.ID,
		Name:        doc.Data.Name,
		Frequency:   string(doc.Data.Frequency),
		Status:      string(doc.Status),
		NextDue:     doc.NextDue,
		LowSupply:   doc.LowSupply,
		DataJSON:    string(dataJSON),
		HistoryJSON: string(historyJSON),
	}, nil
}

func (r MedicationRow) document() (medication.Document, error) {
	doc := medication.Document{
		ID:        r.ID,
		Status:    medication.Status(r.Status),
		NextDue:   r.NextDue,
		LowSupply: r.LowSupply,
	}
	if err := json.Unmarshal([]byte(r.DataJSON), &doc.Data); err != nil {
		return medication.Document{}, err
	}
	if r.HistoryJSON != "" {
		if err := json.Unmarshal([]byte(r.HistoryJSON), &doc.DoseHistory); err != nil {
			return medication.Document{}, err
		}
	}
	return doc, nil
}
