// models/meta.go
package models

import "time"

// LoadRecord is one row of the optional load log: which staged file was
// loaded into which destination, and with what provenance stamps.
type LoadRecord struct {
	FileName        string    `db:"FILE_NAME"`
	Kind            string    `db:"DATASET_KIND"`
	Destination     string    `db:"DESTINATION"`
	RowCount        int64     `db:"ROW_COUNT"`
	DateSnapshot    *string   `db:"DATE_SNAPSHOT"`    // nil when the notes sheet had no usable date
	DiagnosisWindow *string   `db:"DATE_DIAGNOSIS_WINDOW"`
	UploadedAt      time.Time `db:"DATE_UPLOAD"`
}
