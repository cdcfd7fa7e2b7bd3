package importer

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Stored is a source item that ended up in the store, either as a new
// record or as an already existing one.
type Stored struct {
	Source      string `json:"source"`
	InvoiceID   uint   `json:"invoiceId"`
	Fingerprint string `json:"fingerprint"`
	Created     bool   `json:"created"`
}

type BatchReport struct {
	BatchID           uuid.UUID     `json:"batchId"`
	Started           time.Time     `json:"started"`
	Finished          time.Time     `json:"finished"`
	Imported          int           `json:"imported"`
	SkippedDuplicates int           `json:"skippedDuplicates"`
	Errors            []ImportError `json:"errors"`
	Stored            []Stored      `json:"stored"`
}

func newReport(started time.Time) *BatchReport {
	return &BatchReport{
		BatchID: uuid.New(),
		Started: started,
		Errors:  []ImportError{},
		Stored:  []Stored{},
	}
}

func (r *BatchReport) String() string {
	return fmt.Sprintf("batch %s: %d imported, %d duplicates, %d errors",
		r.BatchID, r.Imported, r.SkippedDuplicates, len(r.Errors))
}

// WriteErrorLog writes one line per error, in report order, preceded by a
// header naming the batch. Nothing is written for a batch without errors.
func (r *BatchReport) WriteErrorLog(w io.Writer) error {
	if len(r.Errors) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "# batch %s started %s\n", r.BatchID, r.Started.Format(time.RFC3339))
	if err != nil {
		return err
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", e.Source, e.Kind, e.Message); err != nil {
			return err
		}
	}
	return nil
}
