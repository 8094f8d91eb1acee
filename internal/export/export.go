// Package export writes the analytics archive in the spreadsheet column layout.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadledger/internal/model"
)

// Row is one archive line using the master sheet's column names.
type Row struct {
	Sno          string `csv:"Sno"`
	Company      string `csv:"Company"`
	Number       string `csv:"Number"`
	Ratings      string `csv:"Ratings"`
	Website      string `csv:"Website"`
	Type         string `csv:"Type"`
	Availability string `csv:"Availability"`
	Summary      string `csv:"Summary"`
	Username     string `csv:"Username"`
	DateTime     string `csv:"DateTime"`
}

// RowFromLead maps a lead onto its export row.
func RowFromLead(l model.Lead) Row {
	dt := l.DateTime
	if dt == "" && !l.LastUpdatedAt.IsZero() {
		dt = model.FormatTimestamp(l.LastUpdatedAt)
	}
	return Row{
		Sno:          l.SequenceNumber,
		Company:      l.Company,
		Number:       l.Phone,
		Ratings:      l.Rating,
		Website:      l.Website,
		Type:         l.Category,
		Availability: string(l.Status),
		Summary:      l.Summary,
		Username:     l.OwnerUsername,
		DateTime:     dt,
	}
}

// WriteArchiveCSV writes leads as CSV with a header row. An empty archive
// still produces the header.
func WriteArchiveCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(leads) == 0 {
		if err := enc.EncodeHeader(Row{}); err != nil {
			return eris.Wrap(err, "export: encode header")
		}
	}
	for _, l := range leads {
		if err := enc.Encode(RowFromLead(l)); err != nil {
			return eris.Wrapf(err, "export: encode lead %s", l.ID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// FileName is the suggested download name for an export taken at t.
func FileName(t time.Time) string {
	return "leadledger_export_" + t.UTC().Format(time.DateOnly) + ".csv"
}
