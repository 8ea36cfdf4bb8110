// Package fetcher reads and writes listing exports in CSV and XLSX form.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// StreamCSV reads a listing export and sends rows to a channel, header row
// first. Exports come from spreadsheet tools and scrapers, so quoting is
// lax, field counts may vary per row, and cells are trimmed. Caller must
// consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // allow variable fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// rowReader adapts the StreamCSV channel to the record interface csvutil
// decodes from. Rows whose field count does not match the header are
// dropped and counted rather than aborting the export.
type rowReader struct {
	rows    <-chan []string
	width   int
	skipped int
}

func (r *rowReader) Read() ([]string, error) {
	for {
		record, ok := <-r.rows
		if !ok {
			return nil, io.EOF
		}
		if r.width == 0 {
			// Header row fixes the expected width.
			r.width = len(record)
			return record, nil
		}
		if len(record) != r.width {
			r.skipped++
			continue
		}
		return record, nil
	}
}
