package fetcher

import (
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// ReadListingsXLSX decodes a listing export workbook. The first sheet must
// carry the same column headers as the CSV exports; operators commonly hand
// back review workbooks in this shape.
func ReadListingsXLSX(path string, source model.Source) ([]*model.Listing, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("fetcher: xlsx %s has no sheets", path)
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Trailing empty cells are dropped by the xlsx reader; pad rows back to
	// the header width so column mapping stays aligned.
	width := len(records[0])
	for i, rec := range records {
		for len(rec) < width {
			rec = append(rec, "")
		}
		records[i] = rec[:width]
	}

	dec, err := csvutil.NewDecoder(&sliceReader{records: records})
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read xlsx header")
	}

	var out []*model.Listing
	for {
		var row ListingRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "fetcher: decode xlsx row")
		}
		out = append(out, row.ToListing(source))
	}
	return out, nil
}

// sliceReader feeds pre-read rows to the csvutil decoder so the xlsx and csv
// paths share one column mapping.
type sliceReader struct {
	records [][]string
	pos     int
}

func (s *sliceReader) Read() ([]string, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}
