package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/model"
	"github.com/aplaceforseniors/listings-cli/internal/taxonomy"
)

// ReadListings streams a listing export CSV into domain records. Unknown
// columns are ignored so that hand-edited exports with extra columns still
// load, and malformed rows are skipped with a warning instead of aborting
// the whole export.
func ReadListings(ctx context.Context, r io.Reader, source model.Source) ([]*model.Listing, error) {
	// Cancel on every return path so the streaming goroutine never stays
	// blocked on its row channel after an early decode error.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows, errs := StreamCSV(ctx, r)
	rr := &rowReader{rows: rows}

	dec, err := csvutil.NewDecoder(rr)
	if err != nil {
		if err == io.EOF {
			return nil, <-errs
		}
		return nil, eris.Wrap(err, "fetcher: read csv header")
	}
	dec.DisallowMissingColumns = false

	var (
		out     []*model.Listing
		skipped int
	)
	for {
		var row ListingRow
		err := dec.Decode(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			var typeErr *csvutil.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				skipped++
				zap.L().Warn("skipping malformed csv row", zap.Error(err))
				continue
			}
			return nil, eris.Wrap(err, "fetcher: decode csv row")
		}
		out = append(out, row.ToListing(source))
	}
	if err := <-errs; err != nil {
		return nil, err
	}

	skipped += rr.skipped
	if skipped > 0 {
		zap.L().Warn("export contained malformed rows", zap.Int("skipped", skipped))
	}
	return out, nil
}

// ReadListingsFile opens and decodes a listing export CSV.
func ReadListingsFile(ctx context.Context, path string, source model.Source) ([]*model.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	defer f.Close()
	return ReadListings(ctx, f, source)
}

// WriteListings encodes listings as the flat import CSV, with canonical
// types serialized into the type column.
func WriteListings(w io.Writer, listings []*model.Listing, mapping *taxonomy.Mapping) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	for _, l := range listings {
		row := FromListing(l, mapping)
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "fetcher: encode csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "fetcher: flush csv")
	}
	return nil
}

// WriteListingsFile creates path and writes the listing import CSV to it.
func WriteListingsFile(path string, listings []*model.Listing, mapping *taxonomy.Mapping) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer f.Close()
	return WriteListings(f, listings, mapping)
}
