// Package review writes the human-review artifacts: the flagged match
// groups that must not be auto-merged, and the unmapped care-type labels
// that need a taxonomy decision.
package review

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// reviewColumns defines the ordered review queue output columns.
var reviewColumns = []string{
	"Group ID",
	"Reason",
	"Similarity",
	"Listing ID",
	"Source",
	"Title",
	"Address",
	"City",
	"State",
	"Zip Code",
	"Source URL",
}

// unmappedColumns defines the unmapped label report columns.
var unmappedColumns = []string{
	"Label",
	"Listing ID",
	"Title",
	"Source",
}

// WriteReviewCSV writes flagged match groups as a review queue CSV, one row
// per listing, grouped rows adjacent.
func WriteReviewCSV(path string, groups []*model.MatchGroup) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "review: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(reviewColumns); err != nil {
		return eris.Wrap(err, "review: write header")
	}
	for _, g := range groups {
		for _, l := range g.Records {
			if err := w.Write(buildReviewRow(g, l)); err != nil {
				return eris.Wrap(err, "review: write row")
			}
		}
	}
	return nil
}

func buildReviewRow(g *model.MatchGroup, l *model.Listing) []string {
	return []string{
		g.ID,
		string(g.Reason),
		formatSimilarity(g.Similarity),
		l.ID,
		string(l.Source),
		l.Title,
		l.Address,
		l.City,
		l.State,
		l.ZipCode,
		l.SourceURL,
	}
}

// WriteUnmappedCSV writes the unmapped care-type labels report.
func WriteUnmappedCSV(path string, labels []model.UnmappedLabel) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "review: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(unmappedColumns); err != nil {
		return eris.Wrap(err, "review: write header")
	}
	for _, u := range labels {
		row := []string{u.Label, u.ListingID, u.Title, string(u.Source)}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "review: write row")
		}
	}
	return nil
}

// WriteWorkbook writes both reports as sheets of a single XLSX workbook for
// operators who annotate decisions in place.
func WriteWorkbook(path string, groups []*model.MatchGroup, labels []model.UnmappedLabel) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Review Queue")
	if err != nil {
		return eris.Wrap(err, "review: add sheet")
	}
	addRow(sheet, reviewColumns)
	for _, g := range groups {
		for _, l := range g.Records {
			addRow(sheet, buildReviewRow(g, l))
		}
	}

	sheet, err = f.AddSheet("Unmapped Labels")
	if err != nil {
		return eris.Wrap(err, "review: add sheet")
	}
	addRow(sheet, unmappedColumns)
	for _, u := range labels {
		addRow(sheet, []string{u.Label, u.ListingID, u.Title, string(u.Source)})
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "review: save workbook")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// formatSimilarity renders the score with two decimals, empty when the
// reason carries no score.
func formatSimilarity(sim float64) string {
	if sim <= 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", sim), "0"), ".")
}
