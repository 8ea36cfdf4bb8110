package fetcher

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/aplaceforseniors/listings-cli/internal/model"
	"github.com/aplaceforseniors/listings-cli/internal/taxonomy"
)

const sampleCSV = `ID,Title,Slug,address,city,state,zip_code,website,senior_place_url,care_types,monthly_base_price,photos,amenities
101,Sunny Acres LLC,sunny-acres,123 N Main St,Phoenix,AZ,85001,https://sunnyacres.com,https://app.seniorplace.com/c/101,"Assisted Living Home, Memory Care",3500,a.jpg|b.jpg,pool|garden
102,Villa Feliz,villa-feliz,500 E Thomas Rd,Phoenix,AZ,85014,,,Independent Living,,,
`

func TestReadListings_ParsesRows(t *testing.T) {
	listings, err := ReadListings(context.Background(), strings.NewReader(sampleCSV), model.SourceSeniorPlace)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	l := listings[0]
	assert.Equal(t, "101", l.ID)
	assert.Equal(t, "Sunny Acres LLC", l.Title)
	assert.Equal(t, "sunny-acres", l.Slug)
	assert.Equal(t, "123 N Main St", l.Address)
	assert.Equal(t, "Phoenix", l.City)
	assert.Equal(t, "AZ", l.State)
	assert.Equal(t, "85001", l.ZipCode)
	assert.Equal(t, "https://app.seniorplace.com/c/101", l.SourceURL)
	assert.Equal(t, model.SourceSeniorPlace, l.Source)
	assert.Equal(t, []string{"Assisted Living Home, Memory Care"}, l.RawCareTypes)
	assert.Equal(t, "3500", l.Price("monthly_base_price"))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, l.Photos)
	assert.Equal(t, []string{"pool", "garden"}, l.Amenities)

	assert.Equal(t, "102", listings[1].ID)
	assert.Empty(t, listings[1].Photos)
}

func TestReadListings_EmptyFile(t *testing.T) {
	listings, err := ReadListings(context.Background(), strings.NewReader("ID,Title\n"), model.SourceSeniorly)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestReadListings_SkipsMalformedRows(t *testing.T) {
	csv := "ID,Title,address\n" +
		"101,Sunny Acres,123 N Main St\n" +
		"102,too-few-fields\n" +
		"103,Villa Feliz,500 E Thomas Rd\n"

	listings, err := ReadListings(context.Background(), strings.NewReader(csv), model.SourceSeniorPlace)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "101", listings[0].ID)
	assert.Equal(t, "103", listings[1].ID)
}

func TestWriteListings_SerializesTypeColumn(t *testing.T) {
	l := &model.Listing{
		ID:    "101",
		Title: "Sunny Acres",
		CanonicalTypes: []model.CanonicalType{
			model.TypeAssistedLivingHome, model.TypeMemoryCare,
		},
		Photos: []string{"a.jpg", "b.jpg"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteListings(&buf, []*model.Listing{l}, taxonomy.Default()))

	out := buf.String()
	assert.Contains(t, out, "a:2:{i:0;i:162;i:1;i:3;}")
	assert.Contains(t, out, "a.jpg|b.jpg")
}

func TestWriteListings_UncategorizedSentinel(t *testing.T) {
	l := &model.Listing{ID: "101", Title: "Sunny Acres"}

	var buf bytes.Buffer
	require.NoError(t, WriteListings(&buf, []*model.Listing{l}, taxonomy.Default()))

	assert.Contains(t, buf.String(), "a:1:{i:0;i:1;}")
}

func TestReadListings_RoundTrip(t *testing.T) {
	l := &model.Listing{
		ID: "101", Title: "Sunny Acres", Address: "123 N Main St",
		City: "Phoenix", State: "AZ", ZipCode: "85001",
		Source:         model.SourceSeniorPlace,
		CanonicalTypes: []model.CanonicalType{model.TypeMemoryCare},
	}
	l.SetPrice("memory_care_price_low", "4200")

	var buf bytes.Buffer
	require.NoError(t, WriteListings(&buf, []*model.Listing{l}, taxonomy.Default()))

	back, err := ReadListings(context.Background(), &buf, model.SourceSeniorPlace)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "123 N Main St", back[0].Address)
	assert.Equal(t, "4200", back[0].Price("memory_care_price_low"))
	// The serialized type column comes back as a raw care type for re-decode.
	assert.Equal(t, []string{"a:1:{i:0;i:3;}"}, back[0].RawCareTypes)
}

func TestReadListings_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadListings(ctx, strings.NewReader(sampleCSV), model.SourceSeniorPlace)
	assert.Error(t, err)
}

func TestStreamCSV_SendsHeaderFirst(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(sampleCSV))

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)

	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "101", rows[1][0])
}

func TestStreamCSV_TrimsFields(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("ID,Title\n101,  Sunny Acres  \n"))

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)

	require.Len(t, rows, 2)
	assert.Equal(t, "Sunny Acres", rows[1][1])
}

func TestStreamCSV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader(sampleCSV))
	for range rowCh {
	}
	assert.Error(t, <-errCh)
}

func TestReadListingsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Listings")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Title", "address", "city", "state"} {
		header.AddCell().SetString(h)
	}
	row := sheet.AddRow()
	for _, v := range []string{"101", "Sunny Acres", "123 N Main St", "Phoenix", "AZ"} {
		row.AddCell().SetString(v)
	}
	// Ragged row: trailing cells omitted.
	short := sheet.AddRow()
	for _, v := range []string{"102", "Villa Feliz"} {
		short.AddCell().SetString(v)
	}
	require.NoError(t, f.Save(path))

	listings, err := ReadListingsXLSX(path, model.SourceSeniorly)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Sunny Acres", listings[0].Title)
	assert.Equal(t, "Phoenix", listings[0].City)
	assert.Equal(t, model.SourceSeniorly, listings[0].Source)
	assert.Equal(t, "Villa Feliz", listings[1].Title)
	assert.Empty(t, listings[1].City)
}

func TestReadListingsXLSX_MissingFile(t *testing.T) {
	_, err := ReadListingsXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), model.SourceSeniorly)
	assert.Error(t, err)
}
