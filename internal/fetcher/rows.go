package fetcher

import (
	"strings"

	"github.com/aplaceforseniors/listings-cli/internal/model"
	"github.com/aplaceforseniors/listings-cli/internal/taxonomy"
)

// listSep joins multi-valued columns (photos, amenities, care types) in the
// flat CSV exports.
const listSep = "|"

// ListingRow is the flat CSV shape of a listing, matching the column names
// of the Senior Place and Seniorly exports. Multi-valued fields are
// pipe-joined; the type column carries the serialized term-ID array on
// export and either that form or raw labels on import.
type ListingRow struct {
	ID            string `csv:"ID"`
	Title         string `csv:"Title"`
	Slug          string `csv:"Slug"`
	Address       string `csv:"address"`
	City          string `csv:"city"`
	State         string `csv:"state"`
	ZipCode       string `csv:"zip_code"`
	Website       string `csv:"website"`
	SourceURL     string `csv:"senior_place_url"`
	CareTypes     string `csv:"care_types"`
	Type          string `csv:"type"`
	MonthlyBase   string `csv:"monthly_base_price"`
	PriceHighEnd  string `csv:"price_high_end"`
	SecondPerson  string `csv:"second_person_fee"`
	AssistedLow   string `csv:"assisted_living_price_low"`
	AssistedHigh  string `csv:"assisted_living_price_high"`
	IndepLow      string `csv:"independent_living_price_low"`
	IndepHigh     string `csv:"independent_living_price_high"`
	MemoryLow     string `csv:"memory_care_price_low"`
	MemoryHigh    string `csv:"memory_care_price_high"`
	Photos        string `csv:"photos"`
	FeaturedImage string `csv:"featured_image"`
	Amenities     string `csv:"amenities"`
}

// priceColumns pairs the CSV price columns with the row fields, in
// model.PriceFieldNames order.
func (r *ListingRow) priceFields() []*string {
	return []*string{
		&r.MonthlyBase, &r.PriceHighEnd, &r.SecondPerson,
		&r.AssistedLow, &r.AssistedHigh,
		&r.IndepLow, &r.IndepHigh,
		&r.MemoryLow, &r.MemoryHigh,
	}
}

// ToListing converts a row to the domain model, tagging it with the source
// the file came from.
func (r *ListingRow) ToListing(source model.Source) *model.Listing {
	l := &model.Listing{
		ID:            strings.TrimSpace(r.ID),
		Slug:          strings.TrimSpace(r.Slug),
		Title:         strings.TrimSpace(r.Title),
		Address:       strings.TrimSpace(r.Address),
		City:          strings.TrimSpace(r.City),
		State:         strings.TrimSpace(r.State),
		ZipCode:       strings.TrimSpace(r.ZipCode),
		Website:       strings.TrimSpace(r.Website),
		SourceURL:     strings.TrimSpace(r.SourceURL),
		Source:        source,
		FeaturedImage: strings.TrimSpace(r.FeaturedImage),
		Photos:        splitList(r.Photos),
		Amenities:     splitList(r.Amenities),
	}
	if ct := strings.TrimSpace(r.CareTypes); ct != "" {
		l.RawCareTypes = append(l.RawCareTypes, ct)
	}
	// Re-imported exports carry the serialized form in the type column.
	if ty := strings.TrimSpace(r.Type); ty != "" {
		l.RawCareTypes = append(l.RawCareTypes, ty)
	}
	for i, field := range model.PriceFieldNames {
		if v := strings.TrimSpace(*r.priceFields()[i]); v != "" {
			l.SetPrice(field, v)
		}
	}
	return l
}

// FromListing converts a domain listing to its CSV row. The type column is
// the serialized term-ID array, never raw labels.
func FromListing(l *model.Listing, mapping *taxonomy.Mapping) ListingRow {
	r := ListingRow{
		ID:            l.ID,
		Title:         l.Title,
		Slug:          l.Slug,
		Address:       l.Address,
		City:          l.City,
		State:         l.State,
		ZipCode:       l.ZipCode,
		Website:       l.Website,
		SourceURL:     l.SourceURL,
		CareTypes:     strings.Join(l.RawCareTypes, ", "),
		Type:          taxonomy.EncodeTypes(l.CanonicalTypes, mapping),
		Photos:        strings.Join(l.Photos, listSep),
		FeaturedImage: l.FeaturedImage,
		Amenities:     strings.Join(l.Amenities, listSep),
	}
	for i, field := range model.PriceFieldNames {
		*r.priceFields()[i] = l.Price(field)
	}
	return r
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, listSep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
