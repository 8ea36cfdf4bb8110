package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func group(records ...*model.Listing) *model.MatchGroup {
	return &model.MatchGroup{
		ID:         "g1",
		Records:    records,
		Reason:     model.MatchExactTitleAddress,
		Confidence: model.ConfidenceCertain,
	}
}

func TestMerge_SeniorPlaceWinsPrimary(t *testing.T) {
	sly := &model.Listing{ID: "a", Title: "Sunny Acres", Source: model.SourceSeniorly}
	sp := &model.Listing{ID: "b", Title: "Sunny Acres LLC", Source: model.SourceSeniorPlace}

	g := group(sly, sp)
	primary, audit := New().Merge(g)

	assert.Equal(t, "b", primary.ID)
	assert.Equal(t, "b", g.PrimaryID)
	assert.Equal(t, "Sunny Acres LLC", primary.Title)
	assert.Equal(t, []string{"a"}, audit.AbsorbedIDs)
}

func TestMerge_NeverOverwritesPopulatedField(t *testing.T) {
	sp := &model.Listing{
		ID: "a", Title: "Villa Feliz", Website: "https://villafeliz.com",
		Source: model.SourceSeniorPlace,
	}
	sly := &model.Listing{
		ID: "b", Title: "Villa Feliz Senior Living", Website: "https://other.example",
		Source: model.SourceSeniorly,
	}

	primary, _ := New().Merge(group(sp, sly))

	assert.Equal(t, "Villa Feliz", primary.Title)
	assert.Equal(t, "https://villafeliz.com", primary.Website)
}

func TestMerge_BackfillsEmptyFields(t *testing.T) {
	sp := &model.Listing{ID: "a", Title: "Villa Feliz", Source: model.SourceSeniorPlace}
	sly := &model.Listing{
		ID: "b", Title: "Villa Feliz", Address: "1200 E Camelback Rd",
		City: "Phoenix", State: "AZ", ZipCode: "85014",
		Website: "https://villafeliz.com", Amenities: []string{"pool"},
		Source: model.SourceSeniorly,
	}
	sly.SetPrice("monthly_base_price", "3500")

	primary, audit := New().Merge(group(sp, sly))

	assert.Equal(t, "1200 E Camelback Rd", primary.Address)
	assert.Equal(t, "Phoenix", primary.City)
	assert.Equal(t, "AZ", primary.State)
	assert.Equal(t, "85014", primary.ZipCode)
	assert.Equal(t, "https://villafeliz.com", primary.Website)
	assert.Equal(t, "3500", primary.Price("monthly_base_price"))
	assert.Equal(t, []string{"pool"}, primary.Amenities)

	fields := make(map[string]model.Source)
	for _, bf := range audit.Backfilled {
		fields[bf.Field] = bf.FromSource
	}
	assert.Equal(t, model.SourceSeniorly, fields["address"])
	assert.Equal(t, model.SourceSeniorly, fields["monthly_base_price"])
}

func TestMerge_SeniorlyPhotosOverridePrimary(t *testing.T) {
	sp := &model.Listing{
		ID: "a", Title: "Sunny Acres", Photos: []string{"old1.jpg", "old2.jpg"},
		Source: model.SourceSeniorPlace,
	}
	sly := &model.Listing{
		ID: "b", Title: "Sunny Acres", Photos: []string{"new1.jpg"},
		Source: model.SourceSeniorly,
	}

	primary, audit := New().Merge(group(sp, sly))

	assert.Equal(t, []string{"new1.jpg"}, primary.Photos)
	assert.Equal(t, "b", audit.PhotosFrom)
}

func TestMerge_SeniorlyWithoutPhotosLeavesPrimaryPhotos(t *testing.T) {
	sp := &model.Listing{
		ID: "a", Title: "Sunny Acres", Photos: []string{"old1.jpg"},
		Source: model.SourceSeniorPlace,
	}
	sly := &model.Listing{ID: "b", Title: "Sunny Acres", Source: model.SourceSeniorly}

	primary, audit := New().Merge(group(sp, sly))

	assert.Equal(t, []string{"old1.jpg"}, primary.Photos)
	assert.Empty(t, audit.PhotosFrom)
}

func TestMerge_CanonicalTypesUnion(t *testing.T) {
	sp := &model.Listing{
		ID: "a", Title: "Sunny Acres", Source: model.SourceSeniorPlace,
		CanonicalTypes: []model.CanonicalType{model.TypeMemoryCare},
	}
	sly := &model.Listing{
		ID: "b", Title: "Sunny Acres", Source: model.SourceSeniorly,
		CanonicalTypes: []model.CanonicalType{model.TypeAssistedLivingCommunity, model.TypeMemoryCare},
	}

	primary, _ := New().Merge(group(sp, sly))

	require.Equal(t, []model.CanonicalType{model.TypeAssistedLivingCommunity, model.TypeMemoryCare}, primary.CanonicalTypes)
}

func TestMerge_InputOrderBreaksSourceTies(t *testing.T) {
	first := &model.Listing{ID: "a", Title: "Desert Rose", Source: model.SourceSeniorly}
	second := &model.Listing{ID: "b", Title: "Desert Rose Home", Source: model.SourceSeniorly}

	primary, audit := New().Merge(group(first, second))

	assert.Equal(t, "a", primary.ID)
	assert.Equal(t, []string{"b"}, audit.AbsorbedIDs)
}

func TestMerge_GroupOfThree(t *testing.T) {
	sp := &model.Listing{ID: "a", Title: "Villa Feliz", Source: model.SourceSeniorPlace}
	sly := &model.Listing{
		ID: "b", Title: "Villa Feliz", City: "Phoenix", Photos: []string{"p.jpg"},
		Source: model.SourceSeniorly,
	}
	other := &model.Listing{
		ID: "c", Title: "Villa Feliz", State: "AZ", Source: model.SourceOther,
	}

	primary, audit := New().Merge(group(sly, other, sp))

	assert.Equal(t, "a", primary.ID)
	assert.Equal(t, "Phoenix", primary.City)
	assert.Equal(t, "AZ", primary.State)
	assert.Equal(t, []string{"p.jpg"}, primary.Photos)
	assert.Equal(t, []string{"b", "c"}, audit.AbsorbedIDs)
}
