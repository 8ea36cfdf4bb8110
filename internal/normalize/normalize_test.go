package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle_LowercaseAndTrim(t *testing.T) {
	assert.Equal(t, "sunny acres", Title("  Sunny Acres  "))
}

func TestTitle_StripsLegalSuffixes(t *testing.T) {
	assert.Equal(t, "sunny acres", Title("Sunny Acres LLC"))
	assert.Equal(t, "sunny acres", Title("Sunny Acres, Inc."))
	assert.Equal(t, "desert bloom", Title("Desert Bloom Corp"))
}

func TestTitle_StripsLeadingArticleOnly(t *testing.T) {
	assert.Equal(t, "gardens", Title("The Gardens"))
	assert.Equal(t, "place for mom", Title("A Place for Mom"))

	// Mid-string articles are part of the name. "Plaza A" must not
	// collapse into "Plaza".
	assert.Equal(t, "plaza a", Title("Plaza A"))
	assert.NotEqual(t, Title("Plaza A"), Title("Plaza"))
	assert.Equal(t, "villa on the green", Title("Villa on the Green"))
}

func TestTitle_FoldsDiacritics(t *testing.T) {
	assert.Equal(t, Title("Casa Señora"), Title("Casa Senora"))
}

func TestTitle_Empty(t *testing.T) {
	assert.Equal(t, "", Title(""))
	assert.Equal(t, "", Title("   "))
}

func TestCleanTitle_SlashComment(t *testing.T) {
	assert.Equal(t, "Desert Bloom", CleanTitle("Desert Bloom / private pay only"))
}

func TestCleanTitle_EllipsisTail(t *testing.T) {
	assert.Equal(t, "Sunrise Manor", CleanTitle("Sunrise Manor ... call first"))
}

func TestCleanTitle_DoNotParenthetical(t *testing.T) {
	assert.Equal(t, "Villa Feliz", CleanTitle("Villa Feliz (do not refer)"))
}

func TestCleanTitle_TrailingLegalSuffix(t *testing.T) {
	assert.Equal(t, "Sunny Acres", CleanTitle("Sunny Acres LLC"))
	assert.Equal(t, "Sunny Acres", CleanTitle("Sunny Acres, Inc."))
}

func TestCleanTitle_KeepsCleanTitles(t *testing.T) {
	assert.Equal(t, "Mountain View Senior Living", CleanTitle("Mountain View Senior Living"))
}

func TestBlockedTitle(t *testing.T) {
	assert.True(t, BlockedTitle("Shady Pines DO NOT REFER"))
	assert.True(t, BlockedTitle("Happy Home - referral only"))
	assert.True(t, BlockedTitle("New Facility coming soon"))
	assert.True(t, BlockedTitle(""))
	assert.False(t, BlockedTitle("Sunny Acres Assisted Living"))
}

func TestAddress_AbbreviationCollapse(t *testing.T) {
	assert.Equal(t, Address("123 Main Street, Tempe, AZ"), Address("123 main st tempe az"))
	assert.Equal(t, Address("456 West Elm Avenue"), Address("456 W Elm Ave"))
}

func TestAddress_CompoundDirectionals(t *testing.T) {
	assert.Equal(t, "100 ne 5th st", Address("100 Northeast 5th Street"))
}

func TestAddress_PunctuationStripped(t *testing.T) {
	assert.Equal(t, "789 oak ln ste 4", Address("789 Oak Lane, Suite #4"))
}

func TestAddress_Empty(t *testing.T) {
	assert.Equal(t, "", Address(""))
}

func TestCityStateKey(t *testing.T) {
	assert.Equal(t, "tempe|az", CityStateKey(" Tempe ", "AZ"))
	assert.Equal(t, "", CityStateKey("", "AZ"))
	assert.Equal(t, "", CityStateKey("Tempe", ""))
}

func TestTitleSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, TitleSimilarity("sunny acres", "sunny acres"))
}

func TestTitleSimilarity_Empty(t *testing.T) {
	assert.Equal(t, 0.0, TitleSimilarity("", "sunny acres"))
	assert.Equal(t, 0.0, TitleSimilarity("sunny acres", ""))
}

func TestTitleSimilarity_Symmetric(t *testing.T) {
	a, b := "sunny acres care", "sunny acres home"
	assert.Equal(t, TitleSimilarity(a, b), TitleSimilarity(b, a))
}

func TestTitleSimilarity_CloseVariantsAboveThreshold(t *testing.T) {
	assert.GreaterOrEqual(t, TitleSimilarity("sunny acres", "sunny acre"), 0.8)
}

func TestTitleSimilarity_DistinctBuildingsBelowThreshold(t *testing.T) {
	a := Title("Building A - North Wing")
	b := Title("Building A - South Wing")
	assert.Less(t, TitleSimilarity(a, b), 0.8)
}
