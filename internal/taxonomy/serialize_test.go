package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

func TestEncodeTypes_SingleType(t *testing.T) {
	got := EncodeTypes([]model.CanonicalType{model.TypeAssistedLivingHome}, Default())
	assert.Equal(t, "a:1:{i:0;i:162;}", got)
}

func TestEncodeTypes_EmptySetIsUncategorized(t *testing.T) {
	got := EncodeTypes(nil, Default())
	assert.Equal(t, "a:1:{i:0;i:1;}", got)
}

func TestEncodeTypes_MultiType(t *testing.T) {
	got := EncodeTypes([]model.CanonicalType{
		model.TypeAssistedLivingCommunity,
		model.TypeIndependentLiving,
	}, Default())
	assert.Equal(t, "a:2:{i:0;i:5;i:1;i:6;}", got)
}

func TestDecodeTermIDs_Single(t *testing.T) {
	ids, err := DecodeTermIDs("a:1:{i:0;i:162;}")
	require.NoError(t, err)
	assert.Equal(t, []int{162}, ids)
}

func TestDecodeTermIDs_Multi(t *testing.T) {
	ids, err := DecodeTermIDs("a:3:{i:0;i:5;i:1;i:3;i:2;i:488;}")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3, 488}, ids)
}

func TestDecodeTermIDs_CountMismatch(t *testing.T) {
	_, err := DecodeTermIDs("a:2:{i:0;i:5;}")
	require.Error(t, err)
}

func TestDecodeTermIDs_NonSequentialIndex(t *testing.T) {
	_, err := DecodeTermIDs("a:2:{i:0;i:5;i:2;i:3;}")
	require.Error(t, err)
}

func TestDecodeTermIDs_Garbage(t *testing.T) {
	_, err := DecodeTermIDs("not serialized at all")
	require.Error(t, err)
}

func TestDecodeTypes_FallsBackToUncategorized(t *testing.T) {
	m := Default()
	assert.Equal(t, []model.CanonicalType{model.TypeUncategorized}, DecodeTypes("a:1:{", m))
	assert.Equal(t, []model.CanonicalType{model.TypeUncategorized}, DecodeTypes("", m))
	// Unknown term ID on legacy data degrades the same way.
	assert.Equal(t, []model.CanonicalType{model.TypeUncategorized}, DecodeTypes("a:1:{i:0;i:9999;}", m))
}

func TestDecodeTypes_RoundTrip(t *testing.T) {
	m := Default()
	sets := [][]model.CanonicalType{
		{model.TypeMemoryCare},
		{model.TypeAssistedLivingCommunity, model.TypeIndependentLiving},
		{model.TypeAssistedLivingHome, model.TypeMemoryCare, model.TypeHomeCare},
		model.CanonicalTypeOrder,
	}
	for _, set := range sets {
		encoded := EncodeTypes(set, m)
		decoded := DecodeTypes(encoded, m)
		assert.Equal(t, encoded, EncodeTypes(decoded, m), "round-trip for %v", set)
	}
}
