package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

func newCanon(t *testing.T) *Canonicalizer {
	t.Helper()
	return NewCanonicalizer(Default())
}

func TestCanonicalize_DirectMapping(t *testing.T) {
	res := newCanon(t).Canonicalize([]string{"Assisted Living Facility"})
	assert.Equal(t, []model.CanonicalType{model.TypeAssistedLivingCommunity}, res.Types)
	assert.Empty(t, res.Unmapped)
}

func TestCanonicalize_CaseAndWhitespace(t *testing.T) {
	res := newCanon(t).Canonicalize([]string{"  MEMORY care  "})
	assert.Equal(t, []model.CanonicalType{model.TypeMemoryCare}, res.Types)
}

func TestCanonicalize_MultiTypePreserved(t *testing.T) {
	// Continuing-care campuses hold several types at once; the set must
	// never collapse to a single "primary" type.
	res := newCanon(t).Canonicalize([]string{"Independent Living", "Assisted Living Facility"})
	assert.Equal(t,
		[]model.CanonicalType{model.TypeAssistedLivingCommunity, model.TypeIndependentLiving},
		res.Types)
}

func TestCanonicalize_DedupeByCanonicalIdentity(t *testing.T) {
	res := newCanon(t).Canonicalize([]string{
		"assisted living facility",
		"continuing care retirement community",
	})
	assert.Equal(t, []model.CanonicalType{model.TypeAssistedLivingCommunity}, res.Types)
}

func TestCanonicalize_UnmappedRecordedNotDropped(t *testing.T) {
	res := newCanon(t).Canonicalize([]string{"Some Future Care Type"})
	assert.Empty(t, res.Types)
	assert.Equal(t, []string{"Some Future Care Type"}, res.Unmapped)
}

func TestCanonicalize_NoiseFilteredSilently(t *testing.T) {
	res := newCanon(t).Canonicalize([]string{"Private Pay", "Wheelchair", "Memory Care"})
	assert.Equal(t, []model.CanonicalType{model.TypeMemoryCare}, res.Types)
	assert.Empty(t, res.Unmapped)
}

func TestCanonicalize_CommaJoinedInput(t *testing.T) {
	res := newCanon(t).Canonicalize([]string{"Memory Care, Skilled Nursing"})
	assert.Equal(t,
		[]model.CanonicalType{model.TypeMemoryCare, model.TypeNursingHome},
		res.Types)
}

func TestCanonicalize_SerializedInput(t *testing.T) {
	res := newCanon(t).Canonicalize([]string{"a:2:{i:0;i:162;i:1;i:3;}"})
	assert.Equal(t,
		[]model.CanonicalType{model.TypeAssistedLivingHome, model.TypeMemoryCare},
		res.Types)
}

func TestCanonicalize_SubstringFallback(t *testing.T) {
	res := newCanon(t).Canonicalize([]string{"Luxury Assisted Living - Phoenix"})
	assert.Equal(t, []model.CanonicalType{model.TypeAssistedLivingCommunity}, res.Types)
}

func TestCanonicalize_Empty(t *testing.T) {
	res := newCanon(t).Canonicalize(nil)
	assert.Empty(t, res.Types)
	assert.Empty(t, res.Unmapped)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	c := newCanon(t)
	raw := []string{"Assisted Living Facility", "Memory Care", "Unknown Label"}
	first := c.Canonicalize(raw)
	second := c.Canonicalize(raw)
	assert.Equal(t, first, second)
}

func TestCanonicalize_FixedPriorityOrder(t *testing.T) {
	// Insertion order must not leak into the output order.
	a := newCanon(t).Canonicalize([]string{"memory care", "assisted living facility"})
	b := newCanon(t).Canonicalize([]string{"assisted living facility", "memory care"})
	assert.Equal(t, a.Types, b.Types)
	assert.Equal(t,
		[]model.CanonicalType{model.TypeAssistedLivingCommunity, model.TypeMemoryCare},
		a.Types)
}

func TestApply_FillsListingInPlace(t *testing.T) {
	l := &model.Listing{
		Title:        "Sunny Acres",
		RawCareTypes: []string{"Assisted Living Home", "Future Thing"},
	}
	newCanon(t).Apply(l)
	assert.Equal(t, []model.CanonicalType{model.TypeAssistedLivingHome}, l.CanonicalTypes)
	assert.Equal(t, []string{"Future Thing"}, l.UnmappedTypes)
	// Apply must not touch anything else.
	assert.Equal(t, "Sunny Acres", l.Title)
}

func TestLoad_OverrideExtendsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	yaml := "labels:\n  adult foster care: Assisted Living Home\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	res := NewCanonicalizer(m).Canonicalize([]string{"Adult Foster Care"})
	assert.Equal(t, []model.CanonicalType{model.TypeAssistedLivingHome}, res.Types)
}

func TestLoad_RejectsUnknownCanonicalName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	yaml := "labels:\n  foo: Not A Real Type\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	_, ok := m.Lookup("assisted living facility")
	assert.True(t, ok)
}
