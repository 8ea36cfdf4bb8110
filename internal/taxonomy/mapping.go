// Package taxonomy maps free-text care-type labels scraped from the source
// directories onto the fixed WordPress taxonomy, and encodes the result in
// the serialized term-ID format the CMS import expects.
package taxonomy

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// defaultLabels maps lowercase source labels (both Senior Place and Seniorly
// vocabularies) to canonical types. Keys must be lowercase.
var defaultLabels = map[string]model.CanonicalType{
	// Senior Place
	"assisted living facility":              model.TypeAssistedLivingCommunity,
	"assisted living community":             model.TypeAssistedLivingCommunity,
	"continuing care retirement community":  model.TypeAssistedLivingCommunity,
	"ccrc":                                  model.TypeAssistedLivingCommunity,
	"respite care":                          model.TypeAssistedLivingCommunity,
	"assisted living home":                  model.TypeAssistedLivingHome,
	"directed care":                         model.TypeAssistedLivingHome, // Arizona license class
	"personal care":                         model.TypeAssistedLivingHome,
	"supervisory care":                      model.TypeAssistedLivingHome,
	"independent living":                    model.TypeIndependentLiving,
	"memory care":                           model.TypeMemoryCare,
	"skilled nursing":                       model.TypeNursingHome,
	"nursing home":                          model.TypeNursingHome,
	"in-home care":                          model.TypeHomeCare,
	"home health":                           model.TypeHomeCare,
	"home care":                             model.TypeHomeCare,
	"hospice":                               model.TypeHomeCare,

	// Seniorly
	"board and care home":   model.TypeAssistedLivingHome,
	"board and care":        model.TypeAssistedLivingHome,
	"adult care home":       model.TypeAssistedLivingHome,
	"residential care home": model.TypeAssistedLivingHome,
}

// defaultNoise lists substrings that mark a scraped label as not being a care
// type at all (room types, payment terms, mobility aids). Such labels are
// skipped without being reported as unmapped.
var defaultNoise = []string{
	"private pay",
	"medicaid",
	"contract",
	"cane",
	"walker",
	"wheelchair",
	"some memory loss",
	"private",
	"shared",
	"studio",
	"one bedroom",
	"two bedroom",
	"bathroom",
}

// termIDs is the persisted contract with the CMS taxonomy. Changing an ID
// without migrating the WordPress terms breaks every existing import.
var termIDs = map[model.CanonicalType]int{
	model.TypeAssistedLivingCommunity: 5,
	model.TypeAssistedLivingHome:      162,
	model.TypeIndependentLiving:       6,
	model.TypeMemoryCare:              3,
	model.TypeNursingHome:             7,
	model.TypeHomeCare:                488,
	model.TypeUncategorized:           1,
}

// Mapping is the injectable configuration object shared by the canonicalizer
// and the serializer: label table, noise filter, and term-ID table. Build it
// once at process start; it is immutable afterwards.
type Mapping struct {
	labels  map[string]model.CanonicalType
	noise   []string
	ids     map[model.CanonicalType]int
	byID    map[int]model.CanonicalType
}

// Default returns a Mapping built from the built-in tables.
func Default() *Mapping {
	return build(nil, nil)
}

// overrideFile is the YAML shape for operator extensions to the label table.
type overrideFile struct {
	Labels map[string]string `yaml:"labels"`
	Noise  []string          `yaml:"noise"`
}

// Load returns the default Mapping extended by the YAML override file at
// path. An empty path returns the defaults. Override labels must map to a
// canonical type name; anything else is a configuration error.
func Load(path string) (*Mapping, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read mapping file %s", path)
	}

	var of overrideFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return nil, eris.Wrap(err, "taxonomy: parse mapping file")
	}

	extra := make(map[string]model.CanonicalType, len(of.Labels))
	for label, name := range of.Labels {
		ct := model.CanonicalType(name)
		if _, ok := termIDs[ct]; !ok || ct == model.TypeUncategorized {
			return nil, eris.Errorf("taxonomy: override %q maps to unknown canonical type %q", label, name)
		}
		extra[strings.ToLower(strings.TrimSpace(label))] = ct
	}

	return build(extra, of.Noise), nil
}

func build(extraLabels map[string]model.CanonicalType, extraNoise []string) *Mapping {
	m := &Mapping{
		labels: make(map[string]model.CanonicalType, len(defaultLabels)+len(extraLabels)),
		ids:    termIDs,
		byID:   make(map[int]model.CanonicalType, len(termIDs)),
	}
	for k, v := range defaultLabels {
		m.labels[k] = v
	}
	for k, v := range extraLabels {
		m.labels[k] = v
	}
	m.noise = append(append([]string{}, defaultNoise...), extraNoise...)
	for ct, id := range termIDs {
		m.byID[id] = ct
	}
	return m
}

// Lookup returns the canonical type for a lowercase label.
func (m *Mapping) Lookup(label string) (model.CanonicalType, bool) {
	ct, ok := m.labels[label]
	return ct, ok
}

// IsNoise reports whether the lowercase label matches a noise pattern.
func (m *Mapping) IsNoise(label string) bool {
	for _, n := range m.noise {
		if strings.Contains(label, n) {
			return true
		}
	}
	return false
}

// TermID returns the CMS term ID for a canonical type.
func (m *Mapping) TermID(t model.CanonicalType) (int, bool) {
	id, ok := m.ids[t]
	return id, ok
}

// TypeForID reverses the term-ID table.
func (m *Mapping) TypeForID(id int) (model.CanonicalType, bool) {
	ct, ok := m.byID[id]
	return ct, ok
}
