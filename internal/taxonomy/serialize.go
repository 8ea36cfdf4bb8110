package taxonomy

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// The WordPress importer stores multi-valued taxonomy assignments as a
// PHP-serialized array of term IDs: a:N:{i:0;i:ID0;i:1;i:ID1;...}. The CMS
// parses this with an exact grammar, so the encoder must be byte-exact:
// count prefix equal to the number of IDs, zero-based sequential positions.

// EncodeTypes serializes a canonical type set for the CMS "_type" field.
// An empty set encodes the Uncategorized sentinel.
func EncodeTypes(types []model.CanonicalType, m *Mapping) string {
	var ids []int
	for _, t := range types {
		if id, ok := m.TermID(t); ok && t != model.TypeUncategorized {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		uncat, _ := m.TermID(model.TypeUncategorized)
		ids = []int{uncat}
	}
	return EncodeTermIDs(ids)
}

// EncodeTermIDs renders term IDs in the serialized array format.
func EncodeTermIDs(ids []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "a:%d:{", len(ids))
	for pos, id := range ids {
		fmt.Fprintf(&b, "i:%d;i:%d;", pos, id)
	}
	b.WriteString("}")
	return b.String()
}

// DecodeTermIDs parses a serialized term-ID array back into IDs. Strict on
// the grammar: count must match, positions must be sequential from zero.
func DecodeTermIDs(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	var count int
	if _, err := fmt.Sscanf(s, "a:%d:", &count); err != nil {
		return nil, eris.Wrapf(err, "taxonomy: malformed array header %q", s)
	}
	open := strings.Index(s, "{")
	if open < 0 || !strings.HasSuffix(s, "}") {
		return nil, eris.Errorf("taxonomy: malformed array body %q", s)
	}
	body := s[open+1 : len(s)-1]

	var ids []int
	pos := 0
	for body != "" {
		var p, id int
		var rest string
		n, err := fmt.Sscanf(body, "i:%d;i:%d;%s", &p, &id, &rest)
		if err != nil && n < 2 {
			return nil, eris.Errorf("taxonomy: malformed array entry %q", body)
		}
		if p != pos {
			return nil, eris.Errorf("taxonomy: non-sequential index %d (want %d)", p, pos)
		}
		ids = append(ids, id)
		pos++
		// Sscanf with %s stops at whitespace; the body has none, so rest
		// holds the remainder only when a third token was present.
		if n < 3 {
			break
		}
		body = rest
	}
	if len(ids) != count {
		return nil, eris.Errorf("taxonomy: count prefix %d but %d entries", count, len(ids))
	}
	return ids, nil
}

// DecodeTypes parses a serialized field from an existing CMS record. Decode
// failures on legacy or partial data are expected and must not halt a batch:
// any malformation falls back to the Uncategorized sentinel.
func DecodeTypes(s string, m *Mapping) []model.CanonicalType {
	ids, err := DecodeTermIDs(s)
	if err != nil {
		return []model.CanonicalType{model.TypeUncategorized}
	}
	var types []model.CanonicalType
	for _, id := range ids {
		ct, ok := m.TypeForID(id)
		if !ok {
			return []model.CanonicalType{model.TypeUncategorized}
		}
		if ct == model.TypeUncategorized {
			continue
		}
		types = append(types, ct)
	}
	if len(types) == 0 {
		return []model.CanonicalType{model.TypeUncategorized}
	}
	return types
}
