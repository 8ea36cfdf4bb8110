// Package match identifies listings that describe the same physical
// facility. Matching runs over a frozen in-memory corpus snapshot in four
// tiers; once a pair is bound by a high-confidence tier, lower tiers never
// reconsider it.
package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/model"
	"github.com/aplaceforseniors/listings-cli/internal/normalize"
)

// Config tunes the matcher.
type Config struct {
	// TitleSimilarityThreshold gates the fuzzy tier. Pairs at the same
	// address below it are flagged for review instead of merged.
	TitleSimilarityThreshold float64 `mapstructure:"title_similarity_threshold"`
	// SlugSuffixes lists duplicate-post artifacts from prior imports
	// ("-2" etc.). A slug equal to another slug plus a suffix is a
	// certain duplicate.
	SlugSuffixes []string `mapstructure:"slug_suffixes"`
}

// DefaultConfig returns the production matcher settings.
func DefaultConfig() Config {
	return Config{
		TitleSimilarityThreshold: 0.8,
		SlugSuffixes:             []string{"-2"},
	}
}

// Result separates auto-mergeable groups from review-only flags. Review
// groups (same address, different title) must never reach the merger.
type Result struct {
	Groups []*model.MatchGroup
	Review []*model.MatchGroup
}

// Matcher finds duplicate listings across sources.
type Matcher struct {
	cfg Config
	log *zap.Logger
}

// New creates a Matcher. Zero-value config fields fall back to defaults.
func New(cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.TitleSimilarityThreshold <= 0 {
		cfg.TitleSimilarityThreshold = def.TitleSimilarityThreshold
	}
	if len(cfg.SlugSuffixes) == 0 {
		cfg.SlugSuffixes = def.SlugSuffixes
	}
	return &Matcher{cfg: cfg, log: zap.L().With(zap.String("component", "matcher"))}
}

// candidate precomputes the matching keys for one record.
type candidate struct {
	idx   int
	rec   *model.Listing
	title string
	addr  string
	city  string
}

// tier ranks for reason bookkeeping: lower is more certain.
var reasonTier = map[model.MatchReason]int{
	model.MatchURL:              1,
	model.MatchExactTitleAddress: 1,
	model.MatchExactSlug:        2,
	model.MatchFuzzyTitle:       3,
}

// Match runs the tier cascade over the corpus and returns the resulting
// groups. Deterministic for a given input order, and symmetric: the
// decision for a pair does not depend on which record is seen first.
func (m *Matcher) Match(corpus []*model.Listing) Result {
	cands := make([]candidate, len(corpus))
	for i, rec := range corpus {
		cands[i] = candidate{
			idx:   i,
			rec:   rec,
			title: normalize.Title(rec.Title),
			addr:  normalize.Address(rec.Address),
			city:  normalize.CityStateKey(rec.City, rec.State),
		}
	}

	u := newUnionFind(len(corpus))

	// Tier 1a: identical source URL.
	for _, block := range blockBy(cands, func(c candidate) string {
		return strings.TrimSpace(strings.ToLower(c.rec.SourceURL))
	}) {
		m.joinAll(u, block, model.MatchURL, 1)
	}

	// Tier 1b: identical normalized title AND normalized address.
	for _, block := range blockBy(cands, func(c candidate) string {
		if c.title == "" || c.addr == "" {
			return ""
		}
		return c.title + "|" + c.addr
	}) {
		m.joinAll(u, block, model.MatchExactTitleAddress, 1)
	}

	// Tier 2: slug suffix correspondence.
	m.matchSlugs(u, cands)

	// Tier 3: fuzzy title within address blocks, then city+state blocks.
	addrBlocks := blockBy(cands, func(c candidate) string { return c.addr })
	for _, block := range addrBlocks {
		m.fuzzyWithin(u, block)
	}
	for _, block := range blockBy(cands, func(c candidate) string { return c.city }) {
		m.fuzzyWithin(u, block)
	}

	res := Result{Groups: m.collectGroups(u, cands)}

	// Tier 4: same address, different title. Flag only: a campus can
	// host several distinct facilities at one address, and merging here
	// would fuse them.
	res.Review = m.flagSameAddress(u, addrBlocks)

	m.log.Info("matching complete",
		zap.Int("records", len(corpus)),
		zap.Int("groups", len(res.Groups)),
		zap.Int("review", len(res.Review)),
	)
	return res
}

// blockBy partitions candidates by a cheap key, dropping empty keys and
// singleton blocks. Keeps the expensive pairwise work inside small groups so
// a corpus of thousands stays tractable.
func blockBy(cands []candidate, key func(candidate) string) [][]candidate {
	byKey := make(map[string][]candidate)
	var keys []string
	for _, c := range cands {
		k := key(c)
		if k == "" {
			continue
		}
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], c)
	}
	sort.Strings(keys)

	var blocks [][]candidate
	for _, k := range keys {
		if len(byKey[k]) > 1 {
			blocks = append(blocks, byKey[k])
		}
	}
	return blocks
}

func (m *Matcher) joinAll(u *unionFind, block []candidate, reason model.MatchReason, sim float64) {
	first := block[0]
	for _, c := range block[1:] {
		u.join(first.idx, c.idx, reason, sim)
	}
}

func (m *Matcher) matchSlugs(u *unionFind, cands []candidate) {
	bySlug := make(map[string]int)
	for _, c := range cands {
		slug := strings.TrimSpace(strings.ToLower(c.rec.Slug))
		if slug != "" {
			bySlug[slug] = c.idx
		}
	}
	for _, c := range cands {
		slug := strings.TrimSpace(strings.ToLower(c.rec.Slug))
		if slug == "" {
			continue
		}
		for _, suffix := range m.cfg.SlugSuffixes {
			base := strings.TrimSuffix(slug, suffix)
			if base == slug || base == "" {
				continue
			}
			if other, ok := bySlug[base]; ok && other != c.idx {
				u.join(c.idx, other, model.MatchExactSlug, 1)
			}
		}
	}
}

func (m *Matcher) fuzzyWithin(u *unionFind, block []candidate) {
	for i := 0; i < len(block); i++ {
		for j := i + 1; j < len(block); j++ {
			a, b := block[i], block[j]
			if u.find(a.idx) == u.find(b.idx) {
				continue // already bound by a higher tier
			}
			sim := normalize.TitleSimilarity(a.title, b.title)
			if sim >= m.cfg.TitleSimilarityThreshold {
				u.join(a.idx, b.idx, model.MatchFuzzyTitle, sim)
			}
		}
	}
}

// collectGroups materializes union-find sets into MatchGroups, preserving
// corpus input order inside each group.
func (m *Matcher) collectGroups(u *unionFind, cands []candidate) []*model.MatchGroup {
	members := make(map[int][]int)
	for i := range cands {
		root := u.find(i)
		members[root] = append(members[root], i)
	}

	var roots []int
	for root, idxs := range members {
		if len(idxs) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	groups := make([]*model.MatchGroup, 0, len(roots))
	for _, root := range roots {
		idxs := members[root]
		sort.Ints(idxs)
		g := &model.MatchGroup{
			ID:         uuid.NewString(),
			Reason:     u.reason[root],
			Similarity: u.similarity[root],
		}
		if reasonTier[g.Reason] <= 2 {
			g.Confidence = model.ConfidenceCertain
		} else {
			g.Confidence = model.ConfidenceHigh
		}
		for _, i := range idxs {
			g.Records = append(g.Records, cands[i].rec)
		}
		groups = append(groups, g)
	}
	return groups
}

// flagSameAddress reports address blocks whose unmatched members have titles
// too dissimilar for the fuzzy tier.
func (m *Matcher) flagSameAddress(u *unionFind, addrBlocks [][]candidate) []*model.MatchGroup {
	var flagged []*model.MatchGroup
	for _, block := range addrBlocks {
		// One representative per already-formed group; the rest are the
		// possibly-distinct facilities sharing the address.
		byRoot := make(map[int]candidate)
		var order []int
		for _, c := range block {
			root := u.find(c.idx)
			if _, seen := byRoot[root]; !seen {
				byRoot[root] = c
				order = append(order, root)
			}
		}
		if len(order) < 2 {
			continue
		}
		sort.Ints(order)

		g := &model.MatchGroup{
			ID:         uuid.NewString(),
			Reason:     model.MatchSameAddressDifferentTitle,
			Confidence: model.ConfidenceReview,
		}
		minSim := 1.0
		for i, root := range order {
			g.Records = append(g.Records, byRoot[root].rec)
			for _, other := range order[i+1:] {
				if s := normalize.TitleSimilarity(byRoot[root].title, byRoot[other].title); s < minSim {
					minSim = s
				}
			}
		}
		g.Similarity = minSim
		flagged = append(flagged, g)

		m.log.Debug("same address, different titles",
			zap.String("address", byRoot[order[0]].rec.Address),
			zap.Int("facilities", len(order)),
			zap.Float64("min_similarity", minSim),
		)
	}
	return flagged
}

// unionFind tracks pair decisions with the winning reason per set.
type unionFind struct {
	parent     []int
	reason     map[int]model.MatchReason
	similarity map[int]float64
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{
		parent:     make([]int, n),
		reason:     make(map[int]model.MatchReason),
		similarity: make(map[int]float64),
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// join merges the sets of a and b. The lowest-index root survives so group
// identity follows corpus input order; the best (lowest-tier) reason wins,
// and the weakest similarity inside the set is retained.
func (u *unionFind) join(a, b int, reason model.MatchReason, sim float64) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		u.absorb(ra, reason, sim)
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra

	u.absorb(ra, reason, sim)
	if r, ok := u.reason[rb]; ok {
		u.absorb(ra, r, u.similarity[rb])
		delete(u.reason, rb)
		delete(u.similarity, rb)
	}
}

func (u *unionFind) absorb(root int, reason model.MatchReason, sim float64) {
	cur, ok := u.reason[root]
	if !ok || reasonTier[reason] < reasonTier[cur] {
		u.reason[root] = reason
	}
	if existing, ok := u.similarity[root]; !ok || sim < existing {
		u.similarity[root] = sim
	}
}

// String implements fmt.Stringer for debug logging.
func (c Config) String() string {
	return fmt.Sprintf("threshold=%.2f suffixes=%v", c.TitleSimilarityThreshold, c.SlugSuffixes)
}
