package wordpress

import "github.com/aplaceforseniors/listings-cli/internal/normalize"

// Index holds existing site listings keyed for duplicate lookup: by Senior
// Place URL first (the stable key), then by normalized address.
type Index struct {
	bySourceURL map[string]*Listing
	byAddress   map[string]*Listing
	all         []*Listing
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		bySourceURL: make(map[string]*Listing),
		byAddress:   make(map[string]*Listing),
	}
}

// Add indexes one listing. First writer wins on key collisions so that
// published posts indexed before drafts take priority.
func (i *Index) Add(l *Listing) {
	i.all = append(i.all, l)
	if u := l.Meta.SeniorPlaceURL; u != "" {
		if _, ok := i.bySourceURL[u]; !ok {
			i.bySourceURL[u] = l
		}
	}
	if a := normalize.Address(l.Meta.Address); a != "" {
		if _, ok := i.byAddress[a]; !ok {
			i.byAddress[a] = l
		}
	}
}

// Find looks up an existing listing by source URL, falling back to the
// normalized address. Returns nil when the record is new to the site.
func (i *Index) Find(sourceURL, address string) *Listing {
	if sourceURL != "" {
		if l, ok := i.bySourceURL[sourceURL]; ok {
			return l
		}
	}
	if a := normalize.Address(address); a != "" {
		if l, ok := i.byAddress[a]; ok {
			return l
		}
	}
	return nil
}

// All returns every listing added, in fetch order.
func (i *Index) All() []*Listing {
	return i.all
}

// Len returns the number of listings added.
func (i *Index) Len() int {
	return len(i.all)
}
