package pricing

import (
	"strconv"
	"strings"
)

// NewCategoryRef is the reserved category reference for a product without
// reference data. It always resolves to NotFound.
const NewCategoryRef = "new"

// Resolver looks categories up in an immutable snapshot.
type Resolver struct {
	categories []*Category
	byID       map[int64]*Category
	byName     map[string]*Category
}

// NewResolver snapshots categories; later changes to the slice are not seen.
func NewResolver(categories []Category) *Resolver {
	r := &Resolver{
		categories: make([]*Category, 0, len(categories)),
		byID:       make(map[int64]*Category, len(categories)),
		byName:     make(map[string]*Category, len(categories)),
	}
	for i := range categories {
		c := categories[i].clone()
		r.categories = append(r.categories, c)
		if c.ID != 0 {
			r.byID[c.ID] = c
		}
		if key := normalizeRef(c.Name); key != "" {
			r.byName[key] = c
		}
	}
	return r
}

// Resolution is the outcome of a lookup. Found=false is the new/unknown
// category case and is not an error.
type Resolution struct {
	Category *Category
	Found    bool
}

// Resolve finds a category by numeric ID or by name, ignoring case and spacing.
func (r *Resolver) Resolve(ref string) Resolution {
	key := normalizeRef(ref)
	if r == nil || key == "" || key == NewCategoryRef {
		return Resolution{}
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		if c, ok := r.byID[id]; ok {
			return Resolution{Category: c.clone(), Found: true}
		}
	}
	if c, ok := r.byName[key]; ok {
		return Resolution{Category: c.clone(), Found: true}
	}
	return Resolution{}
}

// Categories returns copies of every category in the snapshot.
func (r *Resolver) Categories() []Category {
	if r == nil {
		return nil
	}
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, *c.clone())
	}
	return out
}

func normalizeRef(ref string) string {
	return strings.Join(strings.Fields(strings.ToLower(ref)), " ")
}
