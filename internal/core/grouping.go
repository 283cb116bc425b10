package core

import "sort"

// BeverageGroup is one category's slice of a grouped beverage listing.
type BeverageGroup struct {
	CategoryID   int64      `json:"category_id"`
	CategoryName string     `json:"category_name,omitempty"`
	DisplayOrder int64      `json:"display_order"`
	Beverages    []Beverage `json:"beverages"`
}

// GroupBeverages partitions beverages by category for selection UIs.
// Groups are ordered by display_order ascending, ties broken by category
// id ascending; a beverage whose category is unknown still forms a group
// with the default order key 0. Within a group the beverages keep their
// original relative order. The filtered single-category view and the full
// grouped view both derive from this so a beverage lands in the same
// group either way.
func GroupBeverages(categories []Category, beverages []Beverage) []BeverageGroup {
	byID := make(map[int64]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	index := make(map[int64]int)
	var groups []BeverageGroup
	for _, b := range beverages {
		i, ok := index[b.CategoryID]
		if !ok {
			g := BeverageGroup{CategoryID: b.CategoryID}
			if c, known := byID[b.CategoryID]; known {
				g.CategoryName = c.Name
				g.DisplayOrder = c.DisplayOrder
			}
			index[b.CategoryID] = len(groups)
			i = len(groups)
			groups = append(groups, g)
		}
		groups[i].Beverages = append(groups[i].Beverages, b)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].DisplayOrder != groups[j].DisplayOrder {
			return groups[i].DisplayOrder < groups[j].DisplayOrder
		}
		return groups[i].CategoryID < groups[j].CategoryID
	})
	return groups
}
