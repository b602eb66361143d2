package models

// Config holds the three order lists that define the hierarchy's
// display order. The lists are authoritative: entity iteration order
// never determines what the consumer sees.
type Config struct {
	// CategoryOrder lists every category name, in display order.
	CategoryOrder []string `json:"category_order"`
	// SubCategoryOrder maps a category name to its ordered
	// sub-category names. Categories without sub-categories have no
	// entry.
	SubCategoryOrder map[string][]string `json:"sub_category_order"`
	// ItemOrder lists every item id, in display order across the
	// whole collection.
	ItemOrder []string `json:"item_order"`
}

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	out := Config{
		CategoryOrder:    append([]string(nil), c.CategoryOrder...),
		SubCategoryOrder: make(map[string][]string, len(c.SubCategoryOrder)),
		ItemOrder:        append([]string(nil), c.ItemOrder...),
	}
	for cat, subs := range c.SubCategoryOrder {
		out.SubCategoryOrder[cat] = append([]string(nil), subs...)
	}
	return out
}

// Snapshot is the full persisted state: the hierarchy configuration
// plus the flat item collection. It is written wholesale after every
// mutation and reloaded verbatim at startup.
type Snapshot struct {
	Config Config `json:"config"`
	Items  []Item `json:"items"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	items := make([]Item, len(s.Items))
	for i, it := range s.Items {
		items[i] = it.Clone()
	}
	return Snapshot{Config: s.Config.Clone(), Items: items}
}
