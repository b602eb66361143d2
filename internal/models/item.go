package models

import "strings"

// Difficulty grades an item as reported by its external source.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyUnknown Difficulty = "unknown"
)

// ParseDifficulty normalizes an externally supplied difficulty label.
// Unrecognized values map to DifficultyUnknown rather than failing,
// since the external source is not under our control.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return DifficultyUnknown
	}
}

// ExternalRef links an item back to the record it was ingested from.
type ExternalRef struct {
	RefID      string     `json:"ref_id"`
	Name       string     `json:"name"`
	Difficulty Difficulty `json:"difficulty"`
	Source     string     `json:"source"`
	URL        string     `json:"url,omitempty"`
}

// Item is a single entry in the sheet. Category always names an entry
// in the category order list; SubCategory, when non-nil, names an
// entry in that category's sub-category order list.
type Item struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	SubCategory *string      `json:"sub_category"`
	ResourceURL *string      `json:"resource_url,omitempty"`
	ExternalRef *ExternalRef `json:"external_ref,omitempty"`
}

// InContainer reports whether the item lives in the given
// (category, sub-category) pair. A nil sub matches items that have no
// sub-category.
func (it *Item) InContainer(category string, sub *string) bool {
	if it.Category != category {
		return false
	}
	if sub == nil {
		return it.SubCategory == nil
	}
	return it.SubCategory != nil && *it.SubCategory == *sub
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	if it.SubCategory != nil {
		s := *it.SubCategory
		it.SubCategory = &s
	}
	if it.ResourceURL != nil {
		u := *it.ResourceURL
		it.ResourceURL = &u
	}
	if it.ExternalRef != nil {
		ref := *it.ExternalRef
		it.ExternalRef = &ref
	}
	return it
}
