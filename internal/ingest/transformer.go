package ingest

import (
	"regexp"
	"strings"

	"github.com/practicehub/sheet-engine/internal/models"
)

// The source supplies a flat topic list, but by convention related
// topics are named "<Base> Part-I", "<Base> Part-II" (or "part-1",
// "part-2"). Transform folds that convention into the two-level
// hierarchy: each multi-part base becomes a category whose parts are
// its sub-categories.

var partPattern = regexp.MustCompile(`(?i)^(.*\S)\s+part-([ivxlcdm]+|[0-9]+)$`)

// container is a resolved (category, sub-category) pair for one
// original flat topic name.
type container struct {
	category string
	sub      *string
}

type group struct {
	base    string
	members []string
}

// Transform folds the flat topic order into the hierarchy config and
// rewrites every item's container through the resolved lookup. The
// item order is taken verbatim from the source.
func Transform(topicOrder []string, items []models.Item, itemOrder []string) *models.Snapshot {
	groups := buildGroups(topicOrder)

	config := models.Config{
		CategoryOrder:    make([]string, 0, len(groups)),
		SubCategoryOrder: make(map[string][]string),
		ItemOrder:        append([]string{}, itemOrder...),
	}

	lookup := make(map[string]container)
	for _, g := range groups {
		config.CategoryOrder = append(config.CategoryOrder, g.base)

		if len(g.members) > 1 {
			config.SubCategoryOrder[g.base] = append([]string(nil), g.members...)
			for _, m := range g.members {
				sub := m
				lookup[m] = container{category: g.base, sub: &sub}
			}
			continue
		}

		// Standalone category: the base itself and any lone part
		// both resolve to the category with no sub-category.
		lookup[g.base] = container{category: g.base}
		for _, m := range g.members {
			lookup[m] = container{category: g.base}
		}
	}

	out := make([]models.Item, len(items))
	for i, it := range items {
		rewritten := it.Clone()
		if c, ok := lookup[it.Category]; ok {
			rewritten.Category = c.category
			rewritten.SubCategory = c.sub
		}
		// Unknown topics pass through unchanged.
		out[i] = rewritten
	}

	return &models.Snapshot{Config: config, Items: out}
}

// buildGroups walks the topic list once, in source order, and buckets
// each name: parts join the group keyed by their base, a name that
// other topics extend with "Part-" anchors its own group as a member,
// and everything else stands alone.
func buildGroups(topicOrder []string) []group {
	index := make(map[string]int) // lowercased base -> position in order
	var order []group

	groupFor := func(base string) *group {
		key := strings.ToLower(base)
		if i, ok := index[key]; ok {
			return &order[i]
		}
		index[key] = len(order)
		order = append(order, group{base: base})
		return &order[len(order)-1]
	}

	for _, name := range topicOrder {
		if m := partPattern.FindStringSubmatch(name); m != nil {
			g := groupFor(m[1])
			g.members = append(g.members, name)
			continue
		}

		if hasParts(name, topicOrder) {
			g := groupFor(name)
			g.members = append(g.members, name)
			continue
		}

		groupFor(name)
	}

	return order
}

// hasParts reports whether any other topic in the list extends name
// with the part convention.
func hasParts(name string, topicOrder []string) bool {
	prefix := strings.ToLower(name) + " part-"
	for _, other := range topicOrder {
		if other == name {
			continue
		}
		if strings.HasPrefix(strings.ToLower(other), prefix) {
			return true
		}
	}
	return false
}
