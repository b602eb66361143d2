package hierarchy

import "strings"

// Drag gestures identify elements with opaque strings:
//
//	category:<name>
//	subcategory:<categoryName>:<subName>
//	item:<id>
//
// ParseRef turns one into a closed tagged union so the reconciler
// never works on raw strings.

// Ref identifies one draggable element.
type Ref interface {
	isRef()
}

// CategoryRef identifies a category by name.
type CategoryRef struct {
	Name string
}

// SubCategoryRef identifies a sub-category by its parent category and
// its own name.
type SubCategoryRef struct {
	Category string
	Name     string
}

// ItemRef identifies an item by id.
type ItemRef struct {
	ID string
}

func (CategoryRef) isRef()    {}
func (SubCategoryRef) isRef() {}
func (ItemRef) isRef()        {}

// ParseRef decodes a drag identifier. It returns false for anything
// that is not one of the three known encodings.
func ParseRef(s string) (Ref, bool) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return nil, false
	}

	switch kind {
	case "category":
		return CategoryRef{Name: rest}, true
	case "subcategory":
		category, name, ok := strings.Cut(rest, ":")
		if !ok || category == "" || name == "" {
			return nil, false
		}
		return SubCategoryRef{Category: category, Name: name}, true
	case "item":
		return ItemRef{ID: rest}, true
	default:
		return nil, false
	}
}
