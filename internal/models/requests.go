package models

// Request and response shapes for the HTTP surface.

// CreateCategoryRequest adds a category at the end of the order list.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// RenameRequest renames a category or sub-category.
type RenameRequest struct {
	NewName string `json:"new_name"`
}

// ReorderRequest replaces an order list wholesale. The proposed order
// must be a permutation of the current one.
type ReorderRequest struct {
	Order []string `json:"order"`
}

// CreateSubCategoryRequest adds a sub-category under a category.
type CreateSubCategoryRequest struct {
	Name string `json:"name"`
}

// MoveSubCategoryRequest relocates a sub-category to another
// category. It always lands at the end of the destination list.
type MoveSubCategoryRequest struct {
	ToCategory string `json:"to_category"`
}

// CreateItemRequest adds an item. The id is assigned by the server.
type CreateItemRequest struct {
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	SubCategory *string      `json:"sub_category,omitempty"`
	ResourceURL *string      `json:"resource_url,omitempty"`
	ExternalRef *ExternalRef `json:"external_ref,omitempty"`
}

// UpdateItemRequest edits an item in place. Nil fields are left
// unchanged; relocation goes through the move endpoint instead.
type UpdateItemRequest struct {
	Title       *string `json:"title,omitempty"`
	ResourceURL *string `json:"resource_url,omitempty"`
}

// MoveItemRequest relocates an item to another container without
// changing its position in the item order list.
type MoveItemRequest struct {
	Category    string  `json:"category"`
	SubCategory *string `json:"sub_category"`
}

// DragRequest carries the two opaque position identifiers of a
// settled drag gesture.
type DragRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// SheetView is the full consumer-facing read model.
type SheetView struct {
	Config  Config `json:"config"`
	Items   []Item `json:"items"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}
