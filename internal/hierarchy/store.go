package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/sheet-engine/internal/ingest"
	"github.com/practicehub/sheet-engine/internal/models"
	"github.com/practicehub/sheet-engine/internal/storage"
)

// Event describes one committed mutation. Observers receive exactly
// one event per completed operation.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// Observer receives change events. It is invoked synchronously after
// the snapshot write and must not call back into the store.
type Observer func(Event)

// Store owns the canonical hierarchy state: the three order lists,
// the flat item collection, and the load/error flags. Every mutation
// is applied and persisted atomically under one lock, so readers
// never observe intermediate state. On a persist failure the mutation
// is rolled back.
type Store struct {
	mu    sync.Mutex
	cfg   models.Config
	items map[string]models.Item

	snapshots storage.SnapshotStore
	source    ingest.Source

	loading    bool
	lastErr    error
	refetching bool
	generation uint64

	observer Observer
	newID    func() string
}

// Option configures the store
type Option func(*Store)

// WithObserver registers a change observer
func WithObserver(fn Observer) Option {
	return func(s *Store) { s.observer = fn }
}

// withIDFunc overrides synthetic id generation (tests only).
func withIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store backed by the given snapshot store and
// ingestion source. Call Load to populate it.
func New(snapshots storage.SnapshotStore, source ingest.Source, opts ...Option) *Store {
	s := &Store{
		cfg: models.Config{
			SubCategoryOrder: make(map[string][]string),
		},
		items:     make(map[string]models.Item),
		snapshots: snapshots,
		source:    source,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap

// Load populates the store: from a prior snapshot if one exists,
// otherwise by fetching and transforming the external source.
// Ingestion only ever runs against a genuinely empty state.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	snap, err := s.snapshots.Load(ctx)
	if err == nil {
		slog.Info("snapshot loaded", "items", len(snap.Items), "categories", len(snap.Config.CategoryOrder))
		return s.commit(ctx, gen, snap, false)
	}
	if !errors.Is(err, storage.ErrNoSnapshot) {
		s.fail(gen, err)
		return err
	}

	slog.Info("no snapshot found, ingesting from source")
	return s.ingest(ctx, gen)
}

// Refetch re-runs ingestion against the external source. Only one
// refetch may be in flight at a time; a result is discarded if a
// newer load superseded it while the fetch was outstanding.
func (s *Store) Refetch(ctx context.Context) error {
	s.mu.Lock()
	if s.refetching {
		s.mu.Unlock()
		return ErrRefetchInFlight
	}
	s.refetching = true
	s.loading = true
	s.lastErr = nil
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refetching = false
		s.mu.Unlock()
	}()

	return s.ingest(ctx, gen)
}

func (s *Store) ingest(ctx context.Context, gen uint64) error {
	payload, err := s.source.Fetch(ctx)
	if err != nil {
		s.fail(gen, err)
		return err
	}

	cfg := payload.Data.Sheet.Config
	snap := ingest.Transform(cfg.TopicOrder, payload.Items(), cfg.QuestionOrder)
	return s.commit(ctx, gen, snap, true)
}

// commit installs a snapshot if this load is still the newest one.
// Stale results (a newer Load or Refetch started meanwhile) are
// dropped without effect.
func (s *Store) commit(ctx context.Context, gen uint64, snap *models.Snapshot, persist bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		slog.Debug("discarding stale load result", "generation", gen, "current", s.generation)
		return nil
	}

	before := s.snapshotLocked()
	s.installLocked(snap)
	s.loading = false
	s.lastErr = nil

	if persist {
		if err := s.persistLocked(ctx); err != nil {
			s.installLocked(&before)
			s.lastErr = err
			return err
		}
	}

	s.notifyLocked("sheet.loaded")
	return nil
}

func (s *Store) fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	s.loading = false
	s.lastErr = err
	slog.Error("ingestion failed", "error", err)
}

// installLocked replaces the in-memory state with the snapshot and
// restores the item-order invariant: every live id exactly once.
// Snapshots written by older builds and freshly ingested payloads may
// carry an incomplete or empty item order.
func (s *Store) installLocked(snap *models.Snapshot) {
	s.items = make(map[string]models.Item, len(snap.Items))
	for _, it := range snap.Items {
		s.items[it.ID] = it.Clone()
	}

	cfg := snap.Config.Clone()
	if cfg.SubCategoryOrder == nil {
		cfg.SubCategoryOrder = make(map[string][]string)
	}

	order := make([]string, 0, len(snap.Items))
	seen := make(map[string]bool, len(snap.Items))
	for _, id := range cfg.ItemOrder {
		if _, ok := s.items[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	for _, it := range snap.Items {
		if !seen[it.ID] {
			order = append(order, it.ID)
			seen[it.ID] = true
		}
	}
	cfg.ItemOrder = order

	s.cfg = cfg
}

// Reads

// State reports the consumer-facing loading/error flags.
func (s *Store) State() (loading bool, lastErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading, s.lastErr
}

// Config returns a copy of the hierarchy configuration.
func (s *Store) Config() models.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Items returns every item, in item-order sequence.
func (s *Store) Items() []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked(func(models.Item) bool { return true })
}

// Item returns a single item by id.
func (s *Store) Item(id string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return models.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return it.Clone(), nil
}

// ItemsByCategory returns the category's items in display order:
// filtered by field equality, then sequenced by the item order list.
func (s *Store) ItemsByCategory(category string) []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked(func(it models.Item) bool { return it.Category == category })
}

// ItemsBySubCategory returns the (category, sub-category) container's
// items in display order.
func (s *Store) ItemsBySubCategory(category, sub string) []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked(func(it models.Item) bool {
		return it.InContainer(category, &sub)
	})
}

// View returns the full consumer-facing read model in one call.
func (s *Store) View() models.SheetView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := models.SheetView{
		Config:  s.cfg.Clone(),
		Items:   s.itemsLocked(func(models.Item) bool { return true }),
		Loading: s.loading,
	}
	if s.lastErr != nil {
		view.Error = s.lastErr.Error()
	}
	return view
}

func (s *Store) itemsLocked(keep func(models.Item) bool) []models.Item {
	out := make([]models.Item, 0, len(s.cfg.ItemOrder))
	for _, id := range s.cfg.ItemOrder {
		if it, ok := s.items[id]; ok && keep(it) {
			out = append(out, it.Clone())
		}
	}
	return out
}

// Category operations

// AddCategory appends a category to the end of the order list.
// Adding an existing name is a no-op.
func (s *Store) AddCategory(ctx context.Context, name string) error {
	if name == "" {
		return validationf("add category", "name must not be empty")
	}
	return s.mutate(ctx, "category.added", func() error {
		if indexOf(s.cfg.CategoryOrder, name) >= 0 {
			return errNoChange
		}
		s.cfg.CategoryOrder = append(s.cfg.CategoryOrder, name)
		return nil
	})
}

// RenameCategory renames a category everywhere it appears: the order
// list, the sub-category map key, and every item. Renaming onto an
// existing name is rejected rather than silently merged.
func (s *Store) RenameCategory(ctx context.Context, oldName, newName string) error {
	if newName == "" {
		return validationf("rename category", "name must not be empty")
	}
	return s.mutate(ctx, "category.renamed", func() error {
		idx := indexOf(s.cfg.CategoryOrder, oldName)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, oldName)
		}
		if oldName == newName {
			return errNoChange
		}
		if indexOf(s.cfg.CategoryOrder, newName) >= 0 {
			return validationf("rename category", "name %q already exists", newName)
		}

		s.cfg.CategoryOrder[idx] = newName
		if subs, ok := s.cfg.SubCategoryOrder[oldName]; ok {
			s.cfg.SubCategoryOrder[newName] = subs
			delete(s.cfg.SubCategoryOrder, oldName)
		}
		for id, it := range s.items {
			if it.Category == oldName {
				it.Category = newName
				s.items[id] = it
			}
		}
		return nil
	})
}

// DeleteCategory removes a category, cascades to delete every item
// under it, drops its sub-category list, and prunes the item order.
func (s *Store) DeleteCategory(ctx context.Context, name string) error {
	return s.mutate(ctx, "category.deleted", func() error {
		idx := indexOf(s.cfg.CategoryOrder, name)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, name)
		}

		s.cfg.CategoryOrder = removeAt(s.cfg.CategoryOrder, idx)
		delete(s.cfg.SubCategoryOrder, name)

		for id, it := range s.items {
			if it.Category == name {
				delete(s.items, id)
			}
		}
		s.pruneItemOrderLocked()
		return nil
	})
}

// ReorderCategories replaces the category order wholesale. The
// proposed order must be a permutation of the current one.
func (s *Store) ReorderCategories(ctx context.Context, order []string) error {
	return s.mutate(ctx, "categories.reordered", func() error {
		if !isPermutation(s.cfg.CategoryOrder, order) {
			return validationf("reorder categories", "proposed order is not a permutation of the current categories")
		}
		s.cfg.CategoryOrder = append([]string(nil), order...)
		return nil
	})
}

// Sub-category operations

// AddSubCategory appends a sub-category to a category's order list.
// Adding an existing name is a no-op.
func (s *Store) AddSubCategory(ctx context.Context, category, name string) error {
	if name == "" {
		return validationf("add sub-category", "name must not be empty")
	}
	return s.mutate(ctx, "subcategory.added", func() error {
		if indexOf(s.cfg.CategoryOrder, category) < 0 {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
		}
		if indexOf(s.cfg.SubCategoryOrder[category], name) >= 0 {
			return errNoChange
		}
		s.cfg.SubCategoryOrder[category] = append(s.cfg.SubCategoryOrder[category], name)
		return nil
	})
}

// RenameSubCategory renames a sub-category in its order list and on
// every item in the container. Renaming onto an existing sibling is
// rejected.
func (s *Store) RenameSubCategory(ctx context.Context, category, oldName, newName string) error {
	if newName == "" {
		return validationf("rename sub-category", "name must not be empty")
	}
	return s.mutate(ctx, "subcategory.renamed", func() error {
		if indexOf(s.cfg.CategoryOrder, category) < 0 {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
		}
		subs := s.cfg.SubCategoryOrder[category]
		idx := indexOf(subs, oldName)
		if idx < 0 {
			return fmt.Errorf("%w: %s/%s", ErrSubCategoryNotFound, category, oldName)
		}
		if oldName == newName {
			return errNoChange
		}
		if indexOf(subs, newName) >= 0 {
			return validationf("rename sub-category", "name %q already exists in %q", newName, category)
		}

		subs[idx] = newName
		for id, it := range s.items {
			if it.InContainer(category, &oldName) {
				sub := newName
				it.SubCategory = &sub
				s.items[id] = it
			}
		}
		return nil
	})
}

// DeleteSubCategory removes a sub-category from its category's list
// and orphans its items to a nil sub-category under the same
// category. No item is deleted.
func (s *Store) DeleteSubCategory(ctx context.Context, category, name string) error {
	return s.mutate(ctx, "subcategory.deleted", func() error {
		if indexOf(s.cfg.CategoryOrder, category) < 0 {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
		}
		subs := s.cfg.SubCategoryOrder[category]
		idx := indexOf(subs, name)
		if idx < 0 {
			return fmt.Errorf("%w: %s/%s", ErrSubCategoryNotFound, category, name)
		}

		s.setSubsLocked(category, removeAt(subs, idx))
		for id, it := range s.items {
			if it.InContainer(category, &name) {
				it.SubCategory = nil
				s.items[id] = it
			}
		}
		return nil
	})
}

// ReorderSubCategories replaces a category's sub-category order. The
// proposed order must be a permutation of the current one.
func (s *Store) ReorderSubCategories(ctx context.Context, category string, order []string) error {
	return s.mutate(ctx, "subcategories.reordered", func() error {
		if indexOf(s.cfg.CategoryOrder, category) < 0 {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
		}
		if !isPermutation(s.cfg.SubCategoryOrder[category], order) {
			return validationf("reorder sub-categories", "proposed order is not a permutation of %q's sub-categories", category)
		}
		s.setSubsLocked(category, append([]string(nil), order...))
		return nil
	})
}

// MoveSubCategoryToCategory relocates a sub-category to another
// category. It always lands at the end of the destination list, and
// its items keep their sub-category name with the category relabeled.
func (s *Store) MoveSubCategoryToCategory(ctx context.Context, name, from, to string) error {
	return s.mutate(ctx, "subcategory.moved", func() error {
		return s.moveSubCategoryLocked(name, from, to)
	})
}

func (s *Store) moveSubCategoryLocked(name, from, to string) error {
	if indexOf(s.cfg.CategoryOrder, from) < 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, from)
	}
	if indexOf(s.cfg.CategoryOrder, to) < 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, to)
	}
	if from == to {
		return errNoChange
	}

	idx := indexOf(s.cfg.SubCategoryOrder[from], name)
	if idx < 0 {
		return fmt.Errorf("%w: %s/%s", ErrSubCategoryNotFound, from, name)
	}
	if indexOf(s.cfg.SubCategoryOrder[to], name) >= 0 {
		return validationf("move sub-category", "%q already exists in %q", name, to)
	}

	s.setSubsLocked(from, removeAt(s.cfg.SubCategoryOrder[from], idx))
	s.cfg.SubCategoryOrder[to] = append(s.cfg.SubCategoryOrder[to], name)

	for id, it := range s.items {
		if it.InContainer(from, &name) {
			it.Category = to
			s.items[id] = it
		}
	}
	return nil
}

// Item operations

// AddItem creates an item with a synthetic id and appends it to the
// end of the item order.
func (s *Store) AddItem(ctx context.Context, req models.CreateItemRequest) (models.Item, error) {
	var created models.Item
	err := s.mutate(ctx, "item.added", func() error {
		if req.Title == "" {
			return validationf("add item", "title must not be empty")
		}
		if indexOf(s.cfg.CategoryOrder, req.Category) < 0 {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, req.Category)
		}
		if req.SubCategory != nil && indexOf(s.cfg.SubCategoryOrder[req.Category], *req.SubCategory) < 0 {
			return fmt.Errorf("%w: %s/%s", ErrSubCategoryNotFound, req.Category, *req.SubCategory)
		}

		created = models.Item{
			ID:          s.newID(),
			Title:       req.Title,
			Category:    req.Category,
			SubCategory: req.SubCategory,
			ResourceURL: req.ResourceURL,
			ExternalRef: req.ExternalRef,
		}
		s.items[created.ID] = created.Clone()
		s.cfg.ItemOrder = append(s.cfg.ItemOrder, created.ID)
		return nil
	})
	return created, err
}

// UpdateItem edits an item in place. Nil fields are left unchanged.
func (s *Store) UpdateItem(ctx context.Context, id string, req models.UpdateItemRequest) (models.Item, error) {
	var updated models.Item
	err := s.mutate(ctx, "item.updated", func() error {
		it, ok := s.items[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		if req.Title != nil {
			if *req.Title == "" {
				return validationf("update item", "title must not be empty")
			}
			it.Title = *req.Title
		}
		if req.ResourceURL != nil {
			if *req.ResourceURL == "" {
				it.ResourceURL = nil
			} else {
				u := *req.ResourceURL
				it.ResourceURL = &u
			}
		}
		s.items[id] = it
		updated = it.Clone()
		return nil
	})
	return updated, err
}

// DeleteItem removes an item from the collection and the item order.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.mutate(ctx, "item.deleted", func() error {
		if _, ok := s.items[id]; !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		delete(s.items, id)
		s.pruneItemOrderLocked()
		return nil
	})
}

// ReorderItems replaces the global item order wholesale. The proposed
// order must be a permutation of the current one.
func (s *Store) ReorderItems(ctx context.Context, order []string) error {
	return s.mutate(ctx, "items.reordered", func() error {
		if !isPermutation(s.cfg.ItemOrder, order) {
			return validationf("reorder items", "proposed order is not a permutation of the current items")
		}
		s.cfg.ItemOrder = append([]string(nil), order...)
		return nil
	})
}

// MoveItemToContainer rewrites an item's container fields only. Its
// position in the item order is untouched; callers that care about
// placement follow up with a reorder.
func (s *Store) MoveItemToContainer(ctx context.Context, id, category string, sub *string) error {
	return s.mutate(ctx, "item.moved", func() error {
		it, ok := s.items[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		if indexOf(s.cfg.CategoryOrder, category) < 0 {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
		}
		if sub != nil && indexOf(s.cfg.SubCategoryOrder[category], *sub) < 0 {
			return fmt.Errorf("%w: %s/%s", ErrSubCategoryNotFound, category, *sub)
		}
		if it.InContainer(category, sub) {
			return errNoChange
		}

		it.Category = category
		if sub != nil {
			v := *sub
			it.SubCategory = &v
		} else {
			it.SubCategory = nil
		}
		s.items[id] = it
		return nil
	})
}

// Mutation plumbing

// mutate applies fn, persists the resulting snapshot, and emits one
// event, all under the store lock. A persist failure rolls the state
// back so memory never diverges from the durable snapshot. fn
// returning errNoChange skips both the write and the event.
func (s *Store) mutate(ctx context.Context, event string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.snapshotLocked()

	if err := fn(); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		s.installLocked(&before)
		return err
	}

	if err := s.persistLocked(ctx); err != nil {
		s.installLocked(&before)
		return fmt.Errorf("persist snapshot: %w", err)
	}

	s.notifyLocked(event)
	return nil
}

func (s *Store) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		Config: s.cfg.Clone(),
		Items:  s.itemsLocked(func(models.Item) bool { return true }),
	}
}

func (s *Store) persistLocked(ctx context.Context) error {
	snap := s.snapshotLocked()
	return s.snapshots.Save(ctx, &snap)
}

func (s *Store) notifyLocked(event string) {
	if s.observer != nil {
		s.observer(Event{Type: event, At: time.Now().UTC()})
	}
}

// setSubsLocked updates a category's sub-category list, dropping the
// map entry when the list empties out.
func (s *Store) setSubsLocked(category string, subs []string) {
	if len(subs) == 0 {
		delete(s.cfg.SubCategoryOrder, category)
		return
	}
	s.cfg.SubCategoryOrder[category] = subs
}

// pruneItemOrderLocked drops ids of deleted items from the order
// list.
func (s *Store) pruneItemOrderLocked() {
	kept := s.cfg.ItemOrder[:0]
	for _, id := range s.cfg.ItemOrder {
		if _, ok := s.items[id]; ok {
			kept = append(kept, id)
		}
	}
	s.cfg.ItemOrder = kept
}

// Helpers

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func removeAt(list []string, i int) []string {
	return append(list[:i:i], list[i+1:]...)
}

// isPermutation reports whether b contains exactly the elements of a.
func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}
