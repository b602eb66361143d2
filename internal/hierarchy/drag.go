package hierarchy

import "context"

// Reconcile maps one settled drag gesture onto exactly one store
// mutation. The gesture is a pair of opaque identifiers: the dragged
// element and the element it was dropped onto. Unparseable
// identifiers, identical endpoints, mixed element kinds, and unknown
// names or ids all reconcile to a no-op; nothing is persisted and no
// event is emitted for those.
func (s *Store) Reconcile(ctx context.Context, source, target string) error {
	if source == target {
		return nil
	}

	src, ok := ParseRef(source)
	if !ok {
		return nil
	}
	tgt, ok := ParseRef(target)
	if !ok {
		return nil
	}

	switch src := src.(type) {
	case CategoryRef:
		if tgt, ok := tgt.(CategoryRef); ok {
			return s.reconcileCategories(ctx, src, tgt)
		}
	case SubCategoryRef:
		if tgt, ok := tgt.(SubCategoryRef); ok {
			return s.reconcileSubCategories(ctx, src, tgt)
		}
	case ItemRef:
		if tgt, ok := tgt.(ItemRef); ok {
			return s.reconcileItems(ctx, src, tgt)
		}
	}

	// Dropping one kind onto another has no defined meaning.
	return nil
}

// reconcileCategories splice-moves the dragged category to the
// target's position in the category order.
func (s *Store) reconcileCategories(ctx context.Context, src, tgt CategoryRef) error {
	return s.mutate(ctx, "categories.reordered", func() error {
		from := indexOf(s.cfg.CategoryOrder, src.Name)
		to := indexOf(s.cfg.CategoryOrder, tgt.Name)
		if from < 0 || to < 0 || from == to {
			return errNoChange
		}
		s.cfg.CategoryOrder = spliceMove(s.cfg.CategoryOrder, from, to)
		return nil
	})
}

// reconcileSubCategories splice-moves within a shared parent, or
// relocates across parents. A cross-parent move always appends at the
// destination end; the gesture's drop position is ignored there.
func (s *Store) reconcileSubCategories(ctx context.Context, src, tgt SubCategoryRef) error {
	if src.Category == tgt.Category {
		return s.mutate(ctx, "subcategories.reordered", func() error {
			subs := s.cfg.SubCategoryOrder[src.Category]
			from := indexOf(subs, src.Name)
			to := indexOf(subs, tgt.Name)
			if from < 0 || to < 0 || from == to {
				return errNoChange
			}
			s.setSubsLocked(src.Category, spliceMove(subs, from, to))
			return nil
		})
	}

	return s.mutate(ctx, "subcategory.moved", func() error {
		err := s.moveSubCategoryLocked(src.Name, src.Category, tgt.Category)
		if err != nil {
			// A drag against stale state reconciles to a no-op
			// rather than an error.
			return errNoChange
		}
		return nil
	})
}

// reconcileItems handles the two item cases. Within one container the
// global item order is splice-moved using the pair's indices: both
// ids being in the same container, their relative container order is
// determined solely by their relative global order. Across containers
// the item is relabeled to the target's container and, in the same
// atomic step, reinserted immediately next to the target id so the
// container-local order comes out right without any per-container
// order structure.
func (s *Store) reconcileItems(ctx context.Context, src, tgt ItemRef) error {
	return s.mutate(ctx, "items.reordered", func() error {
		srcItem, ok := s.items[src.ID]
		if !ok {
			return errNoChange
		}
		tgtItem, ok := s.items[tgt.ID]
		if !ok {
			return errNoChange
		}

		from := indexOf(s.cfg.ItemOrder, src.ID)
		to := indexOf(s.cfg.ItemOrder, tgt.ID)
		if from < 0 || to < 0 || from == to {
			return errNoChange
		}

		if srcItem.InContainer(tgtItem.Category, tgtItem.SubCategory) {
			s.cfg.ItemOrder = spliceMove(s.cfg.ItemOrder, from, to)
			return nil
		}

		srcItem.Category = tgtItem.Category
		if tgtItem.SubCategory != nil {
			sub := *tgtItem.SubCategory
			srcItem.SubCategory = &sub
		} else {
			srcItem.SubCategory = nil
		}
		s.items[src.ID] = srcItem

		order := removeAt(append([]string(nil), s.cfg.ItemOrder...), from)
		s.cfg.ItemOrder = insertAt(order, indexOf(order, tgt.ID), src.ID)
		return nil
	})
}

// spliceMove removes the element at from and reinserts it at the
// target's original index: dragging down lands after the target,
// dragging up lands before it.
func spliceMove(list []string, from, to int) []string {
	out := append([]string(nil), list...)
	v := out[from]
	out = removeAt(out, from)
	return insertAt(out, to, v)
}

func insertAt(list []string, i int, v string) []string {
	if i < 0 || i > len(list) {
		i = len(list)
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
