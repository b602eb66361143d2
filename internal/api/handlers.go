package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/practicehub/sheet-engine/internal/hierarchy"
	"github.com/practicehub/sheet-engine/internal/models"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondStoreError maps store errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error, fallback string) {
	var vErr *hierarchy.ValidationError

	switch {
	case errors.As(err, &vErr):
		respondError(w, http.StatusConflict, "validation_error", vErr.Error())
	case errors.Is(err, hierarchy.ErrCategoryNotFound),
		errors.Is(err, hierarchy.ErrSubCategoryNotFound),
		errors.Is(err, hierarchy.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, hierarchy.ErrRefetchInFlight):
		respondError(w, http.StatusConflict, "refetch_in_flight", err.Error())
	default:
		slog.Error(fallback, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// pathParam returns a URL parameter with percent-encoding undone, so
// category names with spaces survive the round trip.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.snapshots.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "snapshot store not reachable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Sheet handlers

func (s *Server) handleGetSheet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.View())
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req models.DragRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Source == "" || req.Target == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "source and target are required")
		return
	}

	if err := s.store.Reconcile(r.Context(), req.Source, req.Target); err != nil {
		respondStoreError(w, err, "failed to reconcile drag")
		return
	}

	respondJSON(w, http.StatusOK, s.store.Config())
}

func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Refetch(r.Context()); err != nil {
		if errors.Is(err, hierarchy.ErrRefetchInFlight) {
			respondStoreError(w, err, "")
			return
		}
		// Ingestion failure: the error state is set on the store and
		// surfaced in the sheet view; report it to the caller too.
		respondError(w, http.StatusBadGateway, "ingest_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, s.store.View())
}

// Category handlers

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.AddCategory(r.Context(), req.Name); err != nil {
		respondStoreError(w, err, "failed to add category")
		return
	}

	respondJSON(w, http.StatusCreated, s.store.Config())
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	var req models.RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.RenameCategory(r.Context(), name, req.NewName); err != nil {
		respondStoreError(w, err, "failed to rename category")
		return
	}

	respondJSON(w, http.StatusOK, s.store.Config())
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	if err := s.store.DeleteCategory(r.Context(), name); err != nil {
		respondStoreError(w, err, "failed to delete category")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "category deleted",
	})
}

func (s *Server) handleReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.ReorderCategories(r.Context(), req.Order); err != nil {
		respondStoreError(w, err, "failed to reorder categories")
		return
	}

	respondJSON(w, http.StatusOK, s.store.Config())
}

func (s *Server) handleItemsByCategory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	items := s.store.ItemsByCategory(name)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// Sub-category handlers

func (s *Server) handleAddSubCategory(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "name")

	var req models.CreateSubCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.AddSubCategory(r.Context(), category, req.Name); err != nil {
		respondStoreError(w, err, "failed to add sub-category")
		return
	}

	respondJSON(w, http.StatusCreated, s.store.Config())
}

func (s *Server) handleRenameSubCategory(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "name")
	sub := pathParam(r, "sub")

	var req models.RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.RenameSubCategory(r.Context(), category, sub, req.NewName); err != nil {
		respondStoreError(w, err, "failed to rename sub-category")
		return
	}

	respondJSON(w, http.StatusOK, s.store.Config())
}

func (s *Server) handleDeleteSubCategory(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "name")
	sub := pathParam(r, "sub")

	if err := s.store.DeleteSubCategory(r.Context(), category, sub); err != nil {
		respondStoreError(w, err, "failed to delete sub-category")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "sub-category deleted",
	})
}

func (s *Server) handleReorderSubCategories(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "name")

	var req models.ReorderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.ReorderSubCategories(r.Context(), category, req.Order); err != nil {
		respondStoreError(w, err, "failed to reorder sub-categories")
		return
	}

	respondJSON(w, http.StatusOK, s.store.Config())
}

func (s *Server) handleMoveSubCategory(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "name")
	sub := pathParam(r, "sub")

	var req models.MoveSubCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.ToCategory == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "to_category is required")
		return
	}

	if err := s.store.MoveSubCategoryToCategory(r.Context(), sub, category, req.ToCategory); err != nil {
		respondStoreError(w, err, "failed to move sub-category")
		return
	}

	respondJSON(w, http.StatusOK, s.store.Config())
}

func (s *Server) handleItemsBySubCategory(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "name")
	sub := pathParam(r, "sub")
	items := s.store.ItemsBySubCategory(category, sub)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// Item handlers

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "title is required")
		return
	}
	if req.Category == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "category is required")
		return
	}

	item, err := s.store.AddItem(r.Context(), req)
	if err != nil {
		respondStoreError(w, err, "failed to add item")
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req models.UpdateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := s.store.UpdateItem(r.Context(), id, req)
	if err != nil {
		respondStoreError(w, err, "failed to update item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if err := s.store.DeleteItem(r.Context(), id); err != nil {
		respondStoreError(w, err, "failed to delete item")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "item deleted",
	})
}

func (s *Server) handleReorderItems(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.ReorderItems(r.Context(), req.Order); err != nil {
		respondStoreError(w, err, "failed to reorder items")
		return
	}

	respondJSON(w, http.StatusOK, s.store.Config())
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req models.MoveItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Category == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "category is required")
		return
	}

	if err := s.store.MoveItemToContainer(r.Context(), id, req.Category, req.SubCategory); err != nil {
		respondStoreError(w, err, "failed to move item")
		return
	}

	item, _ := s.store.Item(id)
	respondJSON(w, http.StatusOK, item)
}
