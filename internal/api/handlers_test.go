package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicehub/sheet-engine/internal/config"
	"github.com/practicehub/sheet-engine/internal/hierarchy"
	"github.com/practicehub/sheet-engine/internal/ingest"
	"github.com/practicehub/sheet-engine/internal/models"
	"github.com/practicehub/sheet-engine/internal/storage"
)

func strptr(s string) *string { return &s }

type stubSource struct {
	payload *ingest.Payload
	err     error
}

func (s *stubSource) Fetch(ctx context.Context) (*ingest.Payload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Config: models.Config{
			CategoryOrder: []string{"Arrays", "DP", "Graphs"},
			SubCategoryOrder: map[string][]string{
				"DP": {"DP Part-I", "DP Part-II"},
			},
			ItemOrder: []string{"a1", "a2", "d1", "d2"},
		},
		Items: []models.Item{
			{ID: "a1", Title: "Two Sum", Category: "Arrays"},
			{ID: "a2", Title: "3Sum", Category: "Arrays"},
			{ID: "d1", Title: "Climbing Stairs", Category: "DP", SubCategory: strptr("DP Part-I")},
			{ID: "d2", Title: "Edit Distance", Category: "DP", SubCategory: strptr("DP Part-II")},
		},
	}
}

func newTestServer(t *testing.T, src ingest.Source, apiKeys ...string) *Server {
	t.Helper()
	ctx := context.Background()

	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Save(ctx, testSnapshot()))

	if src == nil {
		src = &stubSource{}
	}
	store := hierarchy.New(mem, src)
	require.NoError(t, store.Load(ctx))

	return NewServer(config.ServerConfig{}, config.AuthConfig{APIKeys: apiKeys}, store, mem, NewEventHub())
}

// doJSON performs a request against the router and decodes the
// response envelope.
func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func decodeData(t *testing.T, resp apiResponse, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestGetSheet(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodGet, "/api/v1/sheet", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var view models.SheetView
	decodeData(t, resp, &view)
	assert.Equal(t, []string{"Arrays", "DP", "Graphs"}, view.Config.CategoryOrder)
	assert.Len(t, view.Items, 4)
	assert.False(t, view.Loading)
}

func TestAddCategory(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/categories", models.CreateCategoryRequest{Name: "Tries"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var cfg models.Config
	decodeData(t, resp, &cfg)
	assert.Equal(t, []string{"Arrays", "DP", "Graphs", "Tries"}, cfg.CategoryOrder)
}

func TestRenameCategoryCollision(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodPut, "/api/v1/categories/DP", models.RenameRequest{NewName: "Arrays"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Code)
}

func TestDeleteCategoryNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodDelete, "/api/v1/categories/Nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestReorderCategoriesRejectsNonPermutation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodPut, "/api/v1/categories/order", models.ReorderRequest{Order: []string{"Arrays"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Code)
}

func TestItemsByCategory(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodGet, "/api/v1/categories/Arrays/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Items []models.Item `json:"items"`
		Total int           `json:"total"`
	}
	decodeData(t, resp, &data)
	assert.Equal(t, 2, data.Total)
	assert.Equal(t, "a1", data.Items[0].ID)
}

func TestItemsBySubCategoryEscapedName(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodGet, "/api/v1/categories/DP/subcategories/DP%20Part-I/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Items []models.Item `json:"items"`
		Total int           `json:"total"`
	}
	decodeData(t, resp, &data)
	require.Equal(t, 1, data.Total)
	assert.Equal(t, "d1", data.Items[0].ID)
}

func TestMoveSubCategory(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/categories/DP/subcategories/DP%20Part-I/move",
		models.MoveSubCategoryRequest{ToCategory: "Graphs"})
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg models.Config
	decodeData(t, resp, &cfg)
	assert.Equal(t, []string{"DP Part-II"}, cfg.SubCategoryOrder["DP"])
	assert.Equal(t, []string{"DP Part-I"}, cfg.SubCategoryOrder["Graphs"])
}

func TestAddItem(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/items", models.CreateItemRequest{
		Title:    "Word Break",
		Category: "DP",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var item models.Item
	decodeData(t, resp, &item)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Word Break", item.Title)
}

func TestAddItemValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	// Missing title is rejected before it reaches the store.
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/items", models.CreateItemRequest{Category: "DP"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown category maps to 404.
	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/items", models.CreateItemRequest{Title: "X", Category: "Nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestUpdateItemNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, _ := doJSON(t, srv, http.MethodPut, "/api/v1/items/nope", models.UpdateItemRequest{Title: strptr("X")})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoveItem(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/items/a1/move", models.MoveItemRequest{
		Category:    "DP",
		SubCategory: strptr("DP Part-II"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.Item
	decodeData(t, resp, &item)
	assert.Equal(t, "DP", item.Category)
	require.NotNil(t, item.SubCategory)
	assert.Equal(t, "DP Part-II", *item.SubCategory)
}

func TestDrag(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/drag", models.DragRequest{
		Source: "category:Arrays",
		Target: "category:Graphs",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg models.Config
	decodeData(t, resp, &cfg)
	assert.Equal(t, []string{"DP", "Graphs", "Arrays"}, cfg.CategoryOrder)
}

func TestDragRejectsEmptyEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/drag", models.DragRequest{Source: "category:Arrays"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefetch(t *testing.T) {
	src := &stubSource{payload: &ingest.Payload{Data: ingest.PayloadData{
		Sheet: ingest.PayloadSheet{Config: &ingest.PayloadConfig{
			TopicOrder:    []string{"Fresh"},
			QuestionOrder: []string{},
		}},
		Questions: []ingest.QuestionRecord{},
	}}}
	srv := newTestServer(t, src)

	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/refetch", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view models.SheetView
	decodeData(t, resp, &view)
	assert.Equal(t, []string{"Fresh"}, view.Config.CategoryOrder)
}

func TestRefetchSourceFailure(t *testing.T) {
	src := &stubSource{err: &ingest.IngestError{Reason: "source unreachable"}}
	srv := newTestServer(t, src)

	rec, resp := doJSON(t, srv, http.MethodPost, "/api/v1/refetch", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ingest_error", resp.Error.Code)
}

func TestAuthRequiredWhenKeysConfigured(t *testing.T) {
	srv := newTestServer(t, nil, "secret-key-12345")

	// No key.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sheet", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sheet", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Bearer token.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sheet", nil)
	req.Header.Set("Authorization", "Bearer secret-key-12345")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// X-API-Key header.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sheet", nil)
	req.Header.Set("X-API-Key", "secret-key-12345")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
