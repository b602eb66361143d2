// Package client is a Go SDK for the sheet-engine API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a Go SDK for the sheet-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new sheet-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error response from the API
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Config mirrors the hierarchy configuration
type Config struct {
	CategoryOrder    []string            `json:"category_order"`
	SubCategoryOrder map[string][]string `json:"sub_category_order"`
	ItemOrder        []string            `json:"item_order"`
}

// Item mirrors one sheet item
type Item struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	SubCategory *string      `json:"sub_category"`
	ResourceURL *string      `json:"resource_url,omitempty"`
	ExternalRef *ExternalRef `json:"external_ref,omitempty"`
}

// ExternalRef mirrors an item's external source record
type ExternalRef struct {
	RefID      string `json:"ref_id"`
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
	Source     string `json:"source"`
	URL        string `json:"url,omitempty"`
}

// Sheet is the full read model
type Sheet struct {
	Config  Config `json:"config"`
	Items   []Item `json:"items"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// CreateItemRequest creates an item
type CreateItemRequest struct {
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	SubCategory *string      `json:"sub_category,omitempty"`
	ResourceURL *string      `json:"resource_url,omitempty"`
	ExternalRef *ExternalRef `json:"external_ref,omitempty"`
}

// UpdateItemRequest edits an item; nil fields are left unchanged
type UpdateItemRequest struct {
	Title       *string `json:"title,omitempty"`
	ResourceURL *string `json:"resource_url,omitempty"`
}

// GetSheet fetches the full sheet view
func (c *Client) GetSheet(ctx context.Context) (*Sheet, error) {
	var sheet Sheet
	if err := c.do(ctx, http.MethodGet, "/api/v1/sheet", nil, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// AddCategory appends a category
func (c *Client) AddCategory(ctx context.Context, name string) (*Config, error) {
	return c.configCall(ctx, http.MethodPost, "/api/v1/categories", map[string]string{"name": name})
}

// RenameCategory renames a category
func (c *Client) RenameCategory(ctx context.Context, name, newName string) (*Config, error) {
	return c.configCall(ctx, http.MethodPut, "/api/v1/categories/"+url.PathEscape(name), map[string]string{"new_name": newName})
}

// DeleteCategory deletes a category and all its items
func (c *Client) DeleteCategory(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/categories/"+url.PathEscape(name), nil, nil)
}

// ReorderCategories replaces the category order
func (c *Client) ReorderCategories(ctx context.Context, order []string) (*Config, error) {
	return c.configCall(ctx, http.MethodPut, "/api/v1/categories/order", map[string][]string{"order": order})
}

// AddSubCategory appends a sub-category under a category
func (c *Client) AddSubCategory(ctx context.Context, category, name string) (*Config, error) {
	path := "/api/v1/categories/" + url.PathEscape(category) + "/subcategories"
	return c.configCall(ctx, http.MethodPost, path, map[string]string{"name": name})
}

// RenameSubCategory renames a sub-category
func (c *Client) RenameSubCategory(ctx context.Context, category, name, newName string) (*Config, error) {
	path := "/api/v1/categories/" + url.PathEscape(category) + "/subcategories/" + url.PathEscape(name)
	return c.configCall(ctx, http.MethodPut, path, map[string]string{"new_name": newName})
}

// DeleteSubCategory removes a sub-category; its items stay, orphaned
// directly under the category
func (c *Client) DeleteSubCategory(ctx context.Context, category, name string) error {
	path := "/api/v1/categories/" + url.PathEscape(category) + "/subcategories/" + url.PathEscape(name)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ReorderSubCategories replaces a category's sub-category order
func (c *Client) ReorderSubCategories(ctx context.Context, category string, order []string) (*Config, error) {
	path := "/api/v1/categories/" + url.PathEscape(category) + "/subcategories/order"
	return c.configCall(ctx, http.MethodPut, path, map[string][]string{"order": order})
}

// MoveSubCategory relocates a sub-category to the end of another
// category
func (c *Client) MoveSubCategory(ctx context.Context, category, name, toCategory string) (*Config, error) {
	path := "/api/v1/categories/" + url.PathEscape(category) + "/subcategories/" + url.PathEscape(name) + "/move"
	return c.configCall(ctx, http.MethodPost, path, map[string]string{"to_category": toCategory})
}

// ItemsByCategory lists a category's items in display order
func (c *Client) ItemsByCategory(ctx context.Context, category string) ([]Item, error) {
	return c.itemsCall(ctx, "/api/v1/categories/"+url.PathEscape(category)+"/items")
}

// ItemsBySubCategory lists a sub-category's items in display order
func (c *Client) ItemsBySubCategory(ctx context.Context, category, sub string) ([]Item, error) {
	path := "/api/v1/categories/" + url.PathEscape(category) + "/subcategories/" + url.PathEscape(sub) + "/items"
	return c.itemsCall(ctx, path)
}

// AddItem creates an item
func (c *Client) AddItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	var item Item
	if err := c.do(ctx, http.MethodPost, "/api/v1/items", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem edits an item
func (c *Client) UpdateItem(ctx context.Context, id string, req UpdateItemRequest) (*Item, error) {
	var item Item
	if err := c.do(ctx, http.MethodPut, "/api/v1/items/"+url.PathEscape(id), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/items/"+url.PathEscape(id), nil, nil)
}

// ReorderItems replaces the global item order
func (c *Client) ReorderItems(ctx context.Context, order []string) (*Config, error) {
	return c.configCall(ctx, http.MethodPut, "/api/v1/items/order", map[string][]string{"order": order})
}

// MoveItem relocates an item to another container without changing
// its order position
func (c *Client) MoveItem(ctx context.Context, id, category string, subCategory *string) (*Item, error) {
	body := map[string]interface{}{"category": category, "sub_category": subCategory}
	var item Item
	if err := c.do(ctx, http.MethodPost, "/api/v1/items/"+url.PathEscape(id)+"/move", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Drag reconciles a drag gesture given its source and target
// identifiers
func (c *Client) Drag(ctx context.Context, source, target string) (*Config, error) {
	return c.configCall(ctx, http.MethodPost, "/api/v1/drag", map[string]string{"source": source, "target": target})
}

// Refetch re-runs ingestion against the external source
func (c *Client) Refetch(ctx context.Context) (*Sheet, error) {
	var sheet Sheet
	if err := c.do(ctx, http.MethodPost, "/api/v1/refetch", nil, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// Internal plumbing

func (c *Client) configCall(ctx context.Context, method, path string, body interface{}) (*Config, error) {
	var cfg Config
	if err := c.do(ctx, method, path, body, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) itemsCall(ctx context.Context, path string) ([]Item, error) {
	var result struct {
		Items []Item `json:"items"`
		Total int    `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !envelope.Success {
		if envelope.Error != nil {
			return envelope.Error
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}

	return nil
}
