package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicehub/sheet-engine/internal/models"
)

func testSnapshot() *models.Snapshot {
	sub := "DP Part-I"
	url := "https://example.com/two-sum"
	return &models.Snapshot{
		Config: models.Config{
			CategoryOrder: []string{"Arrays", "DP"},
			SubCategoryOrder: map[string][]string{
				"DP": {"DP Part-I", "DP Part-II"},
			},
			ItemOrder: []string{"q1", "q2"},
		},
		Items: []models.Item{
			{ID: "q1", Title: "Two Sum", Category: "Arrays", ResourceURL: &url},
			{
				ID:          "q2",
				Title:       "Climbing Stairs",
				Category:    "DP",
				SubCategory: &sub,
				ExternalRef: &models.ExternalRef{
					RefID:      "ext-2",
					Name:       "climbing-stairs",
					Difficulty: models.DifficultyEasy,
					Source:     "leetcode",
				},
			},
		},
	}
}

func TestMemoryStoreLoadEmpty(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	snap := testSnapshot()

	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSnapshot()))

	second := &models.Snapshot{
		Config: models.Config{CategoryOrder: []string{"Graphs"}},
		Items:  []models.Item{},
	}
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Graphs"}, loaded.Config.CategoryOrder)
	assert.Empty(t, loaded.Items)
}
