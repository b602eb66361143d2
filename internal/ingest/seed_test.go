package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
data:
  sheet:
    config:
      topicOrder:
        - Arrays
        - DP Part-I
        - DP Part-II
      questionOrder:
        - q1
        - q2
  questions:
    - id: q1
      title: Two Sum
      topic: Arrays
      difficulty: Easy
    - id: q2
      title: Climbing Stairs
      topic: DP Part-I
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedLoader(t *testing.T) {
	loader := NewSeedLoader(writeSeed(t, seedYAML))

	payload, err := loader.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Arrays", "DP Part-I", "DP Part-II"}, payload.Data.Sheet.Config.TopicOrder)
	assert.Len(t, payload.Data.Questions, 2)
	assert.Equal(t, "Climbing Stairs", payload.Data.Questions[1].Title)
}

func TestSeedLoaderMissingFile(t *testing.T) {
	loader := NewSeedLoader(filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := loader.Fetch(context.Background())

	var ingestErr *IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Contains(t, ingestErr.Reason, "read seed file")
}

func TestSeedLoaderInvalidPayload(t *testing.T) {
	loader := NewSeedLoader(writeSeed(t, "data:\n  sheet: {}\n  questions: []\n"))

	_, err := loader.Fetch(context.Background())

	var ingestErr *IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Contains(t, ingestErr.Reason, "missing sheet config")
}
