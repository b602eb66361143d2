package ingest

import (
	"context"
	"fmt"

	"github.com/practicehub/sheet-engine/internal/models"
)

// Source produces the raw sheet payload the transformer runs on.
// Implemented by the HTTP fetcher and the local YAML seed loader.
type Source interface {
	Fetch(ctx context.Context) (*Payload, error)
}

// IngestError marks a failure at the ingestion boundary: a network
// error, a non-success status, or a payload missing required fields.
// Nothing is committed when ingestion fails.
type IngestError struct {
	Reason string
	Err    error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ingest: %s", e.Reason)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Payload mirrors the external sheet endpoint's response shape.
type Payload struct {
	Data PayloadData `json:"data" yaml:"data"`
}

// PayloadData wraps the sheet config and the flat question list.
type PayloadData struct {
	Sheet     PayloadSheet     `json:"sheet" yaml:"sheet"`
	Questions []QuestionRecord `json:"questions" yaml:"questions"`
}

// PayloadSheet carries the sheet-level ordering configuration.
type PayloadSheet struct {
	Config *PayloadConfig `json:"config" yaml:"config"`
}

// PayloadConfig holds the flat topic order and the global question
// order as supplied by the source.
type PayloadConfig struct {
	TopicOrder    []string `json:"topicOrder" yaml:"topicOrder"`
	QuestionOrder []string `json:"questionOrder" yaml:"questionOrder"`
}

// QuestionRecord is one flat item as supplied by the source, tagged
// with a single flat topic name (the source has no sub-topics).
type QuestionRecord struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Topic       string `json:"topic" yaml:"topic"`
	ResourceURL string `json:"resourceUrl,omitempty" yaml:"resourceUrl,omitempty"`
	RefID       string `json:"refId,omitempty" yaml:"refId,omitempty"`
	RefName     string `json:"refName,omitempty" yaml:"refName,omitempty"`
	Difficulty  string `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Validate checks the payload for the fields ingestion cannot proceed
// without. Absence of the config, its topic order, or the question
// list fails ingestion as a whole.
func (p *Payload) Validate() error {
	if p.Data.Sheet.Config == nil {
		return &IngestError{Reason: "payload missing sheet config"}
	}
	if p.Data.Sheet.Config.TopicOrder == nil {
		return &IngestError{Reason: "payload missing topic order"}
	}
	if p.Data.Questions == nil {
		return &IngestError{Reason: "payload missing questions"}
	}
	return nil
}

// Items converts the question records into sheet items. Each item
// starts out in its flat topic with no sub-category; the transformer
// rewrites containers afterwards.
func (p *Payload) Items() []models.Item {
	items := make([]models.Item, 0, len(p.Data.Questions))
	for _, q := range p.Data.Questions {
		item := models.Item{
			ID:       q.ID,
			Title:    q.Title,
			Category: q.Topic,
		}
		if q.ResourceURL != "" {
			u := q.ResourceURL
			item.ResourceURL = &u
		}
		if q.RefID != "" || q.RefName != "" || q.Source != "" {
			item.ExternalRef = &models.ExternalRef{
				RefID:      q.RefID,
				Name:       q.RefName,
				Difficulty: models.ParseDifficulty(q.Difficulty),
				Source:     q.Source,
				URL:        q.URL,
			}
		}
		items = append(items, item)
	}
	return items
}
