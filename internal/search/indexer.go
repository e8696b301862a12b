// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"muni-flows/internal/common/logger"
	"muni-flows/internal/models"
)

// Indexer mirrors submitted application records into Elasticsearch so
// municipal staff can search across flows. The Postgres row stays the
// source of truth; the index is derived and rebuildable.
type Indexer struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

// NewIndexer creates an indexer writing to the given index.
func NewIndexer(es *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{es: es, index: index, logger: log}
}

type indexedRecord struct {
	RecordID       string                 `json:"recordId"`
	FlowID         string                 `json:"flowId"`
	ApplicantID    string                 `json:"applicantId"`
	MunicipalityID string                 `json:"municipalityId"`
	Status         string                 `json:"status"`
	Payload        map[string]interface{} `json:"payload"`
	CreatedAt      string                 `json:"createdAt,omitempty"`
}

// Index upserts one record document, keyed by record id so replays
// overwrite rather than duplicate.
func (i *Indexer) Index(ctx context.Context, rec *models.SubmissionRecord) error {
	doc := indexedRecord{
		RecordID:       rec.ID,
		FlowID:         rec.FlowID,
		ApplicantID:    rec.ApplicantID,
		MunicipalityID: rec.MunicipalityID,
		Status:         string(rec.Status),
		Payload:        rec.Payload,
		CreatedAt:      rec.CreatedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}

	res, err := i.es.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Index.WithDocumentID(rec.ID),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index record %s: %w", rec.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing record %s returned %s", rec.ID, res.Status())
	}

	i.logger.Debug("Record indexed", map[string]interface{}{
		"recordId": rec.ID,
		"index":    i.index,
	})
	return nil
}

// Query is a staff-side search request.
type Query struct {
	Text           string
	FlowID         string
	MunicipalityID string
	Status         string
	Size           int
}

// Hit is one search result.
type Hit struct {
	RecordID string
	FlowID   string
	Status   string
	Score    float64
}

// Search runs a filtered full-text query over indexed submissions.
func (i *Indexer) Search(ctx context.Context, q Query) ([]Hit, error) {
	size := q.Size
	if size <= 0 {
		size = 25
	}

	must := []map[string]interface{}{}
	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"payload.*", "applicantId"},
			},
		})
	}

	filter := []map[string]interface{}{}
	for field, value := range map[string]string{
		"flowId":         q.FlowID,
		"municipalityId": q.MunicipalityID,
		"status":         q.Status,
	} {
		if value != "" {
			filter = append(filter, map[string]interface{}{
				"term": map[string]interface{}{field: value},
			})
		}
	}

	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search returned %s", res.Status())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64       `json:"_score"`
				Source indexedRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			RecordID: h.Source.RecordID,
			FlowID:   h.Source.FlowID,
			Status:   h.Source.Status,
			Score:    h.Score,
		})
	}
	return hits, nil
}
