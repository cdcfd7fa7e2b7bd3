package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const DefaultSearchSize = 50

type Hit struct {
	ID        string              `json:"id"`
	Score     float64             `json:"score"`
	Document  Document            `json:"document"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

type SearchResult struct {
	Total int   `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Search runs a query_string query over the index, highlighting matches in
// the text field.
func (i *Indexer) Search(ctx context.Context, term string, size int) (*SearchResult, error) {
	if size <= 0 {
		size = DefaultSearchSize
	}
	query := map[string]any{
		"size": size,
		"query": map[string]any{
			"query_string": map[string]any{
				"query": term,
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"text": map[string]any{},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	req := opensearchapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s: %s", res.Status(), decodeError(res.Body))
	}

	var raw struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID        string              `json:"_id"`
				Score     float64             `json:"_score"`
				Source    Document            `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{Total: raw.Hits.Total.Value, Hits: []Hit{}}
	for _, h := range raw.Hits.Hits {
		out.Hits = append(out.Hits, Hit{
			ID:        h.ID,
			Score:     h.Score,
			Document:  h.Source,
			Highlight: h.Highlight,
		})
	}
	return out, nil
}
