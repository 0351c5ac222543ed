package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mbertozzi/storefront/pkg/models"
)

const searchSize = 25

// ElasticIndex implements Index over the Elasticsearch HTTP API. One logical
// index per tenant, named "<prefix>_<schema>_products".
type ElasticIndex struct {
	baseURL string
	prefix  string
	client  *http.Client
}

// NewElasticIndex creates a new Elasticsearch-backed Index.
func NewElasticIndex(baseURL, prefix string, timeout time.Duration) *ElasticIndex {
	return &ElasticIndex{
		baseURL: baseURL,
		prefix:  prefix,
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *ElasticIndex) indexName(schema string) string {
	return fmt.Sprintf("%s_%s_products", e.prefix, schema)
}

// ensureIndex creates the tenant's index with the product mappings if it does
// not exist yet.
func (e *ElasticIndex) ensureIndex(ctx context.Context, schema string) error {
	index := e.indexName(schema)

	resp, err := e.do(ctx, http.MethodHead, "/"+index, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: head index status %d", ErrSearchUnavailable, resp.StatusCode)
	}

	mappings := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"name":        map[string]any{"type": "text"},
				"description": map[string]any{"type": "text"},
				"price":       map[string]any{"type": "float"},
			},
		},
	}
	resp, err = e.do(ctx, http.MethodPut, "/"+index, mappings)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: create index status %d", ErrSearchUnavailable, resp.StatusCode)
	}
	return nil
}

// IndexProduct upserts the product document in the tenant's index.
func (e *ElasticIndex) IndexProduct(ctx context.Context, schema string, p *models.Product) error {
	if err := e.ensureIndex(ctx, schema); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexSync, err)
	}

	doc := map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
	}
	path := fmt.Sprintf("/%s/_doc/%s?refresh=true", e.indexName(schema), p.ID)
	resp, err := e.do(ctx, http.MethodPut, path, doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexSync, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: index document status %d", ErrIndexSync, resp.StatusCode)
	}
	return nil
}

// DeleteProduct removes the product document. A missing document is not an
// error; the index already reflects the deletion.
func (e *ElasticIndex) DeleteProduct(ctx context.Context, schema string, id uuid.UUID) error {
	path := fmt.Sprintf("/%s/_doc/%s?refresh=true", e.indexName(schema), id)
	resp, err := e.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexSync, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: delete document status %d", ErrIndexSync, resp.StatusCode)
	}
	return nil
}

// Search runs a relevance query against the tenant's index and returns the
// ranked product ids.
func (e *ElasticIndex) Search(ctx context.Context, schema, query string) ([]uuid.UUID, error) {
	if err := e.ensureIndex(ctx, schema); err != nil {
		return nil, err
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"name^2", "description"},
			},
		},
		"size":    searchSize,
		"_source": false,
	}
	path := fmt.Sprintf("/%s/_search", e.indexName(schema))
	resp, err := e.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search status %d", ErrSearchUnavailable, resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchUnavailable, err)
	}

	ids := make([]uuid.UUID, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *ElasticIndex) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return resp, nil
}

// --- Elasticsearch response types ---

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Compile-time check that ElasticIndex implements Index.
var _ Index = (*ElasticIndex)(nil)
