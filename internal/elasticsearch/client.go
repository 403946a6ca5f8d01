package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/veille/backend/internal/logger"
	"github.com/DeafMist/veille/backend/internal/store"
)

const (
	collectionSources   = "sources"
	collectionSummaries = "summaries"
	collectionArticles  = "articles"

	pageSize = 500
)

var _ store.Store = (*Client)(nil)

// Client wraps go-elasticsearch and stores every collection in its own index.
type Client struct {
	es     *elasticsearch.Client
	prefix string
	log    *slog.Logger
}

// New instantiates the Elasticsearch client. Index names are "<prefix>-<collection>".
func New(addr, prefix string, log *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Client{es: es, prefix: prefix, log: log}, nil
}

func (c *Client) index(collection string) string {
	return c.prefix + "-" + collection
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Health pings Elasticsearch to ensure connectivity.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}

// EnsureIndices creates any missing index with its mapping.
func (c *Client) EnsureIndices(ctx context.Context) error {
	for collection, mapping := range mappings {
		name := c.index(collection)

		res, err := esapi.IndicesExistsRequest{Index: []string{name}}.Do(ctx, c.es)
		if err != nil {
			return fmt.Errorf("check index %s: %w", name, err)
		}
		res.Body.Close()
		if res.StatusCode == http.StatusOK {
			continue
		}

		payload, err := json.Marshal(mapping)
		if err != nil {
			return fmt.Errorf("marshal mapping: %w", err)
		}

		res, err = esapi.IndicesCreateRequest{Index: name, Body: bytes.NewReader(payload)}.Do(ctx, c.es)
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		if err := checkResponse(res, "create index"); err != nil {
			// Another process may have created it in between.
			if !strings.Contains(err.Error(), "resource_already_exists_exception") {
				return err
			}
		}
		c.log.Info("created index", slog.String("index", name))
	}
	return nil
}

func (c *Client) put(ctx context.Context, collection, id string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index(collection),
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	return checkResponse(res, "index doc")
}

func (c *Client) get(ctx context.Context, collection, id string, out any) error {
	res, err := esapi.GetRequest{Index: c.index(collection), DocumentID: id}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("get doc: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return store.ErrNotFound
	}
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("get doc failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode get response: %w", err)
	}
	if !parsed.Found {
		return store.ErrNotFound
	}
	if err := json.Unmarshal(parsed.Source, out); err != nil {
		return fmt.Errorf("decode source: %w", err)
	}
	return nil
}

// patch applies a partial document update. A missing document yields store.ErrNotFound.
func (c *Client) patch(ctx context.Context, collection, id string, fields map[string]any) error {
	payload, err := json.Marshal(map[string]any{"doc": fields})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	req := esapi.UpdateRequest{
		Index:      c.index(collection),
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("update doc: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return store.ErrNotFound
	}
	return checkResponse(res, "update doc")
}

func (c *Client) remove(ctx context.Context, collection, id string) error {
	req := esapi.DeleteRequest{
		Index:      c.index(collection),
		DocumentID: id,
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("delete doc: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return store.ErrNotFound
	}
	return checkResponse(res, "delete doc")
}

func (c *Client) count(ctx context.Context, collection string, query map[string]any) (int64, error) {
	payload, err := json.Marshal(map[string]any{"query": query})
	if err != nil {
		return 0, fmt.Errorf("marshal count body: %w", err)
	}

	res, err := esapi.CountRequest{
		Index: []string{c.index(collection)},
		Body:  bytes.NewReader(payload),
	}.Do(ctx, c.es)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("count failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return parsed.Count, nil
}

// searchAll pages through every hit of query sorted by created_at desc using search_after.
func searchAll[T any](ctx context.Context, c *Client, collection string, query map[string]any) ([]T, error) {
	items := make([]T, 0)
	var after []any

	for {
		body := map[string]any{
			"size":  pageSize,
			"query": query,
			"sort": []map[string]any{
				{"created_at": map[string]any{"order": "desc"}},
				{"id": map[string]any{"order": "asc"}},
			},
		}
		if after != nil {
			body["search_after"] = after
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal search body: %w", err)
		}

		res, err := c.es.Search(
			c.es.Search.WithContext(ctx),
			c.es.Search.WithIndex(c.index(collection)),
			c.es.Search.WithBody(bytes.NewReader(payload)),
		)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}

		if res.IsError() {
			data, _ := io.ReadAll(res.Body)
			res.Body.Close()
			return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
		}

		var parsed struct {
			Hits struct {
				Hits []struct {
					Source T     `json:"_source"`
					Sort   []any `json:"sort"`
				} `json:"hits"`
			} `json:"hits"`
		}
		err = json.NewDecoder(res.Body).Decode(&parsed)
		res.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}

		for _, hit := range parsed.Hits.Hits {
			items = append(items, hit.Source)
		}

		hits := parsed.Hits.Hits
		if len(hits) < pageSize {
			return items, nil
		}
		after = hits[len(hits)-1].Sort
	}
}

// terms returns the distinct values of field across collections, sorted by key.
func (c *Client) terms(ctx context.Context, field string, collections ...string) ([]string, error) {
	indices := make([]string, 0, len(collections))
	for _, col := range collections {
		indices = append(indices, c.index(col))
	}

	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"values": map[string]any{
				"terms": map[string]any{
					"field": field,
					"size":  10_000,
					"order": map[string]any{"_key": "asc"},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal aggregation body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indices...),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", field, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("aggregate %s failed: %s", field, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Aggregations struct {
			Values struct {
				Buckets []struct {
					Key string `json:"key"`
				} `json:"buckets"`
			} `json:"values"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode aggregation response: %w", err)
	}

	out := make([]string, 0, len(parsed.Aggregations.Values.Buckets))
	for _, b := range parsed.Aggregations.Values.Buckets {
		if b.Key != "" {
			out = append(out, b.Key)
		}
	}
	return out, nil
}

func checkResponse(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s failed: %s", op, strings.TrimSpace(string(body)))
	}
	return nil
}

func matchAll() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}

func filtered(filters []map[string]any) map[string]any {
	if len(filters) == 0 {
		return matchAll()
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

func term(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}
