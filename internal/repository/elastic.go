package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/hungpv1995/blog-api/internal/models"
)

const (
	defaultElasticIndex    = "posts"
	defaultElasticPageSize = 1000
)

const postsMapping = `{
	"mappings": {
		"properties": {
			"id": {"type": "keyword"},
			"title": {"type": "text"},
			"content": {"type": "text"},
			"author": {
				"properties": {
					"firstName": {"type": "keyword"},
					"lastName": {"type": "keyword"}
				}
			},
			"created": {"type": "date"}
		}
	}
}`

// ElasticPostStore keeps posts as documents in an Elasticsearch index
type ElasticPostStore struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
}

func NewElasticPostStore(client *elasticsearch.Client, index string) *ElasticPostStore {
	if index == "" {
		index = defaultElasticIndex
	}
	return &ElasticPostStore{client: client, index: index, pageSize: defaultElasticPageSize}
}

// OpenElastic connects to the cluster in rawURL; the URL path names the index
func OpenElastic(ctx context.Context, rawURL string) (*ElasticPostStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid elasticsearch url: %w", err)
	}

	cfg := elasticsearch.Config{
		Addresses: []string{u.Scheme + "://" + u.Host},
	}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	es := NewElasticPostStore(client, strings.Trim(u.Path, "/"))
	if err := es.Ping(ctx); err != nil {
		return nil, err
	}
	if err := es.CreateIndex(ctx); err != nil {
		return nil, err
	}
	return es, nil
}

// CreateIndex creates the posts index with proper mapping
func (es *ElasticPostStore) CreateIndex(ctx context.Context) error {
	req := esapi.IndicesCreateRequest{
		Index: es.index,
		Body:  strings.NewReader(postsMapping),
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("%w: failed to create index: %w", ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// Create indexes a new post
func (es *ElasticPostStore) Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	newPost := prepareNew(*post, "")
	if err := es.indexPost(ctx, &newPost); err != nil {
		return nil, err
	}
	return &newPost, nil
}

// InsertMany indexes posts one by one and stops at the first failure
func (es *ElasticPostStore) InsertMany(ctx context.Context, posts []models.BlogPost) ([]models.BlogPost, error) {
	created := make([]models.BlogPost, 0, len(posts))
	for _, p := range posts {
		newPost := prepareNew(p, "")
		if err := es.indexPost(ctx, &newPost); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		created = append(created, newPost)
	}
	return created, nil
}

func (es *ElasticPostStore) indexPost(ctx context.Context, post *models.BlogPost) error {
	docJSON, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      es.index,
		DocumentID: post.ID,
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}
	return nil
}

// FindAll returns every post, oldest first. Pages are walked with
// search_after on the (created, id) sort until a short page comes back.
func (es *ElasticPostStore) FindAll(ctx context.Context) ([]models.BlogPost, error) {
	posts := []models.BlogPost{}
	var after []json.RawMessage
	for {
		query := map[string]any{
			"query": map[string]any{"match_all": map[string]any{}},
			"size":  es.pageSize,
			"sort": []map[string]any{
				{"created": "asc"},
				{"id": "asc"},
			},
		}
		if after != nil {
			query["search_after"] = after
		}

		hits, err := es.search(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			posts = append(posts, hit.Source)
			after = hit.Sort
		}
		if len(hits) < es.pageSize {
			return posts, nil
		}
	}
}

// FindOne returns an arbitrary post
func (es *ElasticPostStore) FindOne(ctx context.Context) (*models.BlogPost, error) {
	hits, err := es.search(ctx, map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"size":  1,
	})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, ErrPostNotFound
	}
	return &hits[0].Source, nil
}

type searchHit struct {
	Source models.BlogPost   `json:"_source"`
	Sort   []json.RawMessage `json:"sort"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

func (es *ElasticPostStore) search(ctx context.Context, query map[string]any) ([]searchHit, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := es.client.Search(
		es.client.Search.WithContext(ctx),
		es.client.Search.WithIndex(es.index),
		es.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var result searchResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Hits.Hits, nil
}

// FindByID fetches a document by id
func (es *ElasticPostStore) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	req := esapi.GetRequest{
		Index:      es.index,
		DocumentID: id,
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrPostNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("error getting post: %s", res.String())
	}

	var doc struct {
		Found  bool            `json:"found"`
		Source models.BlogPost `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !doc.Found {
		return nil, ErrPostNotFound
	}
	return &doc.Source, nil
}

// Update applies a partial document update
func (es *ElasticPostStore) Update(ctx context.Context, id string, update models.PostUpdate) error {
	if update.IsEmpty() {
		_, err := es.FindByID(ctx, id)
		return err
	}

	doc := map[string]any{}
	if update.Title != nil {
		doc["title"] = *update.Title
	}
	if update.Content != nil {
		doc["content"] = *update.Content
	}
	if update.Author != nil {
		doc["author"] = update.Author
	}

	body, err := json.Marshal(map[string]any{"doc": doc})
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	req := esapi.UpdateRequest{
		Index:      es.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	return es.doWrite(ctx, req, "update")
}

// Delete removes a document by id
func (es *ElasticPostStore) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{
		Index:      es.index,
		DocumentID: id,
		Refresh:    "true",
	}
	return es.doWrite(ctx, req, "delete")
}

func (es *ElasticPostStore) doWrite(ctx context.Context, req esapi.Request, action string) error {
	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to %s post: %w", action, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrPostNotFound
	}
	if res.IsError() {
		return fmt.Errorf("error during %s: %s", action, res.String())
	}
	return nil
}

// Count returns the number of documents in the index
func (es *ElasticPostStore) Count(ctx context.Context) (int64, error) {
	req := esapi.CountRequest{
		Index: []string{es.index},
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count error: %s", res.String())
	}

	var result struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Count, nil
}

// DropDatabase deletes the index and recreates it empty
func (es *ElasticPostStore) DropDatabase(ctx context.Context) error {
	req := esapi.IndicesDeleteRequest{
		Index: []string{es.index},
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		defer res.Body.Close()
		return fmt.Errorf("error deleting index: %s", res.String())
	}
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()

	return es.CreateIndex(ctx)
}

// Ping checks that the cluster answers
func (es *ElasticPostStore) Ping(ctx context.Context) error {
	res, err := es.client.Info(es.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, res.String())
	}
	return nil
}

// Close is a no-op; the HTTP transport holds no dedicated resources
func (es *ElasticPostStore) Close(_ context.Context) error {
	return nil
}
