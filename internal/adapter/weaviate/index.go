package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"articlerag/internal/pipeline"
	"articlerag/internal/query"
	"articlerag/internal/vector"
)

// Index is the Weaviate-backed vector index. It stores per-section embeddings
// with back-reference metadata and serves nearest-neighbor lookups.
type Index struct {
	client *weaviate.Client
}

func NewIndex(client *weaviate.Client) *Index {
	return &Index{client: client}
}

func (s *Index) AddChunk(ctx context.Context, chunk pipeline.Chunk) error {
	_, err := s.client.Data().Creator().
		WithClassName(vector.ClassName).
		WithProperties(map[string]interface{}{
			"text":       chunk.Text,
			"chunkKey":   chunk.Key,
			"documentId": chunk.DocumentID,
			"sourceUrl":  chunk.SourceURL,
		}).
		WithVector(chunk.Vector).
		Do(ctx)
	return err
}

// QueryNearest returns metadata for the topK chunks nearest to the vector,
// in rank order. Chunk text is not read here; the query engine resolves it
// against the document store.
func (s *Index) QueryNearest(ctx context.Context, vec []float32, topK int) ([]query.Hit, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vec)

	fields := []graphql.Field{
		{Name: "chunkKey"},
		{Name: "documentId"},
		{Name: "sourceUrl"},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var hits []query.Hit
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if chunks, ok := data[vector.ClassName].([]interface{}); ok {
			for _, c := range chunks {
				props, ok := c.(map[string]interface{})
				if !ok {
					continue
				}
				hit := query.Hit{}
				if key, ok := props["chunkKey"].(string); ok {
					hit.ChunkKey = key
				}
				if docID, ok := props["documentId"].(string); ok {
					hit.DocumentID = docID
				}
				if url, ok := props["sourceUrl"].(string); ok {
					hit.SourceURL = url
				}
				hits = append(hits, hit)
			}
		}
	}

	return hits, nil
}

// CountChunks returns the number of indexed vectors, used by /stats.
func (s *Index) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if classes, ok := data[vector.ClassName].([]interface{}); ok && len(classes) > 0 {
			if entry, ok := classes[0].(map[string]interface{}); ok {
				if meta, ok := entry["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}

	return 0, fmt.Errorf("unexpected aggregate response shape")
}
