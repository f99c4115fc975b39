// Package search provides the Redis-backed vector index used to find
// the nearest previously classified event.
package search

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Config configures the Redis vector index.
type Config struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// IndexName is the RediSearch index over event vectors.
	IndexName string

	// Prefix is prepended to all vector document keys.
	Prefix string

	// Timeout for Redis operations
	Timeout time.Duration

	// PoolSize is the maximum number of connections
	PoolSize int

	// MinIdleConns is the minimum number of idle connections
	MinIdleConns int

	// MinScore rejects matches below this similarity (0 accepts all).
	MinScore float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(address string) Config {
	return Config{
		Address:      address,
		IndexName:    "event-vectors",
		Prefix:       "schedflow:events:",
		Timeout:      5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// Index implements interfaces.VectorIndex on RediSearch.
type Index struct {
	cfg    Config
	client *redis.Client
}

var _ interfaces.VectorIndex = (*Index)(nil)

// New creates a Redis-backed vector index and verifies connectivity.
func New(cfg Config) (*Index, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Index{cfg: cfg, client: client}, nil
}

// Close releases the connection pool.
func (i *Index) Close() error { return i.client.Close() }

// NearestNeighbor runs a KNN-1 search scoped to the user's documents.
// Returns (nil, nil) when the user has no indexed events or the best
// match falls below the score floor.
func (i *Index) NearestNeighbor(ctx context.Context, userID string, vector []float32) (*interfaces.SearchHit, error) {
	query := fmt.Sprintf("(@userId:{%s})=>[KNN 1 @vector $vec AS dist]", escapeTag(userID))
	res, err := i.client.Do(ctx,
		"FT.SEARCH", i.cfg.IndexName, query,
		"PARAMS", "2", "vec", encodeVector(vector),
		"RETURN", "1", "dist",
		"SORTBY", "dist",
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hit, dist, ok := parseKNNReply(res)
	if !ok {
		return nil, nil
	}
	// Cosine distance: similarity = 1 - distance.
	score := 1 - dist
	if i.cfg.MinScore > 0 && score < i.cfg.MinScore {
		return nil, nil
	}
	return &interfaces.SearchHit{ID: i.stripPrefix(hit), Score: score}, nil
}

// Upsert stores an event vector document for future searches.
func (i *Index) Upsert(ctx context.Context, id, userID string, vector []float32) error {
	key := i.cfg.Prefix + id
	if err := i.client.HSet(ctx, key,
		"userId", userID,
		"vector", encodeVector(vector),
	).Err(); err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}
	return nil
}

// Delete evicts an index entry.
func (i *Index) Delete(ctx context.Context, id string) error {
	if err := i.client.Del(ctx, i.cfg.Prefix+id).Err(); err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}
	return nil
}

func (i *Index) stripPrefix(key string) string {
	if len(key) > len(i.cfg.Prefix) && key[:len(i.cfg.Prefix)] == i.cfg.Prefix {
		return key[len(i.cfg.Prefix):]
	}
	return key
}

// encodeVector serializes float32s little-endian, the layout RediSearch
// expects for FLOAT32 vector fields.
func encodeVector(vector []float32) string {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return string(buf)
}

// parseKNNReply extracts the first document key and its distance from
// an FT.SEARCH RESP reply. Handles both RESP2 array and RESP3 map
// shapes.
func parseKNNReply(res interface{}) (key string, dist float64, ok bool) {
	switch reply := res.(type) {
	case []interface{}:
		// RESP2: [count, key1, [field, value, ...], ...]
		if len(reply) < 3 {
			return "", 0, false
		}
		key, _ = reply[1].(string)
		fields, _ := reply[2].([]interface{})
		for j := 0; j+1 < len(fields); j += 2 {
			if name, _ := fields[j].(string); name == "dist" {
				if s, sok := fields[j+1].(string); sok {
					dist, _ = strconv.ParseFloat(s, 64)
				}
			}
		}
		return key, dist, key != ""
	case map[interface{}]interface{}:
		// RESP3: {"total_results": n, "results": [{"id": ..., "extra_attributes": {...}}]}
		results, _ := reply["results"].([]interface{})
		if len(results) == 0 {
			return "", 0, false
		}
		doc, _ := results[0].(map[interface{}]interface{})
		key, _ = doc["id"].(string)
		if attrs, aok := doc["extra_attributes"].(map[interface{}]interface{}); aok {
			if s, sok := attrs["dist"].(string); sok {
				dist, _ = strconv.ParseFloat(s, 64)
			}
		}
		return key, dist, key != ""
	}
	return "", 0, false
}

// escapeTag escapes RediSearch tag-field separators in user ids.
func escapeTag(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '-', '.', '@', ':', '{', '}', '|', ' ':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
