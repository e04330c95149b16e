package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/concierge/internal/db"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
func (s *Store) SearchKNN(
	ctx context.Context, index string, vector []float32, filter string, topK int,
) ([]db.VectorHit, error) {
	if index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	return s.knnSearch(ctx, index, "*", vector, filter, topK)
}

// SearchHybrid runs KNN restricted to documents matching a full-text
// prefilter; matches rank by vector distance.
func (s *Store) SearchHybrid(
	ctx context.Context, index, text string, vector []float32, filter string, topK int,
) ([]db.VectorHit, error) {
	if text == "" {
		return s.SearchKNN(ctx, index, vector, filter, topK)
	}
	prefilter := fmt.Sprintf("@caption:(%s)", escapeQuery(text))
	return s.knnSearch(ctx, index, prefilter, vector, filter, topK)
}

func (s *Store) knnSearch(
	ctx context.Context, index, base string, vector []float32, filter string, topK int,
) ([]db.VectorHit, error) {
	if filter != "" {
		if base == "*" {
			base = filter
		} else {
			base = fmt.Sprintf("(%s %s)", filter, base)
		}
	}
	queryStr := fmt.Sprintf("%s=>[KNN %d @vector $BLOB]", base, topK)

	args := []string{
		index, queryStr,
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"SORTBY", "__vector_score",
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

func parseKNNResult(raw []rueidis.RedisMessage) ([]db.VectorHit, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]db.VectorHit, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		hit := db.VectorHit{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if scoreStr, ok := hit.Fields["__vector_score"]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				hit.Distance = d
				hit.Score = max(0, 1.0-d) // cosine distance -> similarity, clamped to [0,1]
			}
			delete(hit.Fields, "__vector_score")
		}

		hits = append(hits, hit)
	}

	return hits, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	out := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, err := fields[i].ToString()
		if err != nil {
			continue
		}
		v, err := fields[i+1].ToString()
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out
}

// vectorToBytes encodes a float32 slice as little-endian bytes for FT.SEARCH PARAMS.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// escapeQuery escapes RediSearch query syntax characters in user text.
func escapeQuery(q string) string {
	var sb strings.Builder
	for _, r := range q {
		switch r {
		case ',', '.', '<', '>', '{', '}', '[', ']', '"', '\'', ':', ';',
			'!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '-', '+',
			'=', '~', '|', '/', '\\':
			sb.WriteRune('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
