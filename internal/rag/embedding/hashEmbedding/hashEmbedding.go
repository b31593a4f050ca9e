// Package hashEmbedding is a local, deterministic embedder based on signed
// feature hashing of word unigrams and bigrams. It needs no corpus preparation
// and no network, so ingestion and queries produce comparable vectors offline.
package hashEmbedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/rag/embedding"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

type client struct {
	dimension int
	stopwords map[string]struct{}
}

func NewHashEmbedder(dimension int) embedding.Embedder {
	if dimension <= 0 {
		dimension = config.HashingEmbeddingDimension
	}
	return &client{dimension: dimension, stopwords: defaultStopwords()}
}

func (c *client) ModelName() string {
	return fmt.Sprintf("%s-%d", config.EmbeddingHashingModelPrefix, c.dimension)
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.embed(query)
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := c.embed(chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (c *client) embed(text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyInput
	}
	vec := make([]float64, c.dimension)
	tokens := c.tokenize(text)
	for i, tok := range tokens {
		c.add(vec, tok, 1.0)
		if i > 0 {
			c.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, c.dimension)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (c *client) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(c.dimension))
	// top bit picks the sign so collisions tend to cancel out
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func (c *client) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := c.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as",
		"is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "so", "such",
		"into", "about", "than", "can", "will", "just", "should", "now", "what", "how", "who", "do", "does",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
