package qdrantDB

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/rag/vectorDB"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// payload keys
const (
	keyEntryId  = "entry_id"
	keyDocument = "document"
	keyMetadata = "metadata"

	keyEmbeddingModel = "embedding_model"
	keyCreatedAt      = "created_at"
)

type Store struct {
	client *qdrant.Client
	logger *logger_i.Logger
}

func NewStore(host string, port int, apiKey string) (*Store, error) {
	if host == "" {
		host = config.QdrantHost
	}
	if port == 0 {
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		APIKey:   apiKey,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}

	log := logger_i.NewLogger("Qdrant")
	log.Info("Qdrant client created", "host", host, "port", port)
	return &Store{client: client, logger: log}, nil
}

func (db *Store) Close() error {
	db.logger.Info("Shutting down Qdrant")
	return db.client.Close()
}

func (db *Store) EnsureCollection(ctx context.Context, spec commonModels.CollectionSpec) (commonModels.CollectionSpec, error) {
	if spec.Name == "" {
		return commonModels.CollectionSpec{}, errors.New("empty collection name")
	}
	if spec.Dimension <= 0 {
		return commonModels.CollectionSpec{}, fmt.Errorf("collection %q needs a vector dimension", spec.Name)
	}

	existing, err := db.GetCollection(ctx, spec.Name)
	if err == nil {
		return existing, vectorDB.CheckModel(existing, spec.EmbeddingModel, spec.Dimension)
	}
	if !errors.Is(err, vectorDB.ErrCollectionNotFound) {
		return commonModels.CollectionSpec{}, err
	}

	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = time.Now().UTC()
	}
	err = db.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
		Metadata: qdrant.NewValueMap(map[string]any{
			keyEmbeddingModel: spec.EmbeddingModel,
			keyCreatedAt:      spec.CreatedAt.Unix(),
		}),
	})
	if err != nil {
		return commonModels.CollectionSpec{}, fmt.Errorf("creating collection %q: %w", spec.Name, err)
	}
	db.logger.Info("collection created", "collection", spec.Name, "dimension", spec.Dimension)
	return spec, nil
}

func (db *Store) GetCollection(ctx context.Context, name string) (commonModels.CollectionSpec, error) {
	exists, err := db.client.CollectionExists(ctx, name)
	if err != nil {
		return commonModels.CollectionSpec{}, fmt.Errorf("checking collection %q: %w", name, err)
	}
	if !exists {
		return commonModels.CollectionSpec{}, fmt.Errorf("%q: %w", name, vectorDB.ErrCollectionNotFound)
	}

	info, err := db.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return commonModels.CollectionSpec{}, fmt.Errorf("reading collection %q: %w", name, err)
	}
	cfg := info.GetConfig()
	meta := cfg.GetMetadata()
	return commonModels.CollectionSpec{
		Name:           name,
		Dimension:      int(cfg.GetParams().GetVectorsConfig().GetParams().GetSize()),
		EmbeddingModel: meta[keyEmbeddingModel].GetStringValue(),
		CreatedAt:      time.Unix(meta[keyCreatedAt].GetIntegerValue(), 0).UTC(),
	}, nil
}

func (db *Store) Upsert(ctx context.Context, collection string, entries []commonModels.CollectionEntry) error {
	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		p, err := toPoint(e)
		if err != nil {
			return err
		}
		points = append(points, p)
	}

	_, err := db.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *Store) Query(ctx context.Context, collection string, vector []float32, k int) (commonModels.QueryResult, error) {
	loggr := db.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	if _, err := db.GetCollection(ctx, collection); err != nil {
		return commonModels.QueryResult{}, err
	}
	if k <= 0 {
		return commonModels.QueryResult{}, nil
	}

	hits, err := db.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return commonModels.QueryResult{}, err
	}

	result := commonModels.QueryResult{Matches: make([]commonModels.QueryMatch, 0, len(hits))}
	for _, hit := range hits {
		m, err := fromScoredPoint(hit)
		if err != nil {
			return commonModels.QueryResult{}, err
		}
		result.Matches = append(result.Matches, m)
	}
	loggr.Debug("Found matches", "count", len(result.Matches))
	return result, nil
}

func (db *Store) Count(ctx context.Context, collection string) (int, error) {
	if _, err := db.GetCollection(ctx, collection); err != nil {
		return 0, err
	}
	n, err := db.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", collection, err)
	}
	return int(n), nil
}

// pointId keeps positional ids numeric; anything else must be a UUID.
func pointId(id string) (*qdrant.PointId, error) {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return qdrant.NewIDNum(n), nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("qdrant point id %q is neither a number nor a uuid", id)
	}
	return qdrant.NewID(id), nil
}

func toPoint(e commonModels.CollectionEntry) (*qdrant.PointStruct, error) {
	id, err := pointId(e.Id)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("entry %s metadata: %w", e.Id, err)
	}
	payload, err := qdrant.TryValueMap(map[string]any{
		keyEntryId:  e.Id,
		keyDocument: e.Text,
		keyMetadata: string(meta),
	})
	if err != nil {
		return nil, fmt.Errorf("entry %s payload: %w", e.Id, err)
	}
	return &qdrant.PointStruct{
		Id:      id,
		Vectors: qdrant.NewVectors(e.Embedding...),
		Payload: payload,
	}, nil
}

func fromScoredPoint(hit *qdrant.ScoredPoint) (commonModels.QueryMatch, error) {
	payload := hit.GetPayload()
	entry := commonModels.CollectionEntry{
		Id:   payload[keyEntryId].GetStringValue(),
		Text: payload[keyDocument].GetStringValue(),
	}
	if raw := payload[keyMetadata].GetStringValue(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.Metadata); err != nil {
			return commonModels.QueryMatch{}, fmt.Errorf("entry %s metadata: %w", entry.Id, err)
		}
	}
	// cosine collections score by similarity
	return commonModels.QueryMatch{Entry: entry, Distance: 1 - hit.GetScore()}, nil
}
