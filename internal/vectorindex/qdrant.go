package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/news-rag/internal/rag"
)

// ErrQdrantUnreachable is returned when the Qdrant server does not answer
// health checks within the retry window.
var ErrQdrantUnreachable = errors.New("qdrant server unreachable")

// upsertBatchSize is the number of points sent per upsert request.
const upsertBatchSize = 100

// QdrantIndex stores fragments in a Qdrant collection owned by one session.
// Point ids are the fragment handles, so results map back without a lookup.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	upsert     func(ctx context.Context, points []*qdrant.PointStruct) error

	mu      sync.RWMutex
	created bool
	built   bool
	dim     int
	count   int
}

// NewQdrantIndex connects to Qdrant and waits for it to report healthy.
// The collection is created by Build and dropped by Close.
func NewQdrantIndex(ctx context.Context, host string, port int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: "fragments_" + uuid.NewString(),
	}
	idx.upsert = idx.upsertWithRetry

	if err := backoff.Retry(func() error { return idx.Health(ctx) }, newBackoff(ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return idx, nil
}

// newBackoff returns the retry policy used for Qdrant calls:
// 500ms initial interval, 10s max interval, 30s max elapsed.
func newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// Health performs a single health check against Qdrant.
func (q *QdrantIndex) Health(ctx context.Context) error {
	result, err := q.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Collection returns the name of the session collection.
func (q *QdrantIndex) Collection() string {
	return q.collection
}

// Build creates the collection and upserts all entries in batches.
func (q *QdrantIndex) Build(ctx context.Context, entries []Entry) error {
	dim, err := validateEntries(entries)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.built {
		return rag.ErrIndexAlreadyBuilt
	}
	if q.created {
		// A failed Build leaves a partial collection behind
		if err := q.dropCollection(); err != nil {
			return err
		}
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	q.created = true

	for start := 0; start < len(entries); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(entries))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for h := start; h < end; h++ {
			points = append(points, toPoint(uint64(h), entries[h]))
		}

		if err := q.upsert(ctx, points); err != nil {
			err = fmt.Errorf("failed to upsert batch %d-%d: %w", start, end, err)
			return errors.Join(err, q.dropCollection())
		}
	}

	q.dim = dim
	q.count = len(entries)
	q.built = true
	return nil
}

func (q *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	return backoff.Retry(func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}, newBackoff(ctx))
}

// Query searches the collection. Qdrant returns cosine scores; ordering
// among equal scores is re-established by handle.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, k int) (rag.RetrievalResult, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.built {
		return nil, rag.ErrIndexNotBuilt
	}
	if err := validateQuery(vector, k, q.dim); err != nil {
		return nil, err
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}

	results := make(rag.RetrievalResult, 0, len(points))
	for _, p := range points {
		results = append(results, fromPoint(p))
	}
	return rank(results, k), nil
}

// Remove deletes the point with the given handle.
func (q *QdrantIndex) Remove(ctx context.Context, handle uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.built {
		return rag.ErrIndexNotBuilt
	}
	if handle >= uint64(q.count) {
		return fmt.Errorf("unknown handle %d", handle)
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewIDNum(handle)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point %d: %w", handle, err)
	}
	q.count--
	return nil
}

// Len returns the number of points upserted by Build less removals.
func (q *QdrantIndex) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.count
}

// Dimension returns the collection vector size.
func (q *QdrantIndex) Dimension() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.dim
}

// Close drops the session collection and closes the connection.
func (q *QdrantIndex) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var errs []error
	if q.created {
		errs = append(errs, q.dropCollection())
	}
	q.built = false
	if err := q.client.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Created reports whether the session collection currently exists.
func (q *QdrantIndex) Created() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.created
}

// dropCollection deletes the session collection. It runs on a fresh context
// so cleanup still happens when the caller's context is done. Callers hold q.mu.
func (q *QdrantIndex) dropCollection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	q.created = false
	return nil
}

func toPoint(handle uint64, e Entry) *qdrant.PointStruct {
	meta := make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		meta[k] = v
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(handle),
		Vectors: qdrant.NewVectors(e.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"source_id": e.Fragment.SourceID,
			"index":     int64(e.Fragment.Index),
			"offset":    int64(e.Fragment.Offset),
			"section":   e.Fragment.Section,
			"text":      e.Fragment.Text,
			"metadata":  meta,
		}),
	}
}

func fromPoint(p *qdrant.ScoredPoint) rag.ScoredFragment {
	payload := p.Payload

	var meta map[string]string
	if s := payload["metadata"].GetStructValue(); s != nil && len(s.Fields) > 0 {
		meta = make(map[string]string, len(s.Fields))
		for k, v := range s.Fields {
			meta[k] = v.GetStringValue()
		}
	}

	return rag.ScoredFragment{
		Handle: p.Id.GetNum(),
		Fragment: rag.Fragment{
			SourceID: payload["source_id"].GetStringValue(),
			Index:    int(payload["index"].GetIntegerValue()),
			Offset:   int(payload["offset"].GetIntegerValue()),
			Section:  payload["section"].GetStringValue(),
			Text:     payload["text"].GetStringValue(),
		},
		Metadata: meta,
		Score:    float64(p.Score),
	}
}
