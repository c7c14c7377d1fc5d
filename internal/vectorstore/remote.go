package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Remote is the remote VectorStore backend (spec §4.B "remote"): Qdrant over
// gRPC via github.com/qdrant/go-client.
type Remote struct {
	client *qdrant.Client
	log    *zap.Logger
	mu     sync.RWMutex
	dims   map[string]int
}

// NewRemote dials a Qdrant instance at addr (host:port, no scheme).
func NewRemote(addr string, log *zap.Logger) (*Remote, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: addr,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(32 * 1024 * 1024),
				grpc.MaxCallSendMsgSize(32 * 1024 * 1024),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dial qdrant at %s: %w", addr, err)
	}
	return &Remote{client: client, log: log, dims: map[string]int{}}, nil
}

func (r *Remote) EnsureCollection(ctx context.Context, collection string, dim int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.dims[collection]; ok {
		if existing != dim {
			return ErrDimMismatch
		}
		return nil
	}
	exists, err := r.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("vectorstore: check collection %s: %w", collection, err)
	}
	if !exists {
		if err := r.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("vectorstore: create collection %s: %w", collection, err)
		}
	}
	r.dims[collection] = dim
	return nil
}

func (r *Remote) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	out := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := map[string]*qdrant.Value{
			"text": {Kind: &qdrant.Value_StringValue{StringValue: p.Text}},
		}
		for k, v := range p.Metadata {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}
		out[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}
	_, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         out,
	})
	if err != nil {
		return fmt.Errorf("vectorstore: upsert into %s: %w", collection, err)
	}
	return nil
}

func (r *Remote) Search(ctx context.Context, collection string, query []float32, k int) ([]SearchHit, error) {
	res, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search %s: %w", collection, err)
	}
	hits := make([]SearchHit, len(res))
	for i, sp := range res {
		meta := map[string]string{}
		var text string
		for k, v := range sp.GetPayload() {
			if sv, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				if k == "text" {
					text = sv.StringValue
				} else {
					meta[k] = sv.StringValue
				}
			}
		}
		hits[i] = SearchHit{ID: sp.GetId().GetUuid(), Score: sp.GetScore(), Text: text, Metadata: meta}
	}
	return hits, nil
}

func (r *Remote) DeleteByFilter(ctx context.Context, collection string, filter map[string]string) error {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   k,
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}},
				},
			},
		})
	}
	_, err := r.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{Must: conditions},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete by filter in %s: %w", collection, err)
	}
	return nil
}

func (r *Remote) DeleteCollection(ctx context.Context, collection string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("vectorstore: delete collection %s: %w", collection, err)
	}
	delete(r.dims, collection)
	return nil
}

func (r *Remote) Count(ctx context.Context, collection string) (int, error) {
	n, err := r.client.Count(ctx, &qdrant.CountPoints{CollectionName: collection})
	if err != nil {
		return 0, fmt.Errorf("vectorstore: count %s: %w", collection, err)
	}
	return int(n), nil
}

func (r *Remote) Health(ctx context.Context) Health {
	_, err := r.client.HealthCheck(ctx)
	if err != nil {
		return Health{Reachable: false, Backend: "remote", Detail: err.Error()}
	}
	return Health{Reachable: true, Backend: "remote"}
}

func (r *Remote) Close() error {
	return r.client.Close()
}
