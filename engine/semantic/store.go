package semantic

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/ailegalmate/legalmate/engine/domain"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// pointsAPI is the subset of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
}

// collectionsAPI is the subset of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	policy      ConflictPolicy
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr, collection string, policy ConflictPolicy) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		policy:      policy,
	}, nil
}

// NewWithClients builds a VectorStore over already-constructed clients.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, policy ConflictPolicy) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection, policy: policy}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores one vector under id with its metadata. The original id is
// kept in the payload under KeyDocID.
func (v *VectorStore) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	pid := &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(id)}}

	if v.policy == Reject {
		got, err := v.points.Get(ctx, &pb.GetPoints{
			CollectionName: v.collection,
			Ids:            []*pb.PointId{pid},
		})
		if err != nil {
			return fmt.Errorf("semantic: get %s: %w", id, err)
		}
		if len(got.GetResult()) > 0 {
			return fmt.Errorf("semantic: upsert %s: %w", id, domain.ErrDuplicateID)
		}
	}

	payload := make(map[string]*pb.Value, len(metadata)+1)
	for k, val := range metadata {
		payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: val}}
	}
	payload[KeyDocID] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: id}}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: pid,
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vector},
				},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %s: %w", id, err)
	}
	return nil
}

// Query returns up to topK matches ordered by descending cosine score.
// Negative scores are excluded.
func (v *VectorStore) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	threshold := float32(0)
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		ScoreThreshold: &threshold,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	matches := make([]domain.Match, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		if r.GetScore() < 0 {
			continue
		}
		m := domain.Match{
			ID:       r.GetId().GetUuid(),
			Score:    r.GetScore(),
			Metadata: make(map[string]string),
		}
		for k, val := range r.GetPayload() {
			s := valueString(val)
			switch k {
			case KeyText:
				m.SourceText = s
			case KeyDocID:
				m.ID = s
			default:
				m.Metadata[k] = s
			}
		}
		matches = append(matches, m)
	}
	// Qdrant already sorts; stable re-sort keeps its tie order.
	slices.SortStableFunc(matches, func(a, b domain.Match) int { return cmp.Compare(b.Score, a.Score) })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func valueString(v *pb.Value) string {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return strconv.FormatInt(k.IntegerValue, 10)
	case *pb.Value_DoubleValue:
		return strconv.FormatFloat(k.DoubleValue, 'f', -1, 64)
	case *pb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	default:
		return ""
	}
}
