// Package semantic owns all Qdrant operations for the catalog vector index.
// Each catalog version gets its own collection, so activating a version never
// mixes vectors across snapshots.
package semantic

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	prefix      string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
// prefix namespaces the per-version collections, e.g. "catalog".
func New(addr, prefix string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		prefix:      prefix,
	}, nil
}

// NewWithClients creates a VectorStore from pre-built clients. Used in tests.
func NewWithClients(points pb.PointsClient, collections pb.CollectionsClient, prefix string) *VectorStore {
	return &VectorStore{points: points, collections: collections, prefix: prefix}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// CollectionName returns the collection holding a catalog version's vectors.
func (v *VectorStore) CollectionName(version string) string {
	return v.prefix + "_" + version
}

// EnsureCollection creates the version's collection if it doesn't exist.
// Cosine distance, so scores come back as similarities.
func (v *VectorStore) EnsureCollection(ctx context.Context, version string, dims int) error {
	name := v.CollectionName(version)

	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return nil
		}
	}

	d := uint64(dims)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", name, err)
	}
	return nil
}

// DropCollection deletes a version's collection. Used when a catalog version
// is replaced wholesale.
func (v *VectorStore) DropCollection(ctx context.Context, version string) error {
	name := v.CollectionName(version)
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name})
	if err != nil {
		return fmt.Errorf("semantic: drop collection %s: %w", name, err)
	}
	return nil
}

// HasCollection reports whether a version's collection exists. The retriever
// treats a missing collection as catalog-unavailable.
func (v *VectorStore) HasCollection(ctx context.Context, version string) (bool, error) {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("semantic: list collections: %w", err)
	}
	name := v.CollectionName(version)
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

// Upsert stores catalog row vectors into the version's collection.
func (v *VectorStore) Upsert(ctx context.Context, version string, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: payloadValues(r.Payload),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.CollectionName(version),
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Search performs a filtered k-NN similarity search against a version's
// collection. minScore drops hits below the similarity threshold server-side;
// results come back ordered by similarity descending.
func (v *VectorStore) Search(ctx context.Context, version string, embedding []float32, limit int, minScore float32, f Filters) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: v.CollectionName(version),
		Vector:         embedding,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if minScore > 0 {
		req.ScoreThreshold = &minScore
	}
	if filter := buildFilter(f); filter != nil {
		req.Filter = filter
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = SearchResult{
			ID:      r.GetId().GetUuid(),
			Score:   r.GetScore(),
			Payload: payloadFromValues(r.GetPayload()),
		}
	}
	return results, nil
}

func buildFilter(f Filters) *pb.Filter {
	var must []*pb.Condition
	if f.Brand != "" {
		must = append(must, fieldMatch("brand", f.Brand))
	}
	if f.Body != "" {
		must = append(must, fieldMatch("body", f.Body))
	}
	if f.Use != "" {
		must = append(must, fieldMatch("use", f.Use))
	}
	if f.YearFrom != 0 || f.YearTo != 0 {
		r := &pb.Range{}
		if f.YearFrom != 0 {
			gte := float64(f.YearFrom)
			r.Gte = &gte
		}
		if f.YearTo != 0 {
			lte := float64(f.YearTo)
			r.Lte = &lte
		}
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{Key: "year", Range: r},
			},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func payloadValues(p Payload) map[string]*pb.Value {
	out := map[string]*pb.Value{
		"catalog_id": {Kind: &pb.Value_IntegerValue{IntegerValue: p.CatalogID}},
		"code":       {Kind: &pb.Value_StringValue{StringValue: p.Code}},
		"brand":      {Kind: &pb.Value_StringValue{StringValue: p.Brand}},
		"model":      {Kind: &pb.Value_StringValue{StringValue: p.Model}},
		"year":       {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.Year)}},
		"label":      {Kind: &pb.Value_StringValue{StringValue: p.Label}},
		"version":    {Kind: &pb.Value_StringValue{StringValue: p.Version}},
	}
	if p.Body != "" {
		out["body"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: p.Body}}
	}
	if p.Use != "" {
		out["use"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: p.Use}}
	}
	return out
}

func payloadFromValues(values map[string]*pb.Value) Payload {
	p := Payload{}
	for k, val := range values {
		switch k {
		case "catalog_id":
			p.CatalogID = val.GetIntegerValue()
		case "code":
			p.Code = val.GetStringValue()
		case "brand":
			p.Brand = val.GetStringValue()
		case "model":
			p.Model = val.GetStringValue()
		case "year":
			p.Year = int(val.GetIntegerValue())
		case "body":
			p.Body = val.GetStringValue()
		case "use":
			p.Use = val.GetStringValue()
		case "label":
			p.Label = val.GetStringValue()
		case "version":
			p.Version = val.GetStringValue()
		}
	}
	return p
}
