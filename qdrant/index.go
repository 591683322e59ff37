// Package qdrant implements siterag.VectorIndex on a Qdrant collection over
// gRPC. All namespaces share one collection and are separated by a keyword
// payload field.
package qdrant

import (
	"context"
	"crypto/tls"
	"sort"
	"sync"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "siterag"

// Payload keys stored on every point.
const (
	keyNamespace  = "namespace"
	keyChunkID    = "chunk_id"
	keySeq        = "seq"
	keyURL        = "url"
	keyDomain     = "domain"
	keyTitle      = "title"
	keyChunkIndex = "chunk_index"
	keyText       = "text"
)

// pointSpace is the UUID namespace point IDs are derived in.
var pointSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("siterag/qdrant"))

// PointID returns the Qdrant point ID of chunkID in namespace.
func PointID(namespace, chunkID string) string {
	return uuid.NewSHA1(pointSpace, []byte(namespace+"/"+chunkID)).String()
}

// Dial connects to a Qdrant gRPC endpoint. A non-empty apiKey switches the
// connection to TLS and sends the key with every call.
func Dial(addr, apiKey string) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if apiKey != "" {
		opts = []grpc.DialOption{
			grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})),
			grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
				return invoker(metadata.AppendToOutgoingContext(ctx, "api-key", apiKey), method, req, reply, cc, opts...)
			}),
		}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, siterag.Errorf(siterag.EINVALID, "qdrant address %q: %v", addr, err)
	}
	return conn, nil
}

// Compile-time interface verification.
var _ siterag.VectorIndex = (*Index)(nil)

// Index implements siterag.VectorIndex on one Qdrant collection.
type Index struct {
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimensions  int
	batchSize   int

	mu      sync.Mutex
	lastSeq int64
}

// Option configures an Index.
type Option func(*Index)

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(ix *Index) {
		if name != "" {
			ix.collection = name
		}
	}
}

// WithBatchSize sets the number of points sent per upsert request.
func WithBatchSize(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// NewIndex creates an Index over conn for vectors of the given
// dimensionality. Call EnsureCollection before first use.
func NewIndex(conn grpc.ClientConnInterface, dimensions int, opts ...Option) *Index {
	ix := &Index{
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  DefaultCollection,
		dimensions:  dimensions,
		batchSize:   siterag.DefaultUpsertBatchSize,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Dimensions returns the fixed vector dimensionality of the index.
func (ix *Index) Dimensions() int {
	return ix.dimensions
}

// Collection returns the collection name.
func (ix *Index) Collection() string {
	return ix.collection
}

// EnsureCollection creates the collection with cosine distance and a keyword
// index on the namespace field. An existing collection must have the index's
// dimensionality, otherwise EINVALID is returned.
func (ix *Index) EnsureCollection(ctx context.Context) error {
	exists, err := ix.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: ix.collection})
	if err != nil {
		return classify(err, "check collection")
	}

	if exists.GetResult().GetExists() {
		info, err := ix.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: ix.collection})
		if err != nil {
			return classify(err, "get collection")
		}
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if int(size) != ix.dimensions {
			return siterag.Errorf(siterag.EINVALID, "collection %s has dimension %d, index dimension is %d", ix.collection, size, ix.dimensions)
		}
		return nil
	}

	if _, err := ix.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: ix.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(ix.dimensions),
			Distance: pb.Distance_Cosine,
		}}},
	}); err != nil {
		return classify(err, "create collection")
	}

	wait := true
	if _, err := ix.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
		CollectionName: ix.collection,
		Wait:           &wait,
		FieldName:      keyNamespace,
		FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
	}); err != nil {
		return classify(err, "create namespace index")
	}
	return nil
}

// Upsert stores vectors under namespace in batches. Replacing an existing
// chunk keeps its original sequence number so ties stay in insertion order.
func (ix *Index) Upsert(ctx context.Context, namespace string, vectors []*siterag.EmbeddedVector) (int, error) {
	if err := siterag.ValidateNamespace(namespace, false); err != nil {
		return 0, err
	}
	for _, v := range vectors {
		if v.ID == "" {
			return 0, siterag.Errorf(siterag.EINVALID, "vector ID required")
		}
		if len(v.Values) != ix.dimensions {
			return 0, siterag.Errorf(siterag.EINVALID, "vector %s has %d dimensions, index has %d", v.ID, len(v.Values), ix.dimensions)
		}
	}

	committed := 0
	for start := 0; start < len(vectors); start += ix.batchSize {
		batch := vectors[start:min(start+ix.batchSize, len(vectors))]
		if err := ix.upsertBatch(ctx, namespace, batch); err != nil {
			return committed, err
		}
		committed += len(batch)
	}
	return committed, nil
}

func (ix *Index) upsertBatch(ctx context.Context, namespace string, batch []*siterag.EmbeddedVector) error {
	ids := make([]*pb.PointId, len(batch))
	for i, v := range batch {
		ids[i] = uuidPointID(PointID(namespace, v.ID))
	}
	seqs, err := ix.existingSeqs(ctx, ids)
	if err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(batch))
	for i, v := range batch {
		id := ids[i].GetUuid()
		seq, ok := seqs[id]
		if !ok {
			seq = ix.nextSeq()
		}
		points[i] = &pb.PointStruct{
			Id:      ids[i],
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: v.Values}}},
			Payload: map[string]*pb.Value{
				keyNamespace:  stringValue(namespace),
				keyChunkID:    stringValue(v.ID),
				keySeq:        intValue(seq),
				keyURL:        stringValue(v.URL),
				keyDomain:     stringValue(v.Domain),
				keyTitle:      stringValue(v.Title),
				keyChunkIndex: intValue(int64(v.ChunkIndex)),
				keyText:       stringValue(v.Text),
			},
		}
	}

	wait := true
	if _, err := ix.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: ix.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return classify(err, "upsert points")
	}
	return nil
}

// existingSeqs returns the stored sequence numbers of the points in ids
// that already exist, keyed by point UUID.
func (ix *Index) existingSeqs(ctx context.Context, ids []*pb.PointId) (map[string]int64, error) {
	resp, err := ix.points.Get(ctx, &pb.GetPoints{
		CollectionName: ix.collection,
		Ids:            ids,
		WithPayload: &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Include{
			Include: &pb.PayloadIncludeSelector{Fields: []string{keySeq}},
		}},
	})
	if err != nil {
		return nil, classify(err, "get points")
	}
	seqs := make(map[string]int64, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		seqs[p.GetId().GetUuid()] = p.GetPayload()[keySeq].GetIntegerValue()
	}
	return seqs, nil
}

// nextSeq returns a sequence number greater than any issued before by this
// process and, via the clock, by earlier processes.
func (ix *Index) nextSeq() int64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= ix.lastSeq {
		seq = ix.lastSeq + 1
	}
	ix.lastSeq = seq
	return seq
}

// Query returns up to topK points of namespace most similar to vector.
// siterag.AllNamespaces searches the whole collection.
func (ix *Index) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]*siterag.VectorMatch, error) {
	if err := siterag.ValidateNamespace(namespace, true); err != nil {
		return nil, err
	}
	if len(vector) != ix.dimensions {
		return nil, siterag.Errorf(siterag.EINVALID, "query vector has %d dimensions, index has %d", len(vector), ix.dimensions)
	}
	if topK < 1 {
		return nil, siterag.Errorf(siterag.EINVALID, "topK must be positive, got %d", topK)
	}

	resp, err := ix.points.Search(ctx, &pb.SearchPoints{
		CollectionName: ix.collection,
		Vector:         vector,
		Filter:         namespaceFilter(namespace),
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, classify(err, "search points")
	}

	type scored struct {
		seq   int64
		match *siterag.VectorMatch
	}
	results := make([]scored, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		payload := p.GetPayload()
		results = append(results, scored{
			seq: payload[keySeq].GetIntegerValue(),
			match: &siterag.VectorMatch{
				EmbeddedVector: siterag.EmbeddedVector{
					ID:         payload[keyChunkID].GetStringValue(),
					Namespace:  payload[keyNamespace].GetStringValue(),
					URL:        payload[keyURL].GetStringValue(),
					Domain:     payload[keyDomain].GetStringValue(),
					Title:      payload[keyTitle].GetStringValue(),
					ChunkIndex: int(payload[keyChunkIndex].GetIntegerValue()),
					Text:       payload[keyText].GetStringValue(),
				},
				Score: p.GetScore(),
			},
		})
	}
	// Qdrant does not order equal scores; restore insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].match.Score != results[j].match.Score {
			return results[i].match.Score > results[j].match.Score
		}
		return results[i].seq < results[j].seq
	})

	matches := make([]*siterag.VectorMatch, len(results))
	for i, r := range results {
		matches[i] = r.match
	}
	return matches, nil
}

// Stats reports the number of points stored under namespace.
func (ix *Index) Stats(ctx context.Context, namespace string) (*siterag.IndexStats, error) {
	if err := siterag.ValidateNamespace(namespace, true); err != nil {
		return nil, err
	}
	exact := true
	resp, err := ix.points.Count(ctx, &pb.CountPoints{
		CollectionName: ix.collection,
		Filter:         namespaceFilter(namespace),
		Exact:          &exact,
	})
	if err != nil {
		return nil, classify(err, "count points")
	}
	return &siterag.IndexStats{
		Namespace:  namespace,
		Vectors:    int(resp.GetResult().GetCount()),
		Dimensions: ix.dimensions,
	}, nil
}

func namespaceFilter(namespace string) *pb.Filter {
	if namespace == siterag.AllNamespaces {
		return nil
	}
	return &pb.Filter{Must: []*pb.Condition{{
		ConditionOneOf: &pb.Condition_Field{Field: &pb.FieldCondition{
			Key:   keyNamespace,
			Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: namespace}},
		}},
	}}}
}

func uuidPointID(id string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intValue(n int64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}}
}

// classify maps a gRPC error onto siterag error codes. Cancellation and
// deadline statuses map back to the context errors.
func classify(err error, op string) error {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.FailedPrecondition:
		return siterag.Errorf(siterag.EINVALID, "qdrant %s: %s", op, status.Convert(err).Message())
	case codes.NotFound:
		return siterag.Errorf(siterag.ENOTFOUND, "qdrant %s: %s", op, status.Convert(err).Message())
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return siterag.Errorf(siterag.EUNAVAILABLE, "qdrant %s: %s", op, status.Convert(err).Message())
	}
}
