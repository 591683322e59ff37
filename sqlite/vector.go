package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/fwojciec/siterag"
)

// Compile-time interface verification.
var _ siterag.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements siterag.VectorIndex on a SQLite table. Queries scan
// every vector of the namespace and rank by cosine similarity, which suits
// the local, single-user indexes this backend is meant for.
type VectorIndex struct {
	db         *DB
	dimensions int
	batchSize  int

	mu      sync.Mutex
	ensured bool
}

// metaDimensions is the meta key holding the dimensionality of the stored
// vectors.
const metaDimensions = "vector_dimensions"

// VectorIndexOption configures a VectorIndex.
type VectorIndexOption func(*VectorIndex)

// WithBatchSize sets the number of vectors committed per transaction.
func WithBatchSize(n int) VectorIndexOption {
	return func(v *VectorIndex) {
		if n > 0 {
			v.batchSize = n
		}
	}
}

// NewVectorIndex creates a VectorIndex holding vectors of the given
// dimensionality.
func NewVectorIndex(db *DB, dimensions int, opts ...VectorIndexOption) *VectorIndex {
	v := &VectorIndex{db: db, dimensions: dimensions, batchSize: siterag.DefaultUpsertBatchSize}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Ensure records the index dimensionality in the database on first use and
// returns EINVALID when the database already holds vectors of another
// dimensionality. Upsert calls it before the first write.
func (v *VectorIndex) Ensure(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ensured {
		return nil
	}

	stored, err := v.storedDimensions(ctx)
	if err != nil {
		return err
	}
	switch {
	case stored == 0:
		if _, err := v.db.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			metaDimensions, strconv.Itoa(v.dimensions)); err != nil {
			return siterag.Errorf(siterag.EUNAVAILABLE, "record vector dimensions: %v", err)
		}
	case stored != v.dimensions:
		return siterag.Errorf(siterag.EINVALID,
			"database holds %d-dimensional vectors, index configured for %d", stored, v.dimensions)
	}
	v.ensured = true
	return nil
}

// storedDimensions returns the recorded dimensionality, falling back to the
// size of any stored vector for databases written before it was recorded.
// It returns 0 for an empty index.
func (v *VectorIndex) storedDimensions(ctx context.Context) (int, error) {
	var value string
	err := v.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaDimensions).Scan(&value)
	switch {
	case err == nil:
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, siterag.Errorf(siterag.EINTERNAL, "invalid recorded vector dimensions %q", value)
		}
		return n, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, siterag.Errorf(siterag.EUNAVAILABLE, "read vector dimensions: %v", err)
	}

	var size int
	err = v.db.QueryRowContext(ctx, `SELECT length(vector) FROM vectors LIMIT 1`).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, siterag.Errorf(siterag.EUNAVAILABLE, "inspect vectors: %v", err)
	}
	return size / 4, nil
}

// Dimensions returns the fixed vector dimensionality of the index.
func (v *VectorIndex) Dimensions() int {
	return v.dimensions
}

// Upsert stores vectors under namespace, one transaction per batch. A vector
// whose ID already exists in the namespace is replaced in place and keeps
// its original insertion sequence.
func (v *VectorIndex) Upsert(ctx context.Context, namespace string, vectors []*siterag.EmbeddedVector) (int, error) {
	if err := siterag.ValidateNamespace(namespace, false); err != nil {
		return 0, err
	}
	for _, vec := range vectors {
		if vec.ID == "" {
			return 0, siterag.Errorf(siterag.EINVALID, "vector ID required")
		}
		if len(vec.Values) != v.dimensions {
			return 0, siterag.Errorf(siterag.EINVALID, "vector %s has %d dimensions, index has %d", vec.ID, len(vec.Values), v.dimensions)
		}
	}

	if err := v.Ensure(ctx); err != nil {
		return 0, err
	}

	committed := 0
	for start := 0; start < len(vectors); start += v.batchSize {
		batch := vectors[start:min(start+v.batchSize, len(vectors))]
		if err := v.upsertBatch(ctx, namespace, batch); err != nil {
			return committed, err
		}
		committed += len(batch)
	}
	return committed, nil
}

func (v *VectorIndex) upsertBatch(ctx context.Context, namespace string, batch []*siterag.EmbeddedVector) error {
	tx, err := v.db.BeginTx(ctx)
	if err != nil {
		return siterag.Errorf(siterag.EUNAVAILABLE, "begin upsert: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (namespace, id, vector, url, domain, title, chunk_index, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET
			vector = excluded.vector,
			url = excluded.url,
			domain = excluded.domain,
			title = excluded.title,
			chunk_index = excluded.chunk_index,
			text = excluded.text
	`)
	if err != nil {
		return siterag.Errorf(siterag.EUNAVAILABLE, "prepare upsert: %v", err)
	}
	defer stmt.Close()

	for _, vec := range batch {
		if _, err := stmt.ExecContext(ctx, namespace, vec.ID, encodeVector(vec.Values),
			vec.URL, vec.Domain, vec.Title, vec.ChunkIndex, vec.Text); err != nil {
			return siterag.Errorf(siterag.EUNAVAILABLE, "upsert vector %s: %v", vec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return siterag.Errorf(siterag.EUNAVAILABLE, "commit upsert: %v", err)
	}
	return nil
}

// Query returns up to topK vectors of namespace most similar to vector.
// siterag.AllNamespaces searches every namespace.
func (v *VectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]*siterag.VectorMatch, error) {
	if err := siterag.ValidateNamespace(namespace, true); err != nil {
		return nil, err
	}
	if len(vector) != v.dimensions {
		return nil, siterag.Errorf(siterag.EINVALID, "query vector has %d dimensions, index has %d", len(vector), v.dimensions)
	}
	if topK < 1 {
		return nil, siterag.Errorf(siterag.EINVALID, "topK must be positive, got %d", topK)
	}

	query := `SELECT seq, namespace, id, vector, url, domain, title, chunk_index, text FROM vectors`
	var args []any
	if namespace != siterag.AllNamespaces {
		query += ` WHERE namespace = ?`
		args = append(args, namespace)
	}

	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, siterag.Errorf(siterag.EUNAVAILABLE, "query vectors: %v", err)
	}
	defer rows.Close()

	type scored struct {
		seq   int64
		match *siterag.VectorMatch
	}
	var candidates []scored
	for rows.Next() {
		var seq int64
		var blob []byte
		m := &siterag.VectorMatch{}
		if err := rows.Scan(&seq, &m.Namespace, &m.ID, &blob, &m.URL, &m.Domain, &m.Title, &m.ChunkIndex, &m.Text); err != nil {
			return nil, err
		}
		values, err := decodeVector(blob)
		if err != nil {
			return nil, siterag.Errorf(siterag.EINTERNAL, "vector %s: %v", m.ID, err)
		}
		if len(values) != len(vector) {
			return nil, siterag.Errorf(siterag.EINVALID,
				"stored vector %s has %d dimensions, query has %d", m.ID, len(values), len(vector))
		}
		m.Values = values
		m.Score = cosine(vector, values)
		candidates = append(candidates, scored{seq: seq, match: m})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		return candidates[i].seq < candidates[j].seq
	})

	matches := make([]*siterag.VectorMatch, 0, min(topK, len(candidates)))
	for _, c := range candidates[:min(topK, len(candidates))] {
		matches = append(matches, c.match)
	}
	return matches, nil
}

// Stats reports the number of vectors stored under namespace. For
// siterag.AllNamespaces it also breaks the total down per namespace.
func (v *VectorIndex) Stats(ctx context.Context, namespace string) (*siterag.IndexStats, error) {
	if err := siterag.ValidateNamespace(namespace, true); err != nil {
		return nil, err
	}

	stats := &siterag.IndexStats{Namespace: namespace, Dimensions: v.dimensions}
	if namespace != siterag.AllNamespaces {
		err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE namespace = ?`, namespace).Scan(&stats.Vectors)
		if err != nil {
			return nil, siterag.Errorf(siterag.EUNAVAILABLE, "count vectors: %v", err)
		}
		return stats, nil
	}

	rows, err := v.db.QueryContext(ctx, `SELECT namespace, COUNT(*) FROM vectors GROUP BY namespace ORDER BY namespace`)
	if err != nil {
		return nil, siterag.Errorf(siterag.EUNAVAILABLE, "count vectors: %v", err)
	}
	defer rows.Close()

	stats.Namespaces = map[string]int{}
	for rows.Next() {
		var ns string
		var n int
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, err
		}
		stats.Namespaces[ns] = n
		stats.Vectors += n
	}
	if err := rows.Err(); err != nil {
		return nil, siterag.Errorf(siterag.EUNAVAILABLE, "count vectors: %v", err)
	}
	return stats, nil
}

// cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
