package corpus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/taxtaxi/tariffd/internal/db"
	"github.com/taxtaxi/tariffd/internal/domain"
	domcorpus "github.com/taxtaxi/tariffd/internal/domain/corpus"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
)

// store is the consumer interface for the corpus (ISP).
//
//nolint:interfacebloat // corpus repo needs hash + index + search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Meta describes the embedding family the corpus index was built with.
// The service compares it against the configured vectorizer at startup
// and refuses to serve on a mismatch.
type Meta struct {
	Provider   string
	Model      string
	Dimensions int
	BuiltAt    string
	Documents  int
}

// Repo implements usecase/retrieval.Corpus over hash documents plus one FT index.
type Repo struct {
	store      store
	vectorizer domain.Vectorizer
	hnsw       HNSWConfig
}

// New creates a corpus repository bound to one embedding family.
func New(s store, v domain.Vectorizer) *Repo {
	return &Repo{store: s, vectorizer: v, hnsw: HNSWConfig{M: 32, EFConstruct: 400}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndex creates the corpus index and family metadata when absent.
// Existing metadata must match the configured vectorizer.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	meta, metaErr := r.ReadMeta(ctx)
	if metaErr != nil && !errors.Is(metaErr, domain.ErrNotFound) {
		return metaErr
	}
	if metaErr == nil {
		if !r.vectorizer.SameFamily(meta.Family()) {
			return fmt.Errorf("%w: index built with %s/%s dim=%d, configured %s/%s dim=%d",
				domain.ErrVectorizerMismatch,
				meta.Provider, meta.Model, meta.Dimensions,
				r.vectorizer.Provider, r.vectorizer.Model, r.vectorizer.Dimensions)
		}
	}

	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	if !exists {
		def, err := buildIndex(r.vectorizer, r.hnsw)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", indexName, err)
		}
	}

	if errors.Is(metaErr, domain.ErrNotFound) {
		return r.WriteMeta(ctx, Meta{
			Provider:   r.vectorizer.Provider,
			Model:      r.vectorizer.Model,
			Dimensions: r.vectorizer.Dimensions,
		})
	}

	return nil
}

// UpsertBatch stores documents as hashes under the indexed prefix.
// Every document must carry a vector of the index dimensionality.
func (r *Repo) UpsertBatch(ctx context.Context, docs []domcorpus.Document) error {
	if len(docs) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		if len(d.Vector()) != r.vectorizer.Dimensions {
			return fmt.Errorf("document %s: vector dim %d, index dim %d",
				d.ID(), len(d.Vector()), r.vectorizer.Dimensions)
		}
		items = append(items, db.HashSetItem{Key: docKey(d.ID()), Fields: docToHash(d)})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset corpus batch: %w", err)
	}
	return nil
}

// Get retrieves a corpus document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domcorpus.Document, error) {
	m, err := r.store.HGetAll(ctx, docKey(id))
	if err != nil {
		return domcorpus.Document{}, fmt.Errorf("hgetall document %s: %w", id, err)
	}
	if len(m) == 0 {
		return domcorpus.Document{}, domain.ErrNotFound
	}

	return domcorpus.Reconstruct(
		id, m["source_id"], m["title"], m["excerpt"], m["hts_code"],
		bytesToVector(m["vector"]),
	), nil
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count corpus: %w", err)
	}
	return n, nil
}

// SearchKNN returns the k nearest documents to the query vector.
// A missing or empty corpus yields no results, not an error.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]evidence.Document, error) {
	q := &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"source_id", "excerpt", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", indexName, err)
	}

	return parseKNNResults(sr)
}

// Purge removes all documents, the family metadata and the index.
// Returns the number of deleted documents.
func (r *Repo) Purge(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, docPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan corpus: %w", err)
	}

	deleted := 0
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return deleted, fmt.Errorf("del %s: %w", key, err)
		}
		deleted++
	}

	if err := r.store.Del(ctx, metaKey); err != nil {
		return deleted, fmt.Errorf("del %s: %w", metaKey, err)
	}

	if err := r.store.DropIndex(ctx, indexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return deleted, fmt.Errorf("drop index %s: %w", indexName, err)
	}

	return deleted, nil
}

// ReadMeta loads the family metadata hash.
func (r *Repo) ReadMeta(ctx context.Context) (Meta, error) {
	m, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return Meta{}, fmt.Errorf("hgetall corpus meta: %w", err)
	}
	if len(m) == 0 {
		return Meta{}, domain.ErrNotFound
	}
	return metaFromHash(m)
}

// WriteMeta stores the family metadata hash.
func (r *Repo) WriteMeta(ctx context.Context, meta Meta) error {
	if err := r.store.HSet(ctx, metaKey, metaToHash(meta)); err != nil {
		return fmt.Errorf("hset corpus meta: %w", err)
	}
	return nil
}

// Family returns the embedding family recorded in the metadata.
func (m Meta) Family() domain.Vectorizer {
	return domain.Vectorizer{Provider: m.Provider, Model: m.Model, Dimensions: m.Dimensions}
}

func parseKNNResults(sr *db.SearchResult) ([]evidence.Document, error) {
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	docs := make([]evidence.Document, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		sourceID := entry.Fields["source_id"]
		if sourceID == "" {
			sourceID = strings.TrimPrefix(entry.Key, docPrefix)
		}
		doc, err := evidence.New(sourceID, entry.Fields["excerpt"], entry.Score)
		if err != nil {
			return nil, fmt.Errorf("parse entry %s: %w", entry.Key, err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func buildIndex(v domain.Vectorizer, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(indexName).
		Prefix(docPrefix).
		Tag("source_id").
		Text("excerpt")

	metric := distanceMetric(v.DistanceMetric)
	if strings.EqualFold(v.Algorithm, "flat") {
		b = b.VectorFlat("vector", v.Dimensions, metric, flatBlockSize)
	} else {
		b = b.VectorHNSW("vector", v.Dimensions, metric, hnsw.M, hnsw.EFConstruct)
	}

	return b.Build()
}

func distanceMetric(name string) db.DistanceMetric {
	switch strings.ToLower(name) {
	case "l2":
		return db.DistanceL2
	case "ip":
		return db.DistanceIP
	default:
		return db.DistanceCosine
	}
}

func docToHash(d *domcorpus.Document) map[string]string {
	return map[string]string{
		"source_id": d.SourceID(),
		"title":     d.Title(),
		"excerpt":   d.Excerpt(),
		"hts_code":  d.HTSCode(),
		"vector":    vectorToBytes(d.Vector()),
	}
}

func metaFromHash(m map[string]string) (Meta, error) {
	meta := Meta{
		Provider: m["provider"],
		Model:    m["model"],
		BuiltAt:  m["built_at"],
	}

	if s := m["dimensions"]; s != "" {
		dims, err := strconv.Atoi(s)
		if err != nil {
			return Meta{}, fmt.Errorf("parse corpus meta dimensions %q: %w", s, err)
		}
		meta.Dimensions = dims
	}
	if s := m["documents"]; s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Meta{}, fmt.Errorf("parse corpus meta documents %q: %w", s, err)
		}
		meta.Documents = n
	}

	return meta, nil
}

func metaToHash(meta Meta) map[string]string {
	return map[string]string{
		"provider":   meta.Provider,
		"model":      meta.Model,
		"dimensions": strconv.Itoa(meta.Dimensions),
		"built_at":   meta.BuiltAt,
		"documents":  strconv.Itoa(meta.Documents),
	}
}

// vectorToBytes serializes []float32 to a binary string (float32 LE).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// Redis key patterns: tariffd:doc:{id}, tariffd:corpus:meta, index tariffd-corpus-idx.

const (
	indexName     = "tariffd-corpus-idx"
	docPrefix     = domain.KeyPrefix + "doc:"
	metaKey       = domain.KeyPrefix + "corpus:meta"
	flatBlockSize = 1024
)

func docKey(id string) string {
	return docPrefix + id
}
