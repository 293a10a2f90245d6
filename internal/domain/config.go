package domain

// Vectorizer identifies the embedding family used for queries and for the
// corpus index. Queries and documents must share the same family or
// relevance scores are meaningless; the index stores its family in metadata
// and the service refuses to start on a mismatch.
type Vectorizer struct {
	Provider            string
	Model               string
	Dimensions          int
	DistanceMetric      string
	Algorithm           string
	DocumentInstruction string
	QueryInstruction    string
}

// DefaultVectorizer returns the default embedding family.
func DefaultVectorizer() Vectorizer {
	return Vectorizer{
		Provider:            "openai",
		Model:               "text-embedding-3-small",
		Dimensions:          1536,
		DistanceMetric:      "cosine",
		Algorithm:           "hnsw",
		DocumentInstruction: "",
		QueryInstruction:    "",
	}
}

// SameFamily reports whether two vectorizers produce comparable vectors.
// Instructions and index algorithm may differ; provider, model and
// dimensionality may not.
func (v Vectorizer) SameFamily(other Vectorizer) bool {
	return v.Provider == other.Provider &&
		v.Model == other.Model &&
		v.Dimensions == other.Dimensions
}
