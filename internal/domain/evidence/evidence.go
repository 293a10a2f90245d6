package evidence

import (
	"fmt"
	"sort"
)

// Document is a single retrieved reference excerpt.
type Document struct {
	sourceID string
	excerpt  string
	score    float64
}

// New creates a retrieved document. Relevance must be within [0, 1].
func New(sourceID, excerpt string, score float64) (Document, error) {
	if sourceID == "" {
		return Document{}, fmt.Errorf("source id is required")
	}
	if score < 0 || score > 1 {
		return Document{}, fmt.Errorf("relevance score %f outside [0, 1]", score)
	}
	return Document{sourceID: sourceID, excerpt: excerpt, score: score}, nil
}

// SourceID returns the corpus source identifier.
func (d *Document) SourceID() string { return d.sourceID }

// Excerpt returns the document excerpt text.
func (d *Document) Excerpt() string { return d.excerpt }

// Score returns the relevance score in [0, 1].
func (d *Document) Score() float64 { return d.score }

// SortDocuments orders documents by relevance score descending,
// ties by source id ascending. The order is deterministic for equal inputs.
func SortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].score != docs[j].score {
			return docs[i].score > docs[j].score
		}
		return docs[i].sourceID < docs[j].sourceID
	})
}
