package corpus

import (
	"fmt"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxExcerptSize is the maximum excerpt size in bytes.
const MaxExcerptSize = 8192

// Document is a tariff reference document held in the corpus index
// (immutable value object).
type Document struct {
	id       string
	sourceID string
	title    string
	excerpt  string
	htsCode  string
	vector   []float32
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Excerpt: non-empty, max 8KB.
// An HTS code, when present, is stored in canonical dotted form.
func New(id, sourceID, title, excerpt, htsCode string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if sourceID == "" {
		return Document{}, fmt.Errorf("source ID is required")
	}
	if excerpt == "" {
		return Document{}, fmt.Errorf("excerpt is required")
	}
	if len(excerpt) > MaxExcerptSize {
		return Document{}, fmt.Errorf("excerpt too large (max %d bytes)", MaxExcerptSize)
	}
	if htsCode != "" {
		normalized := NormalizeHTS(htsCode)
		if normalized == "" {
			return Document{}, fmt.Errorf("hts code %q has no digits", htsCode)
		}
		htsCode = FormatHTS(normalized)
	}

	return Document{
		id:       id,
		sourceID: sourceID,
		title:    title,
		excerpt:  excerpt,
		htsCode:  htsCode,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, sourceID, title, excerpt, htsCode string, vector []float32) Document {
	return Document{id: id, sourceID: sourceID, title: title, excerpt: excerpt, htsCode: htsCode, vector: vector}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// SourceID returns the upstream source identifier (e.g. "usitc:6109.10.00").
func (d *Document) SourceID() string { return d.sourceID }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Excerpt returns the reference excerpt text.
func (d *Document) Excerpt() string { return d.excerpt }

// HTSCode returns the canonical HTS code, empty when not applicable.
func (d *Document) HTSCode() string { return d.htsCode }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// WithVector returns a copy with the given vector set.
func (d *Document) WithVector(v []float32) Document {
	return Document{
		id: d.id, sourceID: d.sourceID, title: d.title,
		excerpt: d.excerpt, htsCode: d.htsCode, vector: v,
	}
}

// EmbeddingText returns the text to vectorize for this document.
func (d *Document) EmbeddingText() string {
	if d.title == "" {
		return d.excerpt
	}
	return d.title + "\n" + d.excerpt
}
