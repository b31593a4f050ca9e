package commonModels

import "time"

// Metadata keys attached to loaded documents.
const (
	MetaSource   = "source"
	MetaPage     = "page"
	MetaFileType = "file_type"
)

// Document is one unit of parsed source content: a PDF page, a whole DOCX
// or a whole Markdown file.
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

func (d Document) Source() string {
	s, _ := d.Metadata[MetaSource].(string)
	return s
}

// Chunk is a bounded slice of a Document. Metadata is the parent's, verbatim.
type Chunk struct {
	Text       string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	StartIndex int            `json:"start_index"` // rune offset in the parent content
}

type CollectionEntry struct {
	Id        string         `json:"id"`
	Text      string         `json:"document"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// CollectionSpec describes a named collection. EmbeddingModel pins the
// embedder identity so queries can refuse a mismatched one.
type CollectionSpec struct {
	Name           string    `json:"name"`
	Dimension      int       `json:"dimension"`
	EmbeddingModel string    `json:"embedding_model"`
	CreatedAt      time.Time `json:"created_at"`
}

type QueryMatch struct {
	Entry    CollectionEntry `json:"entry"`
	Distance float32         `json:"distance"` // cosine distance, smaller is nearer
}

// QueryResult holds matches nearest first.
type QueryResult struct {
	Matches []QueryMatch `json:"matches"`
}

func (r QueryResult) Found() bool {
	return len(r.Matches) > 0
}

func (r QueryResult) Texts() []string {
	texts := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		texts = append(texts, m.Entry.Text)
	}
	return texts
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var MD DocType = "MD"
var ERR DocType = "ERROR"
