package domain

import "fmt"

// RecordType tells which extraction path produced a record.
type RecordType string

const (
	RecordParagraph RecordType = "paragraph"
	RecordTable     RecordType = "table"
	RecordFigure    RecordType = "figure"
)

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	switch t {
	case RecordParagraph, RecordTable, RecordFigure:
		return true
	}
	return false
}

// Record is a single extracted text fragment of a source document.
// Records are never mutated after the corpus builder has tagged them.
type Record struct {
	ID         string
	SourceID   string
	Type       RecordType
	Text       string
	Page       int // 0 when the extractor did not report a page
	Provenance map[string]string
}

// Chunk is a word window over a record's text.
// StartWord is inclusive, EndWord exclusive.
type Chunk struct {
	ID        string
	RecordID  string
	Text      string
	StartWord int
	EndWord   int
}

// ChunkMeta is the metadata row an index keeps for every stored vector.
type ChunkMeta struct {
	RecordID  string     `json:"record_id"`
	SourceID  string     `json:"source_id"`
	Type      RecordType `json:"type"`
	Page      int        `json:"page,omitempty"`
	StartWord int        `json:"start_word"`
	EndWord   int        `json:"end_word"`
	Text      string     `json:"text"`
}

// NewChunkMeta joins a chunk with the record it was cut from.
func NewChunkMeta(rec Record, ch Chunk) ChunkMeta {
	return ChunkMeta{
		RecordID:  rec.ID,
		SourceID:  rec.SourceID,
		Type:      rec.Type,
		Page:      rec.Page,
		StartWord: ch.StartWord,
		EndWord:   ch.EndWord,
		Text:      ch.Text,
	}
}

// Match is one piece of evidence returned for a claim.
type Match struct {
	DocumentName string  `json:"document_name"`
	MatchingText string  `json:"matching_text"`
	Score        float64 `json:"score"`
}

// Metric is the distance semantics of an index, fixed at construction.
type Metric string

const (
	// MetricInnerProduct is cosine similarity over unit vectors; higher is better.
	MetricInnerProduct Metric = "ip"
	// MetricL2 is squared Euclidean distance; lower is better.
	MetricL2 Metric = "l2"
)

// ParseMetric accepts the config spellings of a metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "ip", "cosine", "inner_product", "":
		return MetricInnerProduct, nil
	case "l2", "euclidean":
		return MetricL2, nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidConfig, s)
}

// Better reports whether score a ranks strictly ahead of score b.
func (m Metric) Better(a, b float64) bool {
	if m == MetricL2 {
		return a < b
	}
	return a > b
}

// Chunker splits records into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(record Record) ([]Chunk, error)
}
