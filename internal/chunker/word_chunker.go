// Package chunker cuts record text into overlapping word windows.
package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

const (
	DefaultChunkSize = 150
	DefaultOverlap   = 30
)

// chunkNamespace seeds the deterministic chunk ids.
var chunkNamespace = uuid.MustParse("6f1f5e8e-4a43-4c4e-9d0b-2b7b8f3c9a10")

// Span is a word window of a text. StartWord is inclusive, EndWord exclusive.
type Span struct {
	Text      string
	StartWord int
	EndWord   int
}

// Split cuts text into windows of at most size words that overlap by
// overlap words. A text of size words or fewer comes back whole as a single
// span. The final window always ends at the last word, so it may be shorter
// than size and overlap its predecessor by more than overlap words.
func Split(text string, size, overlap int) ([]Span, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	words := strings.Fields(text)
	if len(words) <= size {
		return []Span{{Text: text, StartWord: 0, EndWord: len(words)}}, nil
	}

	spans := make([]Span, 0, len(words)/(size-overlap)+1)
	start := 0
	for start < len(words) {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		spans = append(spans, Span{
			Text:      strings.Join(words[start:end], " "),
			StartWord: start,
			EndWord:   end,
		})
		if end >= len(words) {
			break
		}
		start = end - overlap
	}
	return spans, nil
}

// Validate checks a chunk size / overlap pair.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, size, overlap)
	}
	return nil
}

// WordChunker splits records into word-window chunks.
type WordChunker struct {
	size    int
	overlap int
}

// NewWordChunker returns a chunker or ErrInvalidConfig for a bad pair.
func NewWordChunker(size, overlap int) (*WordChunker, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	return &WordChunker{size: size, overlap: overlap}, nil
}

// Size returns the window size in words.
func (c *WordChunker) Size() int { return c.size }

// Overlap returns the configured overlap in words.
func (c *WordChunker) Overlap() int { return c.overlap }

// Chunk splits one record. Chunk ids are stable across runs.
func (c *WordChunker) Chunk(record domain.Record) ([]domain.Chunk, error) {
	spans, err := Split(record.Text, c.size, c.overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = domain.Chunk{
			ID:        chunkID(record.SourceID, record.ID, sp.StartWord),
			RecordID:  record.ID,
			Text:      sp.Text,
			StartWord: sp.StartWord,
			EndWord:   sp.EndWord,
		}
	}
	return chunks, nil
}

func chunkID(sourceID, recordID string, start int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(sourceID+"/"+recordID+":"+strconv.Itoa(start))).String()
}
