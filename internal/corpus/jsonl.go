package corpus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

// ErrBadRecord marks a JSONL line that cannot become a record.
var ErrBadRecord = errors.New("bad record")

const maxLineBytes = 16 << 20

// ReadJSONL decodes one record per non-blank line.
//
// A line needs an "id" and one of "text", "ocr_text" or "data". Table cells
// in "data" are joined with " | ", rows with newlines. Fields other than
// id, text, ocr_text, data, page and type are kept as provenance.
func ReadJSONL(ctx context.Context, r io.Reader) ([]domain.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var out []domain.Record
	line := 0
	for sc.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRecord(raw string) (domain.Record, error) {
	var fields map[string]any
	if err := sonic.UnmarshalString(raw, &fields); err != nil {
		return domain.Record{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	var rec domain.Record

	id, ok := fields["id"]
	if !ok || scalar(id) == "" {
		return rec, fmt.Errorf("%w: missing id", ErrBadRecord)
	}
	rec.ID = scalar(id)

	inferred := domain.RecordParagraph
	switch {
	case fields["text"] != nil:
		s, ok := fields["text"].(string)
		if !ok {
			return rec, fmt.Errorf("%w: text is not a string", ErrBadRecord)
		}
		rec.Text = s
	case fields["ocr_text"] != nil:
		s, ok := fields["ocr_text"].(string)
		if !ok {
			return rec, fmt.Errorf("%w: ocr_text is not a string", ErrBadRecord)
		}
		rec.Text = s
		inferred = domain.RecordFigure
	case fields["data"] != nil:
		s, err := tableText(fields["data"])
		if err != nil {
			return rec, err
		}
		rec.Text = s
		inferred = domain.RecordTable
	default:
		return rec, fmt.Errorf("%w: record %s has no text, ocr_text or data", ErrBadRecord, rec.ID)
	}

	rec.Type = inferred
	if t, ok := fields["type"].(string); ok && t != "" {
		rec.Type = domain.RecordType(t)
		if !rec.Type.Valid() {
			return rec, fmt.Errorf("%w: unknown type %q", ErrBadRecord, t)
		}
	}
	if p, ok := fields["page"].(float64); ok {
		rec.Page = int(p)
	}

	for k, v := range fields {
		switch k {
		case "id", "text", "ocr_text", "data", "page", "type":
			continue
		}
		if rec.Provenance == nil {
			rec.Provenance = make(map[string]string)
		}
		rec.Provenance[k] = scalar(v)
	}
	return rec, nil
}

func tableText(v any) (string, error) {
	rows, ok := v.([]any)
	if !ok {
		return "", fmt.Errorf("%w: data is not a list of rows", ErrBadRecord)
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			return "", fmt.Errorf("%w: table row is not a list", ErrBadRecord)
		}
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = scalar(c)
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n"), nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		s, err := sonic.MarshalString(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return s
	}
}
