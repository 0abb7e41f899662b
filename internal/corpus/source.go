// Package corpus loads source documents into tagged records.
package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

// Source yields the records of one document.
type Source interface {
	Name() string
	Records(ctx context.Context) ([]domain.Record, error)
}

// ExtractFiles lists the per-document extraction outputs in load order.
var ExtractFiles = []string{"text_chunks.jsonl", "tables.jsonl", "image_ocr.jsonl"}

type textSource struct {
	name string
	text string
}

// TextSource is a document given as one block of text. It yields a single
// paragraph record whose id is the document name.
func TextSource(name, text string) Source {
	return &textSource{name: name, text: text}
}

func (s *textSource) Name() string { return s.name }

func (s *textSource) Records(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []domain.Record{{ID: s.name, Type: domain.RecordParagraph, Text: s.text}}, nil
}

type fileSource struct {
	name string
	path string
}

// FileSource reads a plain text file as one document named after the file.
func FileSource(path string) Source {
	return &fileSource{name: filepath.Base(path), path: path}
}

func (s *fileSource) Name() string { return s.name }

func (s *fileSource) Records(ctx context.Context) ([]domain.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return TextSource(s.name, string(data)).Records(ctx)
}

type dirSource struct {
	name string
	dir  string
}

// DirSource reads the extraction outputs of one document directory.
// Missing files are skipped; a directory holding none of them is empty.
func DirSource(dir string) Source {
	return &dirSource{name: filepath.Base(dir), dir: dir}
}

func (s *dirSource) Name() string { return s.name }

func (s *dirSource) Records(ctx context.Context) ([]domain.Record, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", s.dir)
	}
	var out []domain.Record
	for _, name := range ExtractFiles {
		path := filepath.Join(s.dir, name)
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recs, err := ReadJSONL(ctx, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

// DataDir returns one DirSource per sub-directory of root, sorted by name.
func DataDir(root string) ([]Source, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list data dir: %w", err)
	}
	var out []Source
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, DirSource(filepath.Join(root, e.Name())))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// TextDir returns one FileSource per .txt or .md file in dir, sorted by name.
func TextDir(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list text dir: %w", err)
	}
	var out []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			out = append(out, FileSource(filepath.Join(dir, e.Name())))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}
