package ingest

import (
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/kbbot/internal/domain/commonModels"
)

// paragraph, line, sentence, word, character
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// piece is a run of text with its rune offset in the parent document.
type piece struct {
	text  string
	start int
	n     int
}

type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("size %d overlap %d: %w", chunkSize, chunkOverlap, ErrInvalidChunkParams)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: defaultSeparators}, nil
}

// SplitDocuments splits every document and returns chunks in document order.
func SplitDocuments(docs []commonModels.Document, chunkSize, chunkOverlap int) ([]commonModels.Chunk, error) {
	s, err := NewSplitter(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	var chunks []commonModels.Chunk
	for _, d := range docs {
		chunks = append(chunks, s.SplitDocument(d)...)
	}
	return chunks, nil
}

func (s *Splitter) SplitDocument(doc commonModels.Document) []commonModels.Chunk {
	var chunks []commonModels.Chunk
	for _, p := range s.splitText(doc.PageContent) {
		chunks = append(chunks, commonModels.Chunk{
			Text:       p.text,
			Metadata:   maps.Clone(doc.Metadata),
			StartIndex: p.start,
		})
	}
	return chunks
}

// splitText returns non-blank pieces of at most chunkSize runes.
func (s *Splitter) splitText(text string) []piece {
	var out []piece
	for _, p := range s.split(piece{text: text, n: utf8.RuneCountInString(text)}, s.separators) {
		if strings.TrimSpace(p.text) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Splitter) split(p piece, separators []string) []piece {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(p.text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var out []piece
	var fitting []piece
	for _, part := range splitKeep(p, sep) {
		if part.n <= s.chunkSize {
			fitting = append(fitting, part)
			continue
		}
		out = append(out, s.merge(fitting)...)
		fitting = nil
		if len(rest) > 0 {
			out = append(out, s.split(part, rest)...)
		} else {
			out = append(out, part)
		}
	}
	return append(out, s.merge(fitting)...)
}

// merge packs adjacent parts greedily, carrying up to chunkOverlap runes of
// whole trailing parts into the next chunk.
func (s *Splitter) merge(parts []piece) []piece {
	var out []piece
	var window []piece
	total := 0
	for _, part := range parts {
		if total+part.n > s.chunkSize && len(window) > 0 {
			out = append(out, join(window, total))
			for total > s.chunkOverlap || (total+part.n > s.chunkSize && total > 0) {
				total -= window[0].n
				window = window[1:]
			}
		}
		window = append(window, part)
		total += part.n
	}
	if len(window) > 0 {
		out = append(out, join(window, total))
	}
	return out
}

func join(parts []piece, n int) piece {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.text)
	}
	return piece{text: b.String(), start: parts[0].start, n: n}
}

// splitKeep cuts after each separator so the parts concatenate back to p.
func splitKeep(p piece, sep string) []piece {
	var parts []piece
	offset := p.start
	add := func(s string) {
		n := utf8.RuneCountInString(s)
		parts = append(parts, piece{text: s, start: offset, n: n})
		offset += n
	}

	if sep == "" {
		for _, r := range p.text {
			add(string(r))
		}
		return parts
	}

	text := p.text
	for {
		i := strings.Index(text, sep)
		if i < 0 {
			break
		}
		add(text[:i+len(sep)])
		text = text[i+len(sep):]
	}
	if text != "" {
		add(text)
	}
	return parts
}
