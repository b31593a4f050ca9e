package ingest

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/akolanti/kbbot/internal/domain/commonModels"
)

func TestSplitDocuments_Examples(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		size       int
		overlap    int
		wantTexts  []string
		wantStarts []int
	}{
		{
			name:       "fits in one chunk",
			text:       "short text",
			size:       1000,
			wantTexts:  []string{"short text"},
			wantStarts: []int{0},
		},
		{
			name:       "word split",
			text:       "aaa bbb ccc",
			size:       7,
			wantTexts:  []string{"aaa ", "bbb ccc"},
			wantStarts: []int{0, 4},
		},
		{
			name:       "word split with overlap",
			text:       "one two three four",
			size:       10,
			overlap:    4,
			wantTexts:  []string{"one two ", "two three ", "four"},
			wantStarts: []int{0, 4, 14},
		},
		{
			name:       "paragraphs first",
			text:       "first para\n\nsecond para",
			size:       15,
			wantTexts:  []string{"first para\n\n", "second para"},
			wantStarts: []int{0, 12},
		},
		{
			name:       "character fallback",
			text:       "abcdefgh",
			size:       3,
			wantTexts:  []string{"abc", "def", "gh"},
			wantStarts: []int{0, 3, 6},
		},
		{
			name:       "whitespace only dropped",
			text:       "   \n\n  ",
			size:       10,
			wantTexts:  nil,
			wantStarts: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := commonModels.Document{PageContent: tt.text, Metadata: map[string]any{"source": "x.md"}}
			chunks, err := SplitDocuments([]commonModels.Document{doc}, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("SplitDocuments failed: %v", err)
			}
			if len(chunks) != len(tt.wantTexts) {
				t.Fatalf("got %d chunks %q, want %d", len(chunks), chunkTexts(chunks), len(tt.wantTexts))
			}
			for i, c := range chunks {
				if c.Text != tt.wantTexts[i] {
					t.Errorf("chunk %d text got %q, want %q", i, c.Text, tt.wantTexts[i])
				}
				if c.StartIndex != tt.wantStarts[i] {
					t.Errorf("chunk %d start got %d, want %d", i, c.StartIndex, tt.wantStarts[i])
				}
				if c.Metadata["source"] != "x.md" {
					t.Errorf("chunk %d lost metadata: %v", i, c.Metadata)
				}
			}
		})
	}
}

func TestSplitDocuments_BoundAndReconstruction(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Employees may raise concerns with any manager. ")
		if i%7 == 0 {
			b.WriteString("\n\n")
		}
		if i%11 == 0 {
			b.WriteString("Ünïcödé façade naïve café.\n")
		}
	}
	b.WriteString(strings.Repeat("x", 250))
	text := b.String()
	runes := []rune(text)

	for _, params := range [][2]int{{100, 0}, {1000, 0}, {64, 16}, {37, 5}} {
		size, overlap := params[0], params[1]
		chunks, err := SplitDocuments([]commonModels.Document{{PageContent: text}}, size, overlap)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}

		var rebuilt strings.Builder
		end := 0
		for i, c := range chunks {
			n := utf8.RuneCountInString(c.Text)
			if n > size {
				t.Fatalf("size %d: chunk %d has %d runes", size, i, n)
			}
			if got := string(runes[c.StartIndex : c.StartIndex+n]); got != c.Text {
				t.Fatalf("size %d: chunk %d does not match its start index", size, i)
			}
			if c.StartIndex > end {
				gap := string(runes[end:c.StartIndex])
				if strings.TrimSpace(gap) != "" {
					t.Fatalf("size %d: non-blank text lost before chunk %d: %q", size, i, gap)
				}
				rebuilt.WriteString(gap)
			}
			if i > 0 && end-c.StartIndex > overlap {
				t.Fatalf("size %d: chunk %d overlaps by %d runes", size, i, end-c.StartIndex)
			}
			// strip the overlap carried from the previous chunk
			if c.StartIndex < end {
				rebuilt.WriteString(string(runes[end : c.StartIndex+n]))
			} else {
				rebuilt.WriteString(c.Text)
			}
			end = c.StartIndex + n
		}
		tail := string(runes[end:])
		if strings.TrimSpace(tail) != "" {
			t.Fatalf("size %d: non-blank tail lost: %q", size, tail)
		}
		rebuilt.WriteString(tail)

		if rebuilt.String() != text {
			t.Errorf("size %d overlap %d: reconstruction differs from input", size, overlap)
		}
	}
}

func TestSplitDocuments_Deterministic(t *testing.T) {
	doc := commonModels.Document{PageContent: strings.Repeat("The open door policy. ", 200)}
	a, _ := SplitDocuments([]commonModels.Document{doc}, 120, 20)
	b, _ := SplitDocuments([]commonModels.Document{doc}, 120, 20)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Text != b[i].Text || a[i].StartIndex != b[i].StartIndex {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitDocuments_MetadataNotShared(t *testing.T) {
	doc := commonModels.Document{PageContent: "aaa bbb ccc", Metadata: map[string]any{"source": "x.md"}}
	chunks, _ := SplitDocuments([]commonModels.Document{doc}, 4, 0)
	chunks[0].Metadata["source"] = "changed"
	if doc.Metadata["source"] != "x.md" {
		t.Error("chunk metadata aliases the parent document")
	}
}

func TestNewSplitter_InvalidParams(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSplitter(tt.size, tt.overlap); !errors.Is(err, ErrInvalidChunkParams) {
				t.Errorf("got %v, want ErrInvalidChunkParams", err)
			}
		})
	}
}

func chunkTexts(chunks []commonModels.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
