package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/kbbot/internal/domain/commonModels"
)

// stubParser replaces a built-in parser.
type stubParser struct {
	docType commonModels.DocType
	parse   func(path string) ([]commonModels.Document, error)
}

func (s stubParser) DocType() commonModels.DocType { return s.docType }
func (s stubParser) Parse(_ context.Context, path string) ([]commonModels.Document, error) {
	return s.parse(path)
}

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected commonModels.DocType
	}{
		{"test.pdf", commonModels.PDF},
		{"DOC.DOCX", commonModels.DOCX},
		{"notes.md", commonModels.MD},
		{"notes.txt", commonModels.ERR},
		{"image.png", commonModels.ERR},
	}

	for _, tt := range tests {
		if got := getDocType(tt.path); got != tt.expected {
			t.Errorf("getDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestLoader_OneFilePerFormat(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   []byte
		wantText  []string
		wantPages []int
	}{
		{
			name:      "markdown",
			file:      "guide.md",
			content:   []byte("---\ntitle: Guide\n---\n# Swimlanes\nKeep teams apart."),
			wantText:  []string{"---\ntitle: Guide\n---\n# Swimlanes\nKeep teams apart."},
			wantPages: []int{0},
		},
		{
			name:      "pdf with blank page",
			file:      "handbook.pdf",
			content:   pdfFixture(pdfText("Open door policy"), "BT ET", pdfText("Swimlanes")),
			wantText:  []string{"Open door policy", "Swimlanes"},
			wantPages: []int{1, 3},
		},
		{
			name:      "docx",
			file:      "memo.docx",
			content:   docxFixture(t, "Swimlanes isolate failures"),
			wantText:  []string{"Swimlanes isolate failures\n"},
			wantPages: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, string(tt.content))

			report, err := NewLoader().LoadDirectory(context.Background(), dir)
			if err != nil {
				t.Fatalf("LoadDirectory failed: %v", err)
			}
			if len(report.Documents) != len(tt.wantText) {
				t.Fatalf("got %d documents, want %d", len(report.Documents), len(tt.wantText))
			}
			for i, d := range report.Documents {
				if d.PageContent != tt.wantText[i] {
					t.Errorf("document %d content got %q, want %q", i, d.PageContent, tt.wantText[i])
				}
				if d.Source() != filepath.Join(dir, tt.file) {
					t.Errorf("source got %q", d.Source())
				}
				page, hasPage := d.Metadata[commonModels.MetaPage]
				if tt.wantPages[i] == 0 {
					if hasPage {
						t.Errorf("document %d should carry no page, got %v", i, page)
					}
				} else if page != tt.wantPages[i] {
					t.Errorf("document %d page got %v, want %d", i, page, tt.wantPages[i])
				}
			}
		})
	}
}

func TestLoader_RegisterOverridesParser(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "memo.docx", "PK-stub")

	l := NewLoader()
	l.Register(".docx", stubParser{docType: commonModels.DOCX, parse: func(path string) ([]commonModels.Document, error) {
		return []commonModels.Document{{PageContent: "whole file", Metadata: map[string]any{commonModels.MetaSource: path}}}, nil
	}})

	report, err := l.LoadDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}
	if len(report.Documents) != 1 || report.Documents[0].PageContent != "whole file" {
		t.Errorf("registered parser not used: %+v", report.Documents)
	}
}

func TestLoader_MarkdownKeepsFrontMatter(t *testing.T) {
	dir := t.TempDir()
	content := "---\ntitle: Guide\n---\n# Swimlanes"
	writeFile(t, dir, "guide.md", content)

	report, err := NewLoader().LoadDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}
	d := report.Documents[0]
	if d.PageContent != content {
		t.Errorf("content got %q", d.PageContent)
	}
	if d.Metadata[commonModels.MetaFileType] != string(commonModels.MD) {
		t.Errorf("file type got %v", d.Metadata[commonModels.MetaFileType])
	}
	if _, hasPage := d.Metadata[commonModels.MetaPage]; hasPage {
		t.Error("markdown documents carry no page number")
	}
}

func TestLoader_SortedAndSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "second")
	writeFile(t, dir, "a.md", "first")
	writeFile(t, dir, "c.MD", "third")
	writeFile(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "nested"), "deep.md", "not loaded")

	report, err := NewLoader().LoadDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}

	var got []string
	for _, d := range report.Documents {
		got = append(got, d.PageContent)
	}
	if strings.Join(got, ",") != "first,second,third" {
		t.Errorf("documents out of order: %v", got)
	}
	if report.Files != 3 {
		t.Errorf("Files got %d, want 3", report.Files)
	}

	reasons := map[string]string{}
	for _, s := range report.Skipped {
		reasons[filepath.Base(s.Path)] = s.Reason
	}
	if reasons["notes.txt"] != "unsupported extension" || reasons["nested"] != "directory" {
		t.Errorf("unexpected skips: %+v", report.Skipped)
	}
}

func TestLoader_ParserFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "not a pdf at all")

	_, err := NewLoader().LoadDirectory(context.Background(), dir)
	if err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
	if !strings.Contains(err.Error(), "broken.pdf") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	_, err := NewLoader().LoadDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want not-exist error", err)
	}
}

func TestLoader_LoadFileUnsupported(t *testing.T) {
	_, err := NewLoader().LoadFile(context.Background(), "picture.gif")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}
