package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var errPageTimeout = errors.New("page extraction timed out")

// pdfExtractSlots caps running GetPlainText calls, including ones abandoned after a timeout.
var pdfExtractSlots = make(chan struct{}, config.MaxPdfExtractions)

// DocumentParser turns one file into Documents.
type DocumentParser interface {
	Parse(ctx context.Context, path string) ([]commonModels.Document, error)
	DocType() commonModels.DocType
}

type pdfParser struct {
	pageTimeout time.Duration
	slots       chan struct{}
}

type docxParser struct{}

type markdownParser struct{}

func defaultParsers() map[string]DocumentParser {
	return map[string]DocumentParser{
		".pdf":  pdfParser{pageTimeout: config.PageExtractTimeout, slots: pdfExtractSlots},
		".docx": docxParser{},
		".md":   markdownParser{},
	}
}

func getDocType(docPath string) commonModels.DocType {
	p, ok := defaultParsers()[strings.ToLower(filepath.Ext(docPath))]
	if !ok {
		return commonModels.ERR
	}
	return p.DocType()
}

// IsSupported reports whether a built-in parser handles the file extension.
func IsSupported(docPath string) bool {
	return getDocType(docPath) != commonModels.ERR
}

func newDocument(path string, docType commonModels.DocType, content string) commonModels.Document {
	return commonModels.Document{
		PageContent: content,
		Metadata: map[string]any{
			commonModels.MetaSource:   path,
			commonModels.MetaFileType: string(docType),
		},
	}
}

func (p pdfParser) DocType() commonModels.DocType { return commonModels.PDF }

// Parse emits one Document per page that has text. Page numbers are 1-based.
func (p pdfParser) Parse(ctx context.Context, path string) ([]commonModels.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}
	f, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var docs []commonModels.Document
	numPages := f.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := p.protectExtract(ctx, func() (string, error) { return page.GetPlainText(nil) })
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		doc := newDocument(path, commonModels.PDF, content)
		doc.Metadata[commonModels.MetaPage] = i
		docs = append(docs, doc)
	}
	return docs, nil
}

// protectExtract bounds GetPlainText, which can spin on malformed content streams.
// A timed-out extraction cannot be interrupted: its goroutine is left to finish
// on its own and keeps its slot until then, so stuck pages cannot pile up.
func (p pdfParser) protectExtract(ctx context.Context, extract func() (string, error)) (string, error) {
	type result struct {
		content string
		err     error
	}
	timer := time.NewTimer(p.pageTimeout)
	defer timer.Stop()

	select {
	case p.slots <- struct{}{}:
	case <-timer.C:
		return "", errPageTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}

	resChan := make(chan result, 1)
	go func() {
		defer func() { <-p.slots }()
		content, err := extract()
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errPageTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (docxParser) DocType() commonModels.DocType { return commonModels.DOCX }

// Parse returns the whole file as a single Document; docx carries no page breaks we can trust.
func (docxParser) Parse(_ context.Context, path string) ([]commonModels.Document, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract docx: %w", err)
	}
	return []commonModels.Document{newDocument(path, commonModels.DOCX, text)}, nil
}

func (markdownParser) DocType() commonModels.DocType { return commonModels.MD }

// Parse keeps the raw markdown, front matter included.
func (markdownParser) Parse(_ context.Context, path string) ([]commonModels.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}
	return []commonModels.Document{newDocument(path, commonModels.MD, string(raw))}, nil
}
