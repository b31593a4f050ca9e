package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type LoadReport struct {
	Documents []commonModels.Document
	Files     int
	Skipped   []SkippedFile
}

type Loader struct {
	parsers map[string]DocumentParser
	logger  *logger_i.Logger
}

func NewLoader() *Loader {
	return &Loader{parsers: defaultParsers(), logger: logger_i.NewLogger("document_loader")}
}

// Register adds or replaces the parser for an extension such as ".txt".
func (l *Loader) Register(ext string, p DocumentParser) {
	l.parsers[strings.ToLower(ext)] = p
}

func (l *Loader) parserFor(path string) (DocumentParser, bool) {
	p, ok := l.parsers[strings.ToLower(filepath.Ext(path))]
	return p, ok
}

// LoadDirectory parses every supported file directly inside dir, in filename
// order. Sub-directories and unknown extensions are skipped and reported.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) (LoadReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return LoadReport{}, fmt.Errorf("reading %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var report LoadReport
	total := len(entries)
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			report.skip(l.logger, path, "directory")
			continue
		}
		parser, ok := l.parserFor(path)
		if !ok {
			report.skip(l.logger, path, "unsupported extension")
			continue
		}

		docs, err := parser.Parse(ctx, path)
		if err != nil {
			return report, fmt.Errorf("loading %s: %w", path, err)
		}
		report.Documents = append(report.Documents, docs...)
		report.Files++
		metrics.CaptureFileLoaded()
		l.logger.Info("files processed", "done", i+1, "total", total, "file", entry.Name(), "documents", len(docs))
	}
	return report, nil
}

// LoadFile parses a single file regardless of where it lives.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]commonModels.Document, error) {
	parser, ok := l.parserFor(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	docs, err := parser.Parse(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	metrics.CaptureFileLoaded()
	return docs, nil
}

func (r *LoadReport) skip(log *logger_i.Logger, path string, reason string) {
	r.Skipped = append(r.Skipped, SkippedFile{Path: path, Reason: reason})
	metrics.CaptureFileSkipped()
	log.Warn("skipping file", "path", path, "reason", reason)
}
