package docproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// formatByExt maps supported file extensions to their format label.
var formatByExt = map[string]string{
	".txt": "text",
	".md":  "markdown",
}

// TextConverter turns plain text and markdown files into ConvertedDocuments.
type TextConverter struct {
	logger *zap.Logger
}

// NewTextConverter creates a converter for .txt and .md files.
func NewTextConverter(logger *zap.Logger) *TextConverter {
	return &TextConverter{logger: logger}
}

// SupportedFormats lists the file extensions the converter accepts.
func (c *TextConverter) SupportedFormats() []string {
	return []string{".txt", ".md"}
}

// Supports reports whether the extension (with leading dot) is convertible.
func (c *TextConverter) Supports(ext string) bool {
	_, ok := formatByExt[strings.ToLower(ext)]
	return ok
}

// Convert reads a file into a ConvertedDocument. A nil result with no error is
// never returned; callers treat conversion failure as a failed ingest.
func (c *TextConverter) Convert(path string) (*domain.ConvertedDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := formatByExt[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q: %w", ext, domain.ErrValidation)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc := &domain.ConvertedDocument{
		Filename: filepath.Base(path),
		Format:   format,
		Text:     string(data),
	}

	c.logger.Debug("converted document",
		zap.String("filename", doc.Filename),
		zap.String("format", format),
		zap.Int("chars", len(doc.Text)))

	return doc, nil
}
