// package formatter renders rewrite and extraction results to various formats (plain text, Markdown, JSON)
package formatter

import (
	"bytes"
	"fmt"
	"os"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/services"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

// RewriteExport pairs a rewrite result with the inputs that produced it.
type RewriteExport struct {
	SourceText  string                  `json:"source_text"`
	Instruction string                  `json:"instruction"`
	Result      *services.RewriteResult `json:"result"`
}

// RewriteToText renders a rewrite export as plain text.
func RewriteToText(export *RewriteExport) []byte {
	var buf bytes.Buffer

	buf.WriteString(export.Result.Content)
	buf.WriteString("\n")

	return buf.Bytes()
}

// RewriteToMarkdown renders a rewrite export as Markdown with the source and
// instruction alongside the result.
func RewriteToMarkdown(export *RewriteExport) []byte {
	var buf bytes.Buffer

	buf.WriteString("# 改写结果\n\n")
	buf.WriteString(fmt.Sprintf("**改写要求**: %s\n\n", export.Instruction))
	buf.WriteString("## 原文\n\n")
	buf.WriteString(export.SourceText)
	buf.WriteString("\n\n## 改写后\n\n")
	buf.WriteString(export.Result.Content)
	buf.WriteString("\n")

	return buf.Bytes()
}

// RewriteToJSON renders a rewrite export as indented JSON.
func RewriteToJSON(export *RewriteExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ExtractionToText renders an extraction as plain text with the title first.
func ExtractionToText(extraction *services.Extraction) []byte {
	var buf bytes.Buffer

	if extraction.Title != "" {
		buf.WriteString(fmt.Sprintf("标题: %s\n\n", extraction.Title))
	}
	buf.WriteString(extraction.Content)
	buf.WriteString("\n")

	return buf.Bytes()
}

// ExtractionToJSON renders an extraction as indented JSON.
func ExtractionToJSON(extraction *services.Extraction) ([]byte, error) {
	return shared.MarshalJSON(extraction, true)
}

// WriteExport writes rendered output to the given path.
func WriteExport(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
