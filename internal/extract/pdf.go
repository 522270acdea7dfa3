package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts the text content of a PDF document. The uploaded
// bytes are spooled to a temporary file for the duration of extraction and
// removed before returning, whether extraction succeeds or fails.
type PDFExtractor struct{}

// Extract returns the concatenated text of all pages, separated by blank
// lines. Pages whose text cannot be decoded are skipped rather than failing
// the whole document; a PDF yielding no text at all is an error so callers
// never index an empty document silently.
func (PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "tutor-upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("extract: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("extract: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("extract: close temp file: %w", err)
	}

	f, reader, err := pdf.Open(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("extract: cancelled: %w", err)
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("extract: pdf contains no extractable text")
	}
	return sb.String(), nil
}
