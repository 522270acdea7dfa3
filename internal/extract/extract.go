// Package extract converts uploaded document bytes into plain text for
// chunking and indexing. PDF is the primary format; plain UTF-8 text is
// accepted as a fallback so the API can also serve .txt uploads.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"
)

// TextExtractor converts raw uploaded bytes into the document's plain text.
// Implementations must be safe to call from multiple goroutines.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// pdfMagic is the file signature every PDF starts with.
var pdfMagic = []byte("%PDF-")

// Auto dispatches on the file signature: PDF bytes go through PDFExtractor,
// anything else is treated as plain UTF-8 text.
type Auto struct {
	pdf   PDFExtractor
	plain PlainExtractor
}

// NewAuto returns a ready-to-use format-sniffing extractor.
func NewAuto() *Auto { return &Auto{} }

// Extract converts data to plain text based on its detected format.
func (a *Auto) Extract(ctx context.Context, data []byte) (string, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return a.pdf.Extract(ctx, data)
	}
	return a.plain.Extract(ctx, data)
}

// PlainExtractor accepts UTF-8 text bytes as-is.
type PlainExtractor struct{}

// Extract returns the bytes as a string, rejecting invalid UTF-8.
func (PlainExtractor) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("extract: upload is neither a PDF nor valid UTF-8 text")
	}
	return string(data), nil
}
