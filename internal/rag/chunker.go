package rag

import (
	"fmt"
	"strings"
)

// Default chunking geometry, matching the splitter configuration the service
// has historically used for uploaded PDFs.
const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of runes shared between adjacent chunks.
	DefaultChunkOverlap = 200
)

// SplitText splits text into overlapping chunks of at most size runes.
// Chunk i starts at rune offset i*(size-overlap), so adjacent chunks share
// overlap runes and the chunks cover the whole input with no gaps. The split
// is deterministic: identical input and parameters yield identical chunks.
//
// size must be positive and overlap must satisfy 0 <= overlap < size;
// violations return ErrInvalidArgument. Empty or whitespace-only text yields
// no chunks and no error.
func SplitText(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidArgument, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidArgument, size, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []Chunk
	for seq, start := 0, 0; start < len(runes); seq, start = seq+1, start+step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:   string(runes[start:end]),
			Offset: start,
			Seq:    seq,
		})
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
