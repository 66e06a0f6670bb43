package retrieval

import "strings"

const (
	DefaultChunkSize    = 10000
	DefaultChunkOverlap = 1000
)

// SplitText slices text into chunks of at most size runes, each sharing
// overlap runes with its predecessor. Splitting is deterministic: the same
// input and parameters always produce the same chunks, and concatenating the
// chunks minus their overlaps reconstructs the input.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
