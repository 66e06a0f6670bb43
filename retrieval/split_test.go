package retrieval_test

import (
	"strings"
	"testing"

	"pdfchat/retrieval"
)

func TestSplitTextIsDeterministic(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50)

	first := retrieval.SplitText(text, 100, 20)
	second := retrieval.SplitText(text, 100, 20)

	if len(first) == 0 {
		t.Fatal("expected chunks for non-empty text")
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitTextOverlapReconstructsInput(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	size, overlap := 10, 3

	chunks := retrieval.SplitText(text, size, overlap)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > size {
			t.Fatalf("chunk %d exceeds max size: %d", i, len(chunk))
		}
	}

	// Adjacent chunks share exactly the overlap.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		if !strings.HasPrefix(chunks[i], prev[len(prev)-overlap:]) {
			t.Fatalf("chunk %d does not start with the previous chunk's tail", i)
		}
	}

	rebuilt := chunks[0]
	for _, chunk := range chunks[1:] {
		rebuilt += chunk[overlap:]
	}
	if rebuilt != text {
		t.Fatalf("reconstruction mismatch: %q", rebuilt)
	}
}

func TestSplitTextShortInputIsSingleChunk(t *testing.T) {
	chunks := retrieval.SplitText("short", 100, 10)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("expected one chunk containing the input, got %v", chunks)
	}
}

func TestSplitTextEmptyInput(t *testing.T) {
	if chunks := retrieval.SplitText("", 100, 10); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := retrieval.SplitText("   \n\t ", 100, 10); len(chunks) != 0 {
		t.Fatalf("expected no chunks for blank text, got %d", len(chunks))
	}
}
