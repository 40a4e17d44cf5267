package chunker

import (
	"strings"
	"testing"
)

func TestChunkerBasicChunking(t *testing.T) {
	c := Chunker{MaxTokens: 10}

	text := "This is a test. It has multiple sentences. Each sentence should be respected."
	chunks := c.Chunk(text)

	if len(chunks) < 2 {
		t.Fatalf("Expected at least two chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Text == "" {
			t.Errorf("Chunk %d missing Text", i)
		}
		if chunk.Index != i {
			t.Errorf("Chunk %d has wrong Index: got %d, want %d", i, chunk.Index, i)
		}
		if chunk.TokenCount == 0 {
			t.Errorf("Chunk %d has zero TokenCount", i)
		}
		if chunk.TokenCount > c.MaxTokens {
			t.Errorf("Chunk %d exceeds MaxTokens: got %d, want <= %d", i, chunk.TokenCount, c.MaxTokens)
		}
	}
}

func TestChunkerNoOverlapCoversTextOnce(t *testing.T) {
	c := Chunker{MaxTokens: 4}

	text := "One two. Three four. Five six. Seven eight."
	chunks := c.Chunk(text)

	var words []string
	for _, chunk := range chunks {
		words = append(words, strings.Fields(chunk.Text)...)
	}
	if got := strings.Join(words, " "); got != text {
		t.Errorf("Chunks do not reassemble the text:\n got %q\nwant %q", got, text)
	}
}

func TestChunkerOverlap(t *testing.T) {
	c := Chunker{MaxTokens: 6, Overlap: 2}

	text := "One two. Three four. Five six. Seven eight. Nine ten."
	chunks := c.Chunk(text)

	if len(chunks) < 2 {
		t.Fatalf("Expected at least 2 chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		prev := strings.Fields(chunks[i].Text)
		lastSentence := strings.Join(prev[len(prev)-2:], " ")
		if !strings.HasPrefix(chunks[i+1].Text, lastSentence) {
			t.Errorf("Chunk %d does not start with the tail of chunk %d: %q / %q", i+1, i, chunks[i+1].Text, chunks[i].Text)
		}
	}
}

func TestChunkerEmptyInput(t *testing.T) {
	c := Chunker{MaxTokens: 10}

	for _, text := range []string{"", "   \n\n  "} {
		if chunks := c.Chunk(text); len(chunks) != 0 {
			t.Errorf("Expected no chunks for %q, got %d", text, len(chunks))
		}
	}
}

func TestChunkerVeryShortInput(t *testing.T) {
	c := Chunker{MaxTokens: 10}

	chunks := c.Chunk("Hi")
	if len(chunks) != 1 || chunks[0].Text != "Hi" {
		t.Errorf("Expected a single 'Hi' chunk, got %+v", chunks)
	}
}

func TestChunkerSentenceBoundaries(t *testing.T) {
	c := Chunker{MaxTokens: 5}

	chunks := c.Chunk("First sentence here. Second sentence here. Third sentence here.")

	for i, chunk := range chunks {
		last := chunk.Text[len(chunk.Text)-1]
		if last != '.' {
			t.Errorf("Chunk %d breaks mid-sentence: %q", i, chunk.Text)
		}
	}
}

func TestChunkerKeepsParagraphBreaks(t *testing.T) {
	c := Chunker{MaxTokens: 100}

	chunks := c.Chunk("Intro line one. Intro line two.\n\nSecond paragraph.")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	want := "Intro line one. Intro line two.\n\nSecond paragraph."
	if chunks[0].Text != want {
		t.Errorf("got %q, want %q", chunks[0].Text, want)
	}
}

func TestChunkerSplitsOversizedSentence(t *testing.T) {
	c := Chunker{MaxTokens: 3}

	chunks := c.Chunk("a b c d e f g")
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	for _, chunk := range chunks {
		if chunk.TokenCount > 3 {
			t.Errorf("Chunk %d exceeds MaxTokens: %q", chunk.Index, chunk.Text)
		}
	}
}

func TestChunkerDefaults(t *testing.T) {
	var c Chunker
	text := strings.Repeat("word ", 600)

	chunks := c.Chunk(text)
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks at the default size, got %d", len(chunks))
	}
	if chunks[0].TokenCount != defaultMaxTokens {
		t.Errorf("Expected first chunk of %d tokens, got %d", defaultMaxTokens, chunks[0].TokenCount)
	}
}
