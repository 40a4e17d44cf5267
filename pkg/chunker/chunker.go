// Package chunker splits long documents into pieces small enough to
// summarize one at a time.
package chunker

import (
	"strings"
	"unicode"
)

const defaultMaxTokens = 512

// Chunk is one piece of a document.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

// Chunker splits text on paragraph and sentence boundaries. A sentence longer
// than MaxTokens is split between words.
type Chunker struct {
	MaxTokens int // Maximum tokens per chunk (default: 512)
	Overlap   int // Tokens of trailing context repeated at the start of the next chunk (default: none)
}

type unit struct {
	text      string
	tokens    int
	paragraph bool // first sentence of a paragraph
}

// Chunk splits text into chunks in document order.
func (c *Chunker) Chunk(text string) []Chunk {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= maxTokens {
		overlap = 0
	}

	units := splitUnits(text, maxTokens)
	if len(units) == 0 {
		return []Chunk{}
	}

	var chunks []Chunk
	var current []unit
	tokens := 0

	flush := func() {
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       joinUnits(current),
			TokenCount: tokens,
		})
	}

	for _, u := range units {
		if tokens+u.tokens > maxTokens && len(current) > 0 {
			flush()
			current = tail(current, overlap)
			tokens = countUnits(current)
			// keep room for u even if that means dropping the overlap
			if tokens+u.tokens > maxTokens {
				current, tokens = nil, 0
			}
		}
		current = append(current, u)
		tokens += u.tokens
	}
	if len(current) > 0 {
		flush()
	}
	return chunks
}

// splitUnits breaks text into sentences, marking paragraph starts and cutting
// sentences that alone exceed maxTokens.
func splitUnits(text string, maxTokens int) []unit {
	var units []unit
	for _, para := range splitParagraphs(text) {
		first := true
		for _, sentence := range splitSentences(para) {
			for _, piece := range splitWords(sentence, maxTokens) {
				units = append(units, unit{text: piece, tokens: countTokens(piece), paragraph: first})
				first = false
			}
		}
	}
	return units
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// splitSentences splits on ., ! or ? followed by whitespace or the end of text.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func splitWords(sentence string, maxTokens int) []string {
	words := strings.Fields(sentence)
	if len(words) <= maxTokens {
		return []string{strings.Join(words, " ")}
	}
	var pieces []string
	for start := 0; start < len(words); start += maxTokens {
		end := min(start+maxTokens, len(words))
		pieces = append(pieces, strings.Join(words[start:end], " "))
	}
	return pieces
}

func joinUnits(units []unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			if u.paragraph {
				b.WriteString("\n\n")
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(u.text)
	}
	return b.String()
}

// tail returns the trailing units holding at most overlapTokens tokens.
func tail(units []unit, overlapTokens int) []unit {
	if overlapTokens == 0 {
		return nil
	}
	total := 0
	start := len(units)
	for i := len(units) - 1; i >= 0; i-- {
		if total+units[i].tokens > overlapTokens {
			break
		}
		total += units[i].tokens
		start = i
	}
	out := make([]unit, len(units)-start)
	copy(out, units[start:])
	if len(out) > 0 {
		out[0].paragraph = false
	}
	return out
}

// countTokens estimates tokens as whitespace-separated words.
func countTokens(text string) int {
	return len(strings.Fields(text))
}

func countUnits(units []unit) int {
	total := 0
	for _, u := range units {
		total += u.tokens
	}
	return total
}
