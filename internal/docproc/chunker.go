package docproc

import (
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// WindowChunker splits documents into overlapping word windows, tracking the
// nearest markdown heading for each window.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker creates a chunker. size is the window length in words,
// overlap the number of words shared between consecutive windows.
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &WindowChunker{size: size, overlap: overlap}
}

type taggedWord struct {
	word    string
	heading string
}

// Chunk produces chunk candidates for a converted document.
// A document without any words yields no candidates.
func (c *WindowChunker) Chunk(doc *domain.ConvertedDocument) []domain.ChunkCandidate {
	if doc == nil {
		return nil
	}

	words := tagWords(doc.Text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap

	var candidates []domain.ChunkCandidate
	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}

		parts := make([]string, end-start)
		for i := start; i < end; i++ {
			parts[i-start] = words[i].word
		}

		candidates = append(candidates, domain.ChunkCandidate{
			Text:    strings.Join(parts, " "),
			Heading: words[start].heading,
		})

		if end == len(words) {
			break
		}
	}

	return candidates
}

// Contextualize prefixes the chunk text with its section heading so the
// embedding carries document structure.
func (c *WindowChunker) Contextualize(cand domain.ChunkCandidate) string {
	if cand.Heading == "" {
		return cand.Text
	}
	return cand.Heading + "\n\n" + cand.Text
}

// tagWords flattens the text into words, each carrying the most recent
// markdown heading. Heading lines themselves are not emitted as words.
func tagWords(text string) []taggedWord {
	var words []taggedWord
	heading := ""

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			if h := strings.TrimSpace(strings.TrimLeft(trimmed, "#")); h != "" {
				heading = h
				continue
			}
		}
		for _, w := range strings.Fields(line) {
			words = append(words, taggedWord{word: w, heading: heading})
		}
	}

	return words
}
