package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how document text is split for embedding.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 900,
		Overlap:  150,
	}
}

// Chunk is one retrieval-sized slice of a document with its provenance.
type Chunk struct {
	Content     string
	Index       int
	FileName    string
	Page        int // 0 when the source is not paginated
	StartOffset int // rune offset within the source page
	EndOffset   int
}

// Splitter breaks one page of text into atomic pieces no larger than
// cfg.MaxChars. Pieces are contiguous: joining them reproduces the input.
// Splitting is deterministic; the same text and config always yield the
// same sequence.
type Splitter interface {
	Split(text string, cfg ChunkConfig) []string
}

// RecursiveSplitter splits prose along a separator priority: paragraph,
// line, sentence, word, and finally a raw rune window. Each level is only
// applied to fragments the level above left too large.
type RecursiveSplitter struct{}

var proseSeparators = []string{"\n\n", "\n", ". ", " "}

func (RecursiveSplitter) Split(text string, cfg ChunkConfig) []string {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	return splitRecursive(text, proseSeparators, cfg.MaxChars)
}

func splitRecursive(text string, separators []string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= maxChars {
		return []string{text}
	}
	if len(separators) == 0 {
		return splitRunes(text, maxChars)
	}

	parts := strings.SplitAfter(text, separators[0])
	if len(parts) == 1 {
		return splitRecursive(text, separators[1:], maxChars)
	}

	var out []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len([]rune(part)) <= maxChars {
			out = append(out, part)
			continue
		}
		out = append(out, splitRecursive(part, separators[1:], maxChars)...)
	}
	return out
}

func splitRunes(text string, maxChars int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// CodeSplitter splits source code on top-level declaration boundaries so a
// chunk never starts mid-function, falling back to line/word splitting for
// oversized declarations.
type CodeSplitter struct{}

func (CodeSplitter) Split(text string, cfg ChunkConfig) []string {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	var pieces []string
	for _, block := range splitDeclarations(text) {
		if len([]rune(block)) <= cfg.MaxChars {
			pieces = append(pieces, block)
			continue
		}
		pieces = append(pieces, splitRecursive(block, []string{"\n", " "}, cfg.MaxChars)...)
	}
	return pieces
}

// declarationKeywords start a new top-level block in the languages the
// loader registry accepts.
var declarationKeywords = []string{
	"func ", "type ", "class ", "def ", "fn ", "function ", "impl ",
	"public ", "private ", "protected ", "static ", "struct ", "interface ",
	"enum ", "module ", "package ", "const ", "var ",
}

func splitDeclarations(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	var blocks []string
	var current strings.Builder

	for i, line := range lines {
		if i > 0 && startsDeclaration(line) && current.Len() > 0 {
			blocks = append(blocks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}

	if current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}

func startsDeclaration(line string) bool {
	if line == "" || unicode.IsSpace(rune(line[0])) {
		return false
	}
	for _, kw := range declarationKeywords {
		if strings.HasPrefix(line, kw) {
			return true
		}
	}
	return false
}

// SplitPages applies the splitter to each loaded page in order and merges
// the atomic pieces into chunks close to MaxChars, carrying Overlap runes
// of trailing context into each following chunk. Chunk indexes run across
// the whole document so vector ids stay unique.
func SplitPages(pages []LoadedPage, fileName string, splitter Splitter, cfg ChunkConfig) []Chunk {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	var chunks []Chunk
	for _, page := range pages {
		for _, span := range mergePieces(splitter.Split(page.Text, cfg), page.Text, cfg) {
			content := strings.TrimSpace(span.content)
			if content == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Content:     content,
				Index:       len(chunks),
				FileName:    fileName,
				Page:        page.Page,
				StartOffset: span.start,
				EndOffset:   span.end,
			})
		}
	}
	return chunks
}

type chunkSpan struct {
	content string
	start   int
	end     int
}

// mergePieces packs contiguous pieces into spans of at most MaxChars and
// then widens each span's start backwards by Overlap runes of the original
// text, clamped to the page start.
func mergePieces(pieces []string, text string, cfg ChunkConfig) []chunkSpan {
	runes := []rune(text)

	type group struct{ start, end int }
	var groups []group
	pos := 0
	cur := group{start: 0, end: 0}

	for _, piece := range pieces {
		pieceLen := len([]rune(piece))
		if cur.end > cur.start && cur.end-cur.start+pieceLen > cfg.MaxChars {
			groups = append(groups, cur)
			cur = group{start: pos, end: pos}
		}
		pos += pieceLen
		cur.end = pos
	}
	if cur.end > cur.start {
		groups = append(groups, cur)
	}

	spans := make([]chunkSpan, 0, len(groups))
	for i, g := range groups {
		start := g.start
		if i > 0 && cfg.Overlap > 0 {
			start -= cfg.Overlap
			if start < groups[i-1].start {
				start = groups[i-1].start
			}
		}
		spans = append(spans, chunkSpan{
			content: string(runes[start:g.end]),
			start:   start,
			end:     g.end,
		})
	}
	return spans
}
