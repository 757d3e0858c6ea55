package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveSplitter_SmallTextSinglePiece(t *testing.T) {
	pieces := RecursiveSplitter{}.Split("short text", DefaultChunkConfig())

	require.Len(t, pieces, 1)
	assert.Equal(t, "short text", pieces[0])
}

func TestRecursiveSplitter_PiecesAreContiguous(t *testing.T) {
	text := strings.Repeat("First paragraph with some sentences. More detail here.\n\n", 40)
	cfg := ChunkConfig{MaxChars: 100, Overlap: 20}

	pieces := RecursiveSplitter{}.Split(text, cfg)

	require.Greater(t, len(pieces), 1)
	assert.Equal(t, text, strings.Join(pieces, ""))
	for _, piece := range pieces {
		assert.LessOrEqual(t, len([]rune(piece)), cfg.MaxChars)
	}
}

func TestRecursiveSplitter_Deterministic(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta. Second sentence here.\nNew line content.\n\n", 30)
	cfg := ChunkConfig{MaxChars: 120, Overlap: 30}

	first := RecursiveSplitter{}.Split(text, cfg)
	second := RecursiveSplitter{}.Split(text, cfg)

	assert.Equal(t, first, second)
}

func TestRecursiveSplitter_NoSeparatorsFallsBackToRuneWindow(t *testing.T) {
	text := strings.Repeat("a", 250)
	pieces := RecursiveSplitter{}.Split(text, ChunkConfig{MaxChars: 100, Overlap: 0})

	require.Len(t, pieces, 3)
	assert.Equal(t, 100, len(pieces[0]))
	assert.Equal(t, 100, len(pieces[1]))
	assert.Equal(t, 50, len(pieces[2]))
}

func TestCodeSplitter_BreaksOnDeclarations(t *testing.T) {
	code := "package main\n\nfunc first() {\n\treturn\n}\n\nfunc second() {\n\treturn\n}\n"
	cfg := ChunkConfig{MaxChars: 60, Overlap: 0}

	pieces := CodeSplitter{}.Split(code, cfg)

	require.GreaterOrEqual(t, len(pieces), 2)
	assert.Equal(t, code, strings.Join(pieces, ""))

	// No piece starts midway through a function body.
	for _, piece := range pieces[1:] {
		first := strings.SplitN(piece, "\n", 2)[0]
		if first != "" {
			assert.False(t, strings.HasPrefix(first, "\t"), "piece starts mid-block: %q", piece)
		}
	}
}

func TestSplitPages_IndexesRunAcrossPages(t *testing.T) {
	pages := []LoadedPage{
		{Text: strings.Repeat("Page one prose content. ", 20), Page: 1},
		{Text: strings.Repeat("Page two prose content. ", 20), Page: 2},
	}
	cfg := ChunkConfig{MaxChars: 100, Overlap: 20}

	chunks := SplitPages(pages, "manual.pdf", RecursiveSplitter{}, cfg)

	require.Greater(t, len(chunks), 2)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, "manual.pdf", chunk.FileName)
		assert.NotEmpty(t, chunk.Content)
	}

	var sawSecondPage bool
	for _, chunk := range chunks {
		if chunk.Page == 2 {
			sawSecondPage = true
		}
	}
	assert.True(t, sawSecondPage)
}

func TestSplitPages_OverlapCarriesTrailingContext(t *testing.T) {
	text := strings.Repeat("word ", 200)
	cfg := ChunkConfig{MaxChars: 100, Overlap: 30}

	chunks := SplitPages([]LoadedPage{{Text: text}}, "notes.txt", RecursiveSplitter{}, cfg)

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].StartOffset, chunks[i-1].EndOffset,
			"chunk %d should start inside the previous chunk's span", i)
	}
}

func TestSplitPages_DeterministicAcrossRuns(t *testing.T) {
	pages := []LoadedPage{{Text: strings.Repeat("Deterministic chunking input. Sentence two.\n\n", 25), Page: 1}}
	cfg := DefaultChunkConfig()

	first := SplitPages(pages, "a.md", RecursiveSplitter{}, cfg)
	second := SplitPages(pages, "a.md", RecursiveSplitter{}, cfg)

	assert.Equal(t, first, second)
}
