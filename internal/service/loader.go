package service

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/knowledgerelay/relay/internal/domain"
)

// LoadedPage is one extracted page of a document. Plain text sources load
// as a single page with Page 0.
type LoadedPage struct {
	Text string
	Page int
}

var proseExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

var codeExtensions = map[string]bool{
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".java": true,
	".c":    true,
	".h":    true,
	".cpp":  true,
	".rs":   true,
	".rb":   true,
	".sh":   true,
	".sql":  true,
}

// SupportedFileType reports whether the file's extension has a registered
// loader. Callers must reject unsupported files before any stored state is
// mutated.
func SupportedFileType(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	return ext == ".pdf" || proseExtensions[ext] || codeExtensions[ext]
}

// SplitterFor picks a splitter by file extension. Code files split on
// declaration boundaries, everything else on prose separators.
func SplitterFor(fileName string) Splitter {
	if codeExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return CodeSplitter{}
	}
	return RecursiveSplitter{}
}

// LoadDocument extracts the text content of an uploaded file as pages.
// PDF sources keep their 1-based page numbers; text sources produce one
// unnumbered page.
func LoadDocument(fileName string, data []byte) ([]LoadedPage, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case ext == ".pdf":
		return loadPDF(data)
	case proseExtensions[ext] || codeExtensions[ext]:
		return []LoadedPage{{Text: cleanText(string(data))}}, nil
	default:
		return nil, fmt.Errorf("load %q: %w", fileName, domain.ErrUnsupportedFileType)
	}
}

func loadPDF(data []byte) ([]LoadedPage, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	var pages []LoadedPage
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep what the other pages yield rather than failing the
			// whole document on one malformed page.
			continue
		}
		text = cleanText(text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, LoadedPage{Text: text, Page: i})
	}
	return pages, nil
}

// cleanText drops control characters that confuse embedding models while
// preserving line structure. CRLF and bare CR line endings both become LF.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r) || r == '�':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
