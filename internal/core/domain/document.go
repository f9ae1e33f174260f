package domain

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// ImageTextMarker prefixes text recognised inside an embedded image.
const ImageTextMarker = "[Image Text]: "

// DateLayout is the layout of Chunk.CreatedAt.
const DateLayout = "2006-01-02"

// Page is the text recovered from one PDF page.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the page text. Image OCR fragments are appended
	// after the native text, each prefixed with ImageTextMarker.
	Text string

	// OCR is true when Text came from a full-page OCR pass.
	OCR bool
}

// Document is a single ingested PDF.
type Document struct {
	// ID is a generated identifier, unique per ingestion run.
	ID string

	// Title is derived from the file name (see TitleFromPath).
	Title string

	// SourcePath is the path the PDF was read from.
	SourcePath string

	// Pages are the extracted pages in page order.
	Pages []Page

	// Content is the cleaned, stitched text the chunker splits.
	Content string

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// SourceFile returns the base name of the source path.
func (d *Document) SourceFile() string {
	return filepath.Base(d.SourcePath)
}

// Chunk is an overlapping window of cleaned document text.
// Chunks of one document have sequential indices starting at 0.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Title is the parent document title.
	Title string

	// SourceFile is the path of the source PDF as it was given to ingest.
	SourceFile string

	// Index is the ordinal position within the document.
	Index int

	// Text is the chunk content.
	Text string

	// CreatedAt is the ingestion date formatted with DateLayout.
	CreatedAt string

	// ContentHash is set once the chunk has been indexed.
	ContentHash string

	// Metadata holds any additional fields carried in the chunk record.
	Metadata map[string]any
}

// TitleFromPath turns "money_basics.pdf" into "Money Basics".
func TitleFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.Fields(strings.ReplaceAll(stem, "_", " "))
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	runes := []rune(strings.ToLower(w))
	start := true
	for i, r := range runes {
		if unicode.IsLetter(r) {
			if start {
				runes[i] = unicode.ToUpper(r)
			}
			start = false
		} else {
			start = true
		}
	}
	return string(runes)
}

// IngestedFile records a PDF that has been turned into a chunk file.
type IngestedFile struct {
	// Path is the source PDF path.
	Path string

	// OutputPath is the chunk file written for it.
	OutputPath string

	// Chunks is the number of chunks written.
	Chunks int

	// ModTime and Size identify the version of the PDF that was ingested.
	ModTime time.Time
	Size    int64

	// IngestedAt is when the file was processed.
	IngestedAt time.Time
}

// Unchanged reports whether a file with the given modification time
// and size is the version already ingested.
func (f *IngestedFile) Unchanged(modTime time.Time, size int64) bool {
	return f.Size == size && f.ModTime.Equal(modTime)
}

// PDFFile identifies one version of a PDF on disk.
type PDFFile struct {
	Path    string
	ModTime time.Time
	Size    int64
}
