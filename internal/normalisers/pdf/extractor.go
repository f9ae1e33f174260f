// Package pdf extracts page text from PDF files using poppler-utils,
// with tesseract OCR for embedded images and image-only pages.
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Required and OCR tool names.
const (
	toolInfo   = "pdfinfo"
	toolText   = "pdftotext"
	toolImages = "pdfimages"
	toolRender = "pdftoppm"
	toolOCR    = "tesseract"
)

var pagesLine = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)

// Extractor reads PDFs page by page.
type Extractor struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
	settings domain.ExtractionSettings

	ocrOnce sync.Once
	ocrOK   bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option {
	return func(e *Extractor) {
		e.runner = r
	}
}

// WithLookPath replaces the PATH lookup used to find tools.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(e *Extractor) {
		e.lookPath = fn
	}
}

// New creates an extractor. Zero settings fields take their defaults.
func New(settings domain.ExtractionSettings, opts ...Option) *Extractor {
	defaults := domain.DefaultExtractionSettings()
	if settings.DPI <= 0 {
		settings.DPI = defaults.DPI
	}
	if settings.OCRThreshold <= 0 {
		settings.OCRThreshold = defaults.OCRThreshold
	}
	if settings.MinImageSize <= 0 {
		settings.MinImageSize = defaults.MinImageSize
	}
	if settings.MinImageArea <= 0 {
		settings.MinImageArea = defaults.MinImageArea
	}
	if settings.MinImageTextChars <= 0 {
		settings.MinImageTextChars = defaults.MinImageTextChars
	}
	if settings.Language == "" {
		settings.Language = defaults.Language
	}
	if settings.Workers <= 0 {
		settings.Workers = defaults.Workers
	}

	e := &Extractor{
		runner:   execRunner{},
		lookPath: exec.LookPath,
		settings: settings,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the effective extraction settings.
func (e *Extractor) Settings() domain.ExtractionSettings {
	return e.settings
}

// CheckAvailable returns domain.ErrToolNotFound if the text tools are missing.
func (e *Extractor) CheckAvailable() error {
	for _, tool := range []string{toolInfo, toolText} {
		if _, err := e.lookPath(tool); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrToolNotFound, tool)
		}
	}
	return nil
}

// OCRAvailable reports whether OCR tools are installed. Probed once.
func (e *Extractor) OCRAvailable() bool {
	e.ocrOnce.Do(func() {
		e.ocrOK = true
		for _, tool := range []string{toolOCR, toolRender, toolImages} {
			if _, err := e.lookPath(tool); err != nil {
				logger.Debug("pdf: %s not found, OCR disabled", tool)
				e.ocrOK = false
				return
			}
		}
	})
	return e.ocrOK
}

// InstallInstructions returns help text for installing the external tools.
func InstallInstructions() string {
	return `PDF extraction requires poppler-utils (pdfinfo, pdftotext, pdfimages, pdftoppm).
OCR of scanned pages and images additionally requires tesseract.

Install with:
  macOS:  brew install poppler tesseract
  Ubuntu: sudo apt install poppler-utils tesseract-ocr
  Fedora: sudo dnf install poppler-utils tesseract`
}

// Extract returns the text of every page of the PDF at path, in page order.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err := e.CheckAvailable(); err != nil {
		return nil, err
	}

	count, err := e.pageCount(ctx, path)
	if err != nil {
		return nil, err
	}

	ocr := e.OCRAvailable()

	tmp, err := os.MkdirTemp("", "finlit-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	logger.Debug("pdf: %s has %d pages (ocr=%v)", filepath.Base(path), count, ocr)

	pages := make([]domain.Page, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.settings.Workers)

	for i := range pages {
		g.Go(func() error {
			pages[i] = e.extractPage(gctx, path, i+1, ocr, tmp)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pages, nil
}

func (e *Extractor) pageCount(ctx context.Context, path string) (int, error) {
	out, err := e.runner.Run(ctx, toolInfo, path)
	if err != nil {
		return 0, fmt.Errorf("%w: read page count: %v", domain.ErrExtraction, err)
	}

	m := pagesLine.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("%w: no page count in pdfinfo output", domain.ErrExtraction)
	}

	n, err := strconv.Atoi(string(m[1]))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: document has no pages", domain.ErrExtraction)
	}
	return n, nil
}

func (e *Extractor) extractPage(ctx context.Context, path string, num int, ocr bool, tmp string) domain.Page {
	page := strconv.Itoa(num)

	native, err := e.runner.Run(ctx, toolText, "-layout", "-f", page, "-l", page, "-enc", "UTF-8", path, "-")
	if err != nil {
		logger.Warn("pdf: text of page %d of %s: %v", num, filepath.Base(path), err)
	}

	parts := []string{strings.TrimSpace(string(native))}

	if e.settings.ExtractImages && ocr {
		for _, text := range e.imageTexts(ctx, path, num, tmp) {
			parts = append(parts, domain.ImageTextMarker+text)
		}
	}

	combined := strings.Join(parts, "\n")

	if ocr {
		bare := strings.TrimSpace(strings.ReplaceAll(combined, strings.TrimSpace(domain.ImageTextMarker), ""))
		if utf8.RuneCountInString(bare) < e.settings.OCRThreshold {
			if text := e.ocrPage(ctx, path, num, tmp); text != "" {
				return domain.Page{Number: num, Text: text, OCR: true}
			}
		}
	}

	return domain.Page{Number: num, Text: combined}
}

// imageTexts OCRs the embedded images of a page that are large enough
// to carry text and returns the meaningful results.
func (e *Extractor) imageTexts(ctx context.Context, path string, num int, tmp string) []string {
	page := strconv.Itoa(num)

	list, err := e.runner.Run(ctx, toolImages, "-list", "-f", page, "-l", page, path)
	if err != nil {
		logger.Warn("pdf: list images on page %d: %v", num, err)
		return nil
	}

	ids := e.selectImages(list)
	if len(ids) == 0 {
		return nil
	}

	prefix := filepath.Join(tmp, fmt.Sprintf("img-p%d", num))
	if _, err := e.runner.Run(ctx, toolImages, "-png", "-f", page, "-l", page, path, prefix); err != nil {
		logger.Warn("pdf: extract images on page %d: %v", num, err)
		return nil
	}

	var texts []string
	for _, id := range ids {
		file := fmt.Sprintf("%s-%03d.png", prefix, id)
		if _, err := os.Stat(file); err != nil {
			continue
		}
		text := e.ocrImage(ctx, file)
		if utf8.RuneCountInString(text) < e.settings.MinImageTextChars {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}

// selectImages parses `pdfimages -list` output and returns the numbers
// of images passing the size filters.
//
//	page   num  type   width height color comp bpc  enc interp  object ID x-ppi y-ppi size ratio
//	--------------------------------------------------------------------------------------------
//	   1     0 image    1275  1650  rgb     3   8  jpeg   no        12  0   150   150  123K 5.2%
func (e *Extractor) selectImages(list []byte) []int {
	var ids []int
	scanner := bufio.NewScanner(bytes.NewReader(list))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[2] != "image" {
			continue
		}
		id, err1 := strconv.Atoi(fields[1])
		w, err2 := strconv.Atoi(fields[3])
		h, err3 := strconv.Atoi(fields[4])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if w < e.settings.MinImageSize || h < e.settings.MinImageSize {
			continue
		}
		if w*h < e.settings.MinImageArea {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (e *Extractor) ocrPage(ctx context.Context, path string, num int, tmp string) string {
	page := strconv.Itoa(num)
	prefix := filepath.Join(tmp, fmt.Sprintf("page-%d", num))

	_, err := e.runner.Run(ctx, toolRender,
		"-r", strconv.Itoa(e.settings.DPI),
		"-f", page, "-l", page,
		"-png", "-singlefile",
		path, prefix)
	if err != nil {
		logger.Warn("pdf: render page %d of %s: %v", num, filepath.Base(path), err)
		return ""
	}

	return e.ocrImage(ctx, prefix+".png")
}

func (e *Extractor) ocrImage(ctx context.Context, file string) string {
	out, err := e.runner.Run(ctx, toolOCR, file, "stdout", "-l", e.settings.Language)
	if err != nil {
		logger.Warn("pdf: ocr %s: %v", filepath.Base(file), err)
		return ""
	}
	return strings.TrimSpace(string(out))
}
