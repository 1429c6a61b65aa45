// Package pdf extracts per-instrument files from a score book and
// normalizes page orientation, backed by pdfcpu.
package pdf

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// OrientationThreshold is the landscape share above which a document is
// normalized to landscape instead of portrait.
const OrientationThreshold = 0.6

// SplitFile is one extracted instrument part.
type SplitFile struct {
	Part     core.InstrumentPart
	Filename string
	Content  []byte
}

// Splitter extracts page ranges from score books.
type Splitter struct {
	logger *slog.Logger
}

// NewSplitter creates a splitter.
func NewSplitter(logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{logger: logger}
}

// PageCount returns the number of pages in the document.
func (s *Splitter) PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), nil)
	if err != nil {
		return 0, core.ErrValidation(core.CodeNotPDF, "counting pages").WithCause(err)
	}
	return n, nil
}

// Split extracts one file per part from the score book. Page bounds are
// swapped when reversed and clamped to the document, matching what a
// slightly wrong prediction most plausibly meant. Parts without a name
// or start page are skipped.
func (s *Splitter) Split(doc []byte, parts []core.InstrumentPart) ([]SplitFile, error) {
	total, err := s.PageCount(doc)
	if err != nil {
		return nil, err
	}

	files := make([]SplitFile, 0, len(parts))
	for idx, part := range parts {
		if !part.Valid() {
			s.logger.Warn("skipping part without name or start page", "index", idx)
			continue
		}

		start, end := part.StartPage, part.EndPage
		if end == 0 {
			end = start
		}
		if start > end {
			start, end = end, start
		}
		start = clamp(start, 1, total)
		end = clamp(end, 1, total)

		var buf bytes.Buffer
		pages := []string{fmt.Sprintf("%d-%d", start, end)}
		if err := api.Trim(bytes.NewReader(doc), &buf, pages, nil); err != nil {
			return nil, fmt.Errorf("extracting pages %d-%d for %s: %w", start, end, part.Name, err)
		}

		clamped := part
		clamped.StartPage, clamped.EndPage = start, end
		files = append(files, SplitFile{
			Part:     clamped,
			Filename: PartFilename(idx+1, part.Name, part.Voice),
			Content:  buf.Bytes(),
		})
		s.logger.Debug("extracted part",
			"name", part.Name, "voice", part.Voice, "pages", pages[0], "size", buf.Len())
	}
	return files, nil
}

// WriteFiles writes extracted parts into dir. Each file is written
// atomically, so an interrupted run never leaves half a part behind.
func (s *Splitter) WriteFiles(files []SplitFile, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.Filename)
		if err := renameio.WriteFile(path, f.Content, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// NormalizeOrientation rotates pages so the whole document shares one
// orientation. When more than OrientationThreshold of the pages are
// landscape the target is landscape, otherwise portrait; only pages in
// the minority orientation are rotated. The returned bool reports
// whether any page changed.
func (s *Splitter) NormalizeOrientation(doc []byte) ([]byte, bool, error) {
	dims, err := api.PageDims(bytes.NewReader(doc), nil)
	if err != nil {
		return nil, false, core.ErrValidation(core.CodeNotPDF, "reading page dimensions").WithCause(err)
	}
	if len(dims) == 0 {
		return doc, false, nil
	}

	landscape := 0
	for _, d := range dims {
		if d.Landscape() {
			landscape++
		}
	}
	targetLandscape := float64(landscape)/float64(len(dims)) > OrientationThreshold

	var rotate []string
	for i, d := range dims {
		if d.Landscape() != targetLandscape {
			rotate = append(rotate, fmt.Sprintf("%d", i+1))
		}
	}
	if len(rotate) == 0 {
		return doc, false, nil
	}

	s.logger.Debug("normalizing orientation",
		"pages", len(dims), "landscape", landscape, "target_landscape", targetLandscape, "rotating", len(rotate))

	var buf bytes.Buffer
	if err := api.Rotate(bytes.NewReader(doc), &buf, 90, rotate, nil); err != nil {
		return nil, false, fmt.Errorf("rotating %d pages: %w", len(rotate), err)
	}
	return buf.Bytes(), true, nil
}

var (
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.\-]+`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// PartFilename builds the output filename for the idx-th part, 1-based:
// "01 - Trumpet 1.pdf". The voice suffix is omitted for voiceless parts.
func PartFilename(idx int, name, voice string) string {
	label := name
	v := strings.TrimSpace(voice)
	switch strings.ToLower(v) {
	case "", "null", "none":
	default:
		label += " " + v
	}
	return fmt.Sprintf("%02d - %s.pdf", idx, sanitizeFilename(label))
}

func sanitizeFilename(text string) string {
	text = unsafeChars.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRuns.ReplaceAllString(text, " "))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
