// Package source retrieves score documents from local paths, URLs and
// readers, enforcing the size cap and PDF signature check before any
// bytes reach the analysis pipeline.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// DefaultMaxSize caps retrieved documents at 32 MiB, the upload limit of
// the analysis service.
const DefaultMaxSize int64 = 32 << 20

var pdfMagic = []byte("%PDF")

// Retriever fetches score documents with a size cap.
type Retriever struct {
	maxSize int64
	client  *http.Client
}

// Option configures a retriever.
type Option func(*Retriever)

// WithMaxSize overrides the document size cap.
func WithMaxSize(n int64) Option {
	return func(r *Retriever) {
		r.maxSize = n
	}
}

// WithHTTPClient overrides the HTTP client used for URL retrieval.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Retriever) {
		r.client = c
	}
}

// NewRetriever creates a retriever with the default cap.
func NewRetriever(opts ...Option) *Retriever {
	r := &Retriever{
		maxSize: DefaultMaxSize,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromPath reads a PDF document from the local filesystem.
func (r *Retriever) FromPath(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > r.maxSize {
		return nil, errTooLarge(info.Size(), r.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return r.validate(data)
}

// FromURL downloads a PDF document. The body read is capped, so an
// oversized or unbounded response fails instead of exhausting memory.
func (r *Retriever) FromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("invalid document URL %q", url)).WithCause(err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, core.ErrNetwork(fmt.Sprintf("fetching document from %s", url)).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.ErrNetwork(fmt.Sprintf("fetching document from %s: status %d", url, resp.StatusCode))
	}
	if resp.ContentLength > r.maxSize {
		return nil, errTooLarge(resp.ContentLength, r.maxSize)
	}

	return r.FromReader(resp.Body)
}

// FromReader reads a PDF document from an arbitrary reader with the cap
// applied.
func (r *Retriever) FromReader(reader io.Reader) ([]byte, error) {
	// Read one byte past the cap to distinguish at-cap from over-cap.
	data, err := io.ReadAll(io.LimitReader(reader, r.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if int64(len(data)) > r.maxSize {
		return nil, errTooLarge(int64(len(data)), r.maxSize)
	}
	return r.validate(data)
}

func (r *Retriever) validate(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, core.ErrValidation(core.CodeEmptyDocument, "document is empty")
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, core.ErrValidation(core.CodeNotPDF, "document does not start with a PDF signature")
	}
	return data, nil
}

func errTooLarge(size, limit int64) error {
	return core.ErrValidation(core.CodeFileTooLarge,
		fmt.Sprintf("document size %d exceeds the %d byte limit", size, limit))
}
