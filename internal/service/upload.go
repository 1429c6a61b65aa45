// Package service implements the consensus analysis pipeline: the
// content-addressed upload cache, the replicated invoker, the consensus
// aggregator, and the orchestrator that composes them.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// Digest returns the SHA-256 hex digest of document bytes. Two documents
// with equal digest are treated as identical content regardless of name.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// UploadCache maps content digests to remote file IDs so identical
// documents are transferred at most once per process.
//
// Concurrent resolvers for the same digest share a single in-flight
// transfer. A failed transfer is not recorded, so the next Resolve for
// that digest retries.
type UploadCache struct {
	uploader core.Uploader
	logger   *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	records map[string]string // digest -> remote file ID
}

// NewUploadCache creates an upload cache backed by the given uploader.
func NewUploadCache(uploader core.Uploader, logger *slog.Logger) *UploadCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadCache{
		uploader: uploader,
		logger:   logger,
		records:  make(map[string]string),
	}
}

// Resolve returns the remote file ID for the given document content,
// uploading it first if this digest has not been registered yet.
func (c *UploadCache) Resolve(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", core.ErrValidation(core.CodeEmptyDocument, "document is empty")
	}
	digest := Digest(data)

	if id, ok := c.Lookup(digest); ok {
		c.logger.Debug("upload cache hit", "digest", digest, "file_id", id)
		return id, nil
	}

	v, err, shared := c.group.Do(digest, func() (interface{}, error) {
		// Re-check: a previous flight may have registered the digest
		// between the miss above and entering the flight.
		if id, ok := c.Lookup(digest); ok {
			return id, nil
		}

		c.logger.Debug("uploading document", "digest", digest, "size", len(data))
		id, err := c.uploader.Upload(ctx, digest+".pdf", data)
		if err != nil {
			return "", core.ErrTransfer("uploading document").WithCause(err)
		}

		c.mu.Lock()
		c.records[digest] = id
		c.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("upload shared with in-flight transfer", "digest", digest)
	}
	return v.(string), nil
}

// Lookup returns the registered remote file ID for a digest, if any.
func (c *UploadCache) Lookup(digest string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.records[digest]
	return id, ok
}

// Len returns the number of registered digests.
func (c *UploadCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
