// Package cache tracks what an incremental compile needs to know about
// sources between compiles: content hashes, so unchanged modifications
// are skipped, and the dependency graph between sources, so dependents
// of a changed source are unbound and rebound with it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"
)

// HashContent returns the hex SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex SHA-256 of a file's contents.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// SourceHashes remembers the hash of the last compiled content of each source.
type SourceHashes struct {
	mu     sync.RWMutex
	hashes map[string]string
}

func NewSourceHashes() *SourceHashes {
	return &SourceHashes{hashes: make(map[string]string)}
}

// Changed reports whether content differs from what was last recorded for
// the source. Unknown sources are always changed.
func (h *SourceHashes) Changed(sourceID string, content []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	hash, ok := h.hashes[sourceID]
	return !ok || hash != HashContent(content)
}

// Record stores the hash of content as the compiled state of the source.
func (h *SourceHashes) Record(sourceID string, content []byte) string {
	hash := HashContent(content)
	h.mu.Lock()
	h.hashes[sourceID] = hash
	h.mu.Unlock()
	return hash
}

// Get returns the recorded hash of a source.
func (h *SourceHashes) Get(sourceID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	hash, ok := h.hashes[sourceID]
	return hash, ok
}

func (h *SourceHashes) Forget(sourceID string) {
	h.mu.Lock()
	delete(h.hashes, sourceID)
	h.mu.Unlock()
}

func (h *SourceHashes) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hashes)
}
