package catalog

import (
	"crypto/sha256"
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// ImageStore: content-addressed image bytes
// ---------------------------------------------------------------------------

// ImageStore holds image buffers keyed by their SHA-256 hash. A stored
// buffer is never modified, so any number of runtimes may parse trees
// whose views point into it.
type ImageStore struct {
	mu     sync.RWMutex
	images map[[32]byte][]byte
}

// NewImageStore creates an empty image store.
func NewImageStore() *ImageStore {
	return &ImageStore{
		images: make(map[[32]byte][]byte),
	}
}

// Put stores a copy of data and returns its hash together with the
// stored buffer. Storing the same bytes twice returns the first buffer.
func (s *ImageStore) Put(data []byte) ([32]byte, []byte) {
	h := sha256.Sum256(data)

	s.mu.RLock()
	stored, ok := s.images[h]
	s.mu.RUnlock()
	if ok {
		return h, stored
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.images[h]; ok {
		return h, stored
	}
	stored = append([]byte(nil), data...)
	s.images[h] = stored
	return h, stored
}

// Get returns the buffer for the given hash, or nil.
func (s *ImageStore) Get(h [32]byte) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.images[h]
}

// Has returns true if the store holds an image with the given hash.
func (s *ImageStore) Has(h [32]byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.images[h]
	return ok
}

// Len returns the number of stored images.
func (s *ImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Hashes returns every stored hash in ascending byte order.
func (s *ImageStore) Hashes() [][32]byte {
	s.mu.RLock()
	out := make([][32]byte, 0, len(s.images))
	for h := range s.images {
		out = append(out, h)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}
