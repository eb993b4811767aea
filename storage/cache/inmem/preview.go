// Package inmemcache stores import previews in process memory.
package inmemcache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/academia/core/importer"
)

type entry struct {
	preview   importer.Preview
	expiresAt time.Time
}

type previewStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

var _ importer.PreviewStore = (*previewStore)(nil)

func NewPreviewStore(ttl time.Duration) importer.PreviewStore {
	return &previewStore{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

func (s *previewStore) SavePreview(_ context.Context, p importer.Preview) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict()
	p.Outcome.Records = append([]importer.ReconciledRecord(nil), p.Outcome.Records...)
	s.entries[p.ID] = entry{preview: p, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *previewStore) GetPreview(_ context.Context, id string) (importer.Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return importer.Preview{}, importer.ErrPreviewNotFound
	}
	p := e.preview
	p.Outcome.Records = append([]importer.ReconciledRecord(nil), p.Outcome.Records...)
	return p, nil
}

func (s *previewStore) DeletePreview(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// evict drops expired previews. Callers hold s.mu.
func (s *previewStore) evict() {
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
