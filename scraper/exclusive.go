package scraper

import (
	"context"
	"sync"

	"techline/models"
)

// ExclusiveSource serializes access to an underlying Source: exactly one
// fetch owns the browser session at a time, and Close never tears the
// session down under a fetch still using it. The daemon shares one browser
// between the resolution and office services through this wrapper.
type ExclusiveSource struct {
	mu    sync.Mutex
	inner Source
}

func NewExclusiveSource(inner Source) *ExclusiveSource {
	return &ExclusiveSource{inner: inner}
}

func (s *ExclusiveSource) FetchBuilding(ctx context.Context, cityURL, query string) (*models.RawBuilding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.FetchBuilding(ctx, cityURL, query)
}

func (s *ExclusiveSource) FetchOrganization(ctx context.Context, cityURL, query string) (*models.RawOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.FetchOrganization(ctx, cityURL, query)
}

func (s *ExclusiveSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Close()
}
