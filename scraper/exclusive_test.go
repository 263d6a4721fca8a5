package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"techline/models"
)

// contestedSource records whether a Close or a second fetch ever ran while a
// fetch was still in flight.
type contestedSource struct {
	mu       sync.Mutex
	inFlight bool
	overlap  bool
	closes   int
}

func (s *contestedSource) enter() {
	s.mu.Lock()
	if s.inFlight {
		s.overlap = true
	}
	s.inFlight = true
	s.mu.Unlock()
}

func (s *contestedSource) leave() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *contestedSource) FetchBuilding(ctx context.Context, cityURL, query string) (*models.RawBuilding, error) {
	s.enter()
	time.Sleep(20 * time.Millisecond)
	s.leave()
	return models.NewRawBuilding(), nil
}

func (s *contestedSource) FetchOrganization(ctx context.Context, cityURL, query string) (*models.RawOrganization, error) {
	s.enter()
	time.Sleep(20 * time.Millisecond)
	s.leave()
	return &models.RawOrganization{}, nil
}

func (s *contestedSource) Close() {
	s.mu.Lock()
	if s.inFlight {
		s.overlap = true
	}
	s.closes++
	s.mu.Unlock()
}

func TestExclusiveSourceSerializesFetchAndClose(t *testing.T) {
	inner := &contestedSource{}
	src := NewExclusiveSource(inner)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := src.FetchBuilding(context.Background(), "https://2gis.ru/kazan", "Тимирязева, 4"); err != nil {
				t.Errorf("fetch failed: %v", err)
			}
			src.Close()
		}()
		go func() {
			defer wg.Done()
			if _, err := src.FetchOrganization(context.Background(), "https://2gis.ru/kazan", "Жилсервис"); err != nil {
				t.Errorf("fetch failed: %v", err)
			}
			src.Close()
		}()
	}
	wg.Wait()

	if inner.overlap {
		t.Fatal("a fetch or close overlapped an in-flight fetch on the shared session")
	}
	if inner.closes != 8 {
		t.Fatalf("expected 8 closes, got %d", inner.closes)
	}
}
