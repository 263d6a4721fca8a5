package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"techline/httputil"
	"techline/models"
)

const probeUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// HealthcheckStore is the catalog surface the sweep reads.
type HealthcheckStore interface {
	GetAllCities(ctx context.Context) ([]models.City, error)
}

// CityCheck is the probe result for one city scope URL.
type CityCheck struct {
	CityID     int
	CityName   string
	URL        string
	StatusCode int
	OK         bool
	Err        string
	Elapsed    time.Duration
}

// HealthcheckService probes every city's search scope URL. A dead URL means
// every resolution in that city will fail at the navigation step, so the
// sweep catches catalog rot before users do.
type HealthcheckService struct {
	store   HealthcheckStore
	ops     OpsRecorder
	clients *httputil.Clients
}

func NewHealthcheckService(store HealthcheckStore, ops OpsRecorder, clients *httputil.Clients) *HealthcheckService {
	return &HealthcheckService{store: store, ops: ops, clients: clients}
}

// CheckCityURLs sweeps all city URLs sequentially and returns per-city
// results. Failures are logged but never abort the sweep.
func (s *HealthcheckService) CheckCityURLs(ctx context.Context) ([]CityCheck, error) {
	cities, err := s.store.GetAllCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("get cities: %w", err)
	}

	checks := make([]CityCheck, 0, len(cities))
	failures := 0

	for _, city := range cities {
		check := s.probe(ctx, city)
		if !check.OK {
			failures++
			s.log(models.LogLevelWarn, fmt.Sprintf("Healthcheck: city %s (%d) failed: %s", city.Name, city.ID, check.Err))
		}
		checks = append(checks, check)

		if err := ctx.Err(); err != nil {
			return checks, err
		}
	}

	s.log(models.LogLevelInfo, fmt.Sprintf("Healthcheck sweep: %d cities, %d failed", len(cities), failures))
	return checks, nil
}

func (s *HealthcheckService) probe(ctx context.Context, city models.City) CityCheck {
	check := CityCheck{CityID: city.ID, CityName: city.Name, URL: city.URL}

	if city.URL == "" {
		check.Err = "no scope URL configured"
		return check
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, city.URL, nil)
	if err != nil {
		check.Err = err.Error()
		return check
	}
	req.Header.Set("User-Agent", probeUserAgent)

	start := time.Now()
	resp, err := s.clients.Probe.Do(req)
	check.Elapsed = time.Since(start)
	if err != nil {
		check.Err = err.Error()
		return check
	}
	defer resp.Body.Close()

	check.StatusCode = resp.StatusCode
	// Redirects count as alive: the scope URL often 301s to a canonical form.
	check.OK = resp.StatusCode < 400
	if !check.OK {
		check.Err = resp.Status
	}
	return check
}

func (s *HealthcheckService) log(level models.LogLevel, message string) {
	log.Printf("[%s] %s", level, message)
	if s.ops != nil {
		s.ops.Log(nil, level, message)
	}
}
