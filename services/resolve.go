package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"techline/address"
	"techline/config"
	"techline/geo"
	"techline/models"
	"techline/scraper"
	"techline/storage"
)

// HouseStore is the slice of the shared store the resolution flow consumes.
type HouseStore interface {
	GetUserScope(ctx context.Context, userID int64) (*models.UserScope, error)
	GetCityByID(ctx context.Context, id int) (*models.City, error)
	GetAllCities(ctx context.Context) ([]models.City, error)
	GetZonesByCity(ctx context.Context, cityID int) ([]models.Zone, error)
	GetZonesByAreaAndCity(ctx context.Context, areaID string, cityID int) ([]models.Zone, error)
	GetHouseByAddress(ctx context.Context, areaID string, zoneID int, street, houseNumber string) (*models.House, error)
	SaveParsedHouse(ctx context.Context, parsed *models.ParsedHouse, areaID string, zoneID int, createdBy int64, notes string) (storage.SaveResult, error)
	GetHouseView(ctx context.Context, houseID int) (*models.HouseView, error)
}

// OpsRecorder is the operational-store surface the services write audit
// records through. Nil-safe via the opsLog helpers; the daemon wires the
// SQLite store, tests leave it out.
type OpsRecorder interface {
	CreateRun(run *models.ResolutionRun) (int64, error)
	UpdateRun(run *models.ResolutionRun) error
	Log(runID *int64, level models.LogLevel, message string) error
}

type ResolutionStatus string

const (
	StatusFound                ResolutionStatus = "found"
	StatusAwaitingConfirmation ResolutionStatus = "awaiting_confirmation"
)

// Resolution is what one resolve attempt hands back to the dialog layer:
// either an existing record's view, or an unsaved preview that needs an
// explicit confirm before anything is written.
type Resolution struct {
	Status  ResolutionStatus
	View    *models.HouseView
	Preview *Preview
}

// Preview is a normalized scrape result held pending confirmation.
type Preview struct {
	Token      uuid.UUID
	Title      string
	Floors     string
	Entrances  string
	Apartments []string
	CityName   string
	ZoneName   string
	ExpiresAt  time.Time
}

type pendingResolution struct {
	token     uuid.UUID
	parsed    *models.ParsedHouse
	areaID    string
	zoneID    int
	runID     int64
	expiresAt time.Time
}

// ResolutionService runs the full address pipeline: local lookup across the
// user's authorized zones, scrape on miss, geo validation, preview, and the
// confirmed commit. Previews live in memory keyed by user id; a user starts
// a new search and the old preview is simply replaced.
type ResolutionService struct {
	store  HouseStore
	ops    OpsRecorder
	source scraper.Source
	cfg    config.ResolverConfig

	mu      sync.Mutex
	pending map[int64]*pendingResolution
}

func NewResolutionService(store HouseStore, ops OpsRecorder, source scraper.Source, cfg config.ResolverConfig) *ResolutionService {
	return &ResolutionService{
		store:   store,
		ops:     ops,
		source:  source,
		cfg:     cfg,
		pending: make(map[int64]*pendingResolution),
	}
}

// StartResolution resolves an address for a user. cityID 0 means "use the
// stored default"; there is no first-found fallback when neither exists.
func (s *ResolutionService) StartResolution(ctx context.Context, userID int64, cityID int, addressText string) (*Resolution, error) {
	user, err := s.store.GetUserScope(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user scope: %w", err)
	}
	if user == nil || !user.IsActive || user.AreaID == "" {
		return nil, ErrNotAuthorized
	}

	if cityID == 0 {
		if user.DefaultCityID == nil {
			return nil, ErrNoCitySelected
		}
		cityID = *user.DefaultCityID
	}

	city, err := s.store.GetCityByID(ctx, cityID)
	if err != nil {
		return nil, fmt.Errorf("get city: %w", err)
	}
	if city == nil {
		return nil, ErrNoCitySelected
	}

	zones, err := s.store.GetZonesByAreaAndCity(ctx, user.AreaID, city.ID)
	if err != nil {
		return nil, fmt.Errorf("get authorized zones: %w", err)
	}
	if len(zones) == 0 {
		return nil, ErrNotAuthorized
	}

	query := address.CleanText(addressText)
	runID := s.startRun(userID, city.ID, query)

	street, houseNumber := address.SplitTitle(query)

	if houseNumber != "" {
		for _, zone := range zones {
			house, err := s.store.GetHouseByAddress(ctx, user.AreaID, zone.ID, street, houseNumber)
			if err != nil {
				s.finishRun(runID, models.OutcomeStoreError, nil, err.Error())
				return nil, fmt.Errorf("local lookup in zone %d: %w", zone.ID, err)
			}
			if house == nil {
				continue
			}

			view, err := s.store.GetHouseView(ctx, house.ID)
			if err != nil {
				s.finishRun(runID, models.OutcomeStoreError, nil, err.Error())
				return nil, fmt.Errorf("load house view: %w", err)
			}
			s.finishRun(runID, models.OutcomeLocalHit, &house.ID, zone.Name)
			return &Resolution{Status: StatusFound, View: view}, nil
		}
	}

	raw, err := s.scrapeBuilding(ctx, city.URL, query)
	if err != nil {
		if errors.Is(err, ErrScrapeNotFound) {
			s.finishRun(runID, models.OutcomeNotFound, nil, "")
		} else {
			s.finishRun(runID, models.OutcomeSessionError, nil, err.Error())
		}
		return nil, err
	}

	matchedCity, matchedZone, err := s.validateScrape(ctx, raw, city, zones)
	if err != nil {
		if errors.Is(err, ErrWrongCity) || errors.Is(err, ErrGeoMismatch) {
			s.finishRun(runID, models.OutcomeGeoMismatch, nil, raw.Address)
		} else {
			s.finishRun(runID, models.OutcomeStoreError, nil, err.Error())
		}
		return nil, err
	}

	parsed := address.ExtractHouseMeta(raw)

	preview := s.holdPreview(userID, parsed, user.AreaID, matchedZone, matchedCity, runID)
	s.opsLog(&runID, models.LogLevelInfo, fmt.Sprintf("Preview %s held for user %d: %s", preview.Token, userID, preview.Title))

	return &Resolution{Status: StatusAwaitingConfirmation, Preview: preview}, nil
}

// scrapeBuilding runs the browser phase under the configured wall-clock
// deadline. The session is released on every exit path; the next attempt
// relaunches from the persistent profile.
func (s *ResolutionService) scrapeBuilding(ctx context.Context, cityURL, query string) (*models.RawBuilding, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScrapeDeadline)
	defer cancel()
	defer s.source.Close()

	raw, err := s.source.FetchBuilding(ctx, cityURL, query)
	if err != nil {
		if errors.Is(err, scraper.ErrNotFound) {
			return nil, ErrScrapeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionFailure, err)
	}
	return raw, nil
}

func (s *ResolutionService) validateScrape(ctx context.Context, raw *models.RawBuilding, city *models.City, authorized []models.Zone) (*models.City, *models.Zone, error) {
	cities, err := s.store.GetAllCities(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get cities: %w", err)
	}

	matchedCity, matchedZone := geo.MatchCityAndZone(raw.Address, cities, func(cityID int) []models.Zone {
		zones, err := s.store.GetZonesByCity(ctx, cityID)
		if err != nil {
			log.Printf("Zone lookup for city %d failed: %v", cityID, err)
			return nil
		}
		return zones
	})

	if matchedCity == nil || matchedCity.ID != city.ID {
		return nil, nil, ErrWrongCity
	}
	if matchedZone == nil {
		return nil, nil, ErrGeoMismatch
	}

	for i := range authorized {
		if authorized[i].ID == matchedZone.ID {
			return matchedCity, matchedZone, nil
		}
	}
	return nil, nil, ErrGeoMismatch
}

func (s *ResolutionService) holdPreview(userID int64, parsed *models.ParsedHouse, areaID string, zone *models.Zone, city *models.City, runID int64) *Preview {
	token := uuid.New()
	expiresAt := time.Now().Add(s.cfg.PreviewTTL)

	s.mu.Lock()
	s.pending[userID] = &pendingResolution{
		token:     token,
		parsed:    parsed,
		areaID:    areaID,
		zoneID:    zone.ID,
		runID:     runID,
		expiresAt: expiresAt,
	}
	s.mu.Unlock()

	preview := &Preview{
		Token:     token,
		Title:     fmt.Sprintf("%s %s", parsed.Street, parsed.HouseNumber),
		Floors:    fmt.Sprintf("%d этажей", parsed.Floors),
		Entrances: fmt.Sprintf("%d подъездов", parsed.Entrances),
		CityName:  city.Name,
		ZoneName:  zone.Name,
		ExpiresAt: expiresAt,
	}

	entranceNums := make([]int, 0, len(parsed.FlatsByEntrance))
	for n := range parsed.FlatsByEntrance {
		entranceNums = append(entranceNums, n)
	}
	sort.Ints(entranceNums)
	for _, n := range entranceNums {
		preview.Apartments = append(preview.Apartments,
			fmt.Sprintf("%d подъезд: квартиры %s", n, parsed.FlatsText(n)))
	}

	return preview
}

// ConfirmPendingResolution commits the user's held preview. A concurrent
// duplicate converges on the winner's row; the caller cannot tell the races
// apart and does not need to. The preview is only released once the write
// succeeds (or has expired), so a transient store failure can be retried
// without a fresh scrape.
func (s *ResolutionService) ConfirmPendingResolution(ctx context.Context, userID int64) (*models.HouseView, error) {
	s.mu.Lock()
	p, ok := s.pending[userID]
	s.mu.Unlock()

	if !ok {
		return nil, ErrNoPendingPreview
	}
	if time.Now().After(p.expiresAt) {
		s.dropIfHeld(userID, p)
		s.finishRun(p.runID, models.OutcomeExpired, nil, "")
		return nil, ErrPreviewExpired
	}

	result, err := s.store.SaveParsedHouse(ctx, p.parsed, p.areaID, p.zoneID, userID, "")
	if err != nil {
		return nil, fmt.Errorf("save parsed house: %w", err)
	}
	s.dropIfHeld(userID, p)

	outcome := models.OutcomeCommitted
	if !result.Created {
		outcome = models.OutcomeDuplicate
	}
	s.finishRun(p.runID, outcome, &result.HouseID, "")

	view, err := s.store.GetHouseView(ctx, result.HouseID)
	if err != nil {
		return nil, fmt.Errorf("load house view: %w", err)
	}
	return view, nil
}

// dropIfHeld releases a preview only if it is still the one held for the
// user; a newer search that replaced it stays untouched.
func (s *ResolutionService) dropIfHeld(userID int64, p *pendingResolution) {
	s.mu.Lock()
	if cur, ok := s.pending[userID]; ok && cur == p {
		delete(s.pending, userID)
	}
	s.mu.Unlock()
}

// DropPending discards a user's held preview, if any.
func (s *ResolutionService) DropPending(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[userID]
	if ok {
		delete(s.pending, userID)
		s.finishRun(p.runID, models.OutcomeExpired, nil, "dropped")
	}
	return ok
}

// ExpireStale removes previews past their TTL and returns how many were
// dropped. Called by the reaper worker.
func (s *ResolutionService) ExpireStale(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for userID, p := range s.pending {
		if now.After(p.expiresAt) {
			delete(s.pending, userID)
			s.finishRun(p.runID, models.OutcomeExpired, nil, "")
			expired++
		}
	}
	return expired
}

// PendingCount reports how many previews are currently held.
func (s *ResolutionService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *ResolutionService) startRun(userID int64, cityID int, query string) int64 {
	if s.ops == nil {
		return 0
	}
	run := &models.ResolutionRun{
		UserID:    userID,
		CityID:    cityID,
		Query:     query,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	id, err := s.ops.CreateRun(run)
	if err != nil {
		log.Printf("Failed to record resolution run: %v", err)
		return 0
	}
	return id
}

func (s *ResolutionService) finishRun(runID int64, outcome models.Outcome, houseID *int, detail string) {
	if s.ops == nil || runID == 0 {
		return
	}
	now := time.Now()
	status := models.RunStatusCompleted
	switch outcome {
	case models.OutcomeNotFound, models.OutcomeGeoMismatch, models.OutcomeSessionError,
		models.OutcomeExpired, models.OutcomeStoreError:
		status = models.RunStatusFailed
	}
	run := &models.ResolutionRun{
		ID:         runID,
		FinishedAt: &now,
		Status:     status,
		Outcome:    outcome,
		HouseID:    houseID,
		Detail:     detail,
	}
	if err := s.ops.UpdateRun(run); err != nil {
		log.Printf("Failed to update resolution run %d: %v", runID, err)
	}
}

func (s *ResolutionService) opsLog(runID *int64, level models.LogLevel, message string) {
	log.Printf("[%s] %s", level, message)
	if s.ops != nil {
		s.ops.Log(runID, level, message)
	}
}
