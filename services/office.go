package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"techline/config"
	"techline/geo"
	"techline/models"
	"techline/scraper"
)

// OfficeStore is the store surface for the housing-office flow.
type OfficeStore interface {
	GetUserScope(ctx context.Context, userID int64) (*models.UserScope, error)
	GetCityByID(ctx context.Context, id int) (*models.City, error)
	GetAllCities(ctx context.Context) ([]models.City, error)
	GetZonesByCity(ctx context.Context, cityID int) ([]models.Zone, error)
	CreateHousingOffice(ctx context.Context, o *models.HousingOffice) (*models.HousingOffice, bool, error)
}

// OfficePreview is a scraped organization card held pending confirmation.
type OfficePreview struct {
	Token        uuid.UUID
	Name         string
	Address      string
	WorkingHours string
	Phone        string
	Comments     string
	CityName     string
	ZoneName     string
	ExpiresAt    time.Time
}

type pendingOffice struct {
	token     uuid.UUID
	office    *models.HousingOffice
	expiresAt time.Time
}

// OfficeService registers building-management organizations: search the org
// by name in the user's default city, lift its card, resolve the zone from
// the comments text, and create the record after an explicit confirm. The
// zone resolution is the comment-consistency rule: a zone implies its city,
// a disagreeing independent city match makes the card unplaceable.
type OfficeService struct {
	store  OfficeStore
	ops    OpsRecorder
	source scraper.Source
	cfg    config.ResolverConfig

	mu      sync.Mutex
	pending map[int64]*pendingOffice
}

func NewOfficeService(store OfficeStore, ops OpsRecorder, source scraper.Source, cfg config.ResolverConfig) *OfficeService {
	return &OfficeService{
		store:   store,
		ops:     ops,
		source:  source,
		cfg:     cfg,
		pending: make(map[int64]*pendingOffice),
	}
}

func (s *OfficeService) StartOfficeSearch(ctx context.Context, userID int64, name string) (*OfficePreview, error) {
	user, err := s.store.GetUserScope(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user scope: %w", err)
	}
	if user == nil || !user.IsActive || user.AreaID == "" {
		return nil, ErrNotAuthorized
	}
	if user.DefaultCityID == nil {
		return nil, ErrNoCitySelected
	}

	city, err := s.store.GetCityByID(ctx, *user.DefaultCityID)
	if err != nil {
		return nil, fmt.Errorf("get city: %w", err)
	}
	if city == nil {
		return nil, ErrNoCitySelected
	}

	org, err := s.scrapeOrganization(ctx, city.URL, name)
	if err != nil {
		return nil, err
	}

	matchedCity, matchedZone, err := s.resolveZone(ctx, org.Comments)
	if err != nil {
		return nil, err
	}

	token := uuid.New()
	expiresAt := time.Now().Add(s.cfg.PreviewTTL)

	office := &models.HousingOffice{
		Name:         org.Title,
		Address:      org.Address,
		CityID:       matchedCity.ID,
		ZoneID:       matchedZone.ID,
		Comments:     org.Comments,
		WorkingHours: org.WorkingHours,
		Phone:        org.Phone,
	}

	s.mu.Lock()
	s.pending[userID] = &pendingOffice{token: token, office: office, expiresAt: expiresAt}
	s.mu.Unlock()

	if s.ops != nil {
		s.ops.Log(nil, models.LogLevelInfo, fmt.Sprintf("Office preview %s held for user %d: %s", token, userID, org.Title))
	}

	return &OfficePreview{
		Token:        token,
		Name:         org.Title,
		Address:      org.Address,
		WorkingHours: org.WorkingHours,
		Phone:        org.Phone,
		Comments:     org.Comments,
		CityName:     matchedCity.Name,
		ZoneName:     matchedZone.Name,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *OfficeService) scrapeOrganization(ctx context.Context, cityURL, name string) (*models.RawOrganization, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScrapeDeadline)
	defer cancel()
	defer s.source.Close()

	org, err := s.source.FetchOrganization(ctx, cityURL, name)
	if err != nil {
		if errors.Is(err, scraper.ErrNotFound) {
			return nil, ErrScrapeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionFailure, err)
	}
	return org, nil
}

func (s *OfficeService) resolveZone(ctx context.Context, comments string) (*models.City, *models.Zone, error) {
	cities, err := s.store.GetAllCities(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get cities: %w", err)
	}

	var zones []models.Zone
	for _, city := range cities {
		cityZones, err := s.store.GetZonesByCity(ctx, city.ID)
		if err != nil {
			log.Printf("Zone lookup for city %d failed: %v", city.ID, err)
			continue
		}
		zones = append(zones, cityZones...)
	}

	city, zone := geo.MatchCityAndZoneFromComment(comments, cities, zones)
	if city == nil || zone == nil {
		return nil, nil, ErrGeoMismatch
	}
	return city, zone, nil
}

// ConfirmPendingOffice commits the held office card. Returns the persisted
// record and whether this call created it. The preview is only released once
// the write succeeds (or has expired), so a transient store failure can be
// retried without a fresh scrape.
func (s *OfficeService) ConfirmPendingOffice(ctx context.Context, userID int64) (*models.HousingOffice, bool, error) {
	s.mu.Lock()
	p, ok := s.pending[userID]
	s.mu.Unlock()

	if !ok {
		return nil, false, ErrNoPendingPreview
	}
	if time.Now().After(p.expiresAt) {
		s.dropIfHeld(userID, p)
		return nil, false, ErrPreviewExpired
	}

	office, created, err := s.store.CreateHousingOffice(ctx, p.office)
	if err != nil {
		return nil, false, fmt.Errorf("create housing office: %w", err)
	}
	s.dropIfHeld(userID, p)
	return office, created, nil
}

func (s *OfficeService) dropIfHeld(userID int64, p *pendingOffice) {
	s.mu.Lock()
	if cur, ok := s.pending[userID]; ok && cur == p {
		delete(s.pending, userID)
	}
	s.mu.Unlock()
}

// ExpireStale drops previews past their TTL; called by the reaper worker.
func (s *OfficeService) ExpireStale(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for userID, p := range s.pending {
		if now.After(p.expiresAt) {
			delete(s.pending, userID)
			expired++
		}
	}
	return expired
}
