package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"techline/models"
)

func scrapedOrganization() *models.RawOrganization {
	return &models.RawOrganization{
		Title:        "УК Жилсервис",
		Address:      "Чистопольская, 20",
		WorkingHours: "Пн: 09:00–18:00; Вт: 09:00–18:00",
		Phone:        "+7 843 123-45-67",
		Comments:     "Обслуживает Ново-Савиновский район",
	}
}

func TestStartOfficeSearch_PreviewThenConfirm(t *testing.T) {
	store := newTestStore()
	source := &fakeSource{org: scrapedOrganization()}
	svc := NewOfficeService(store, nil, source, newTestConfig())

	preview, err := svc.StartOfficeSearch(context.Background(), 42, "Жилсервис")

	require.NoError(t, err)
	assert.Equal(t, "УК Жилсервис", preview.Name)
	assert.Equal(t, "Казань", preview.CityName)
	assert.Equal(t, "Ново-Савиновский", preview.ZoneName)
	assert.Equal(t, "+7 843 123-45-67", preview.Phone)
	assert.Equal(t, 1, source.closes)
	assert.Empty(t, store.offices, "nothing is written before confirm")

	office, created, err := svc.ConfirmPendingOffice(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, office.CityID)
	assert.Equal(t, 10, office.ZoneID)
	assert.Equal(t, "УК Жилсервис", office.Name)

	_, _, err = svc.ConfirmPendingOffice(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNoPendingPreview)
}

func TestStartOfficeSearch_UnplaceableComment(t *testing.T) {
	store := newTestStore()
	org := scrapedOrganization()
	org.Comments = "Хорошая компания, быстро отвечают"
	source := &fakeSource{org: org}
	svc := NewOfficeService(store, nil, source, newTestConfig())

	_, err := svc.StartOfficeSearch(context.Background(), 42, "Жилсервис")
	assert.ErrorIs(t, err, ErrGeoMismatch)
}

func TestStartOfficeSearch_RequiresDefaultCity(t *testing.T) {
	store := newTestStore()
	store.user.DefaultCityID = nil
	svc := NewOfficeService(store, nil, &fakeSource{}, newTestConfig())

	_, err := svc.StartOfficeSearch(context.Background(), 42, "Жилсервис")
	assert.ErrorIs(t, err, ErrNoCitySelected)
}

func TestConfirmPendingOffice_RetriesAfterStoreError(t *testing.T) {
	store := newTestStore()
	store.createErr = errors.New("connection reset")
	source := &fakeSource{org: scrapedOrganization()}
	svc := NewOfficeService(store, nil, source, newTestConfig())

	_, err := svc.StartOfficeSearch(context.Background(), 42, "Жилсервис")
	require.NoError(t, err)

	_, _, err = svc.ConfirmPendingOffice(context.Background(), 42)
	require.Error(t, err)

	// The store recovers; the held card commits without a new scrape.
	store.createErr = nil
	office, created, err := svc.ConfirmPendingOffice(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "УК Жилсервис", office.Name)
	assert.Equal(t, 1, source.fetches)
}

func TestOfficeExpireStale(t *testing.T) {
	store := newTestStore()
	source := &fakeSource{org: scrapedOrganization()}
	svc := NewOfficeService(store, nil, source, newTestConfig())

	_, err := svc.StartOfficeSearch(context.Background(), 42, "Жилсервис")
	require.NoError(t, err)

	assert.Equal(t, 0, svc.ExpireStale(time.Now()))
	assert.Equal(t, 1, svc.ExpireStale(time.Now().Add(time.Hour)))
}
