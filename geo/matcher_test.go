package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"techline/models"
)

var (
	kazan     = models.City{ID: 1, Name: "Казань"}
	innopolis = models.City{ID: 2, Name: "Иннополис"}

	novoSavinovsky = models.Zone{ID: 10, Name: "Ново-Савиновский", CityID: 1}
	sovetsky       = models.Zone{ID: 11, Name: "Советский", CityID: 1}
)

func zonesForCity(cityID int) []models.Zone {
	if cityID == 1 {
		return []models.Zone{novoSavinovsky, sovetsky}
	}
	return nil
}

func TestMatchCityAndZone(t *testing.T) {
	cities := []models.City{kazan, innopolis}

	city, zone := MatchCityAndZone("г. Казань, Ново-Савиновский р-н, ул. Гаврилова, 2", cities, zonesForCity)

	require.NotNil(t, city)
	require.NotNil(t, zone)
	assert.Equal(t, kazan.ID, city.ID)
	assert.Equal(t, novoSavinovsky.ID, zone.ID)
}

func TestMatchCityAndZone_CityWithoutZone(t *testing.T) {
	cities := []models.City{kazan, innopolis}

	city, zone := MatchCityAndZone("г. Казань, ул. Гаврилова, 2", cities, zonesForCity)

	require.NotNil(t, city)
	assert.Equal(t, kazan.ID, city.ID)
	assert.Nil(t, zone)
}

func TestMatchCityAndZone_NoCity(t *testing.T) {
	cities := []models.City{kazan, innopolis}

	city, zone := MatchCityAndZone("г. Москва, Тверская, 1", cities, zonesForCity)

	assert.Nil(t, city)
	assert.Nil(t, zone)
}

func TestMatchCityAndZone_CaseInsensitive(t *testing.T) {
	cities := []models.City{kazan}

	city, zone := MatchCityAndZone("КАЗАНЬ, СОВЕТСКИЙ РАЙОН", cities, zonesForCity)

	require.NotNil(t, city)
	require.NotNil(t, zone)
	assert.Equal(t, sovetsky.ID, zone.ID)
}

func TestMatchCityAndZoneFromComment_ZoneImpliesCity(t *testing.T) {
	cities := []models.City{kazan, innopolis}
	zones := []models.Zone{novoSavinovsky, sovetsky}

	city, zone := MatchCityAndZoneFromComment("Обслуживает Ново-Савиновский район", cities, zones)

	require.NotNil(t, city)
	require.NotNil(t, zone)
	assert.Equal(t, kazan.ID, city.ID)
	assert.Equal(t, novoSavinovsky.ID, zone.ID)
}

func TestMatchCityAndZoneFromComment_DisagreementUnresolvable(t *testing.T) {
	cities := []models.City{kazan, innopolis}
	zones := []models.Zone{novoSavinovsky, sovetsky}

	// The zone belongs to Kazan but the comment names Innopolis independently.
	city, zone := MatchCityAndZoneFromComment("Иннополис, Советский район", cities, zones)

	assert.Nil(t, city)
	assert.Nil(t, zone)
}

func TestMatchCityAndZoneFromComment_AgreeingCity(t *testing.T) {
	cities := []models.City{kazan, innopolis}
	zones := []models.Zone{novoSavinovsky, sovetsky}

	city, zone := MatchCityAndZoneFromComment("Казань, Советский район", cities, zones)

	require.NotNil(t, city)
	require.NotNil(t, zone)
	assert.Equal(t, kazan.ID, city.ID)
	assert.Equal(t, sovetsky.ID, zone.ID)
}

func TestMatchCityAndZoneFromComment_LoneCityNeverPicksZone(t *testing.T) {
	cities := []models.City{kazan, innopolis}
	zones := []models.Zone{novoSavinovsky, sovetsky}

	city, zone := MatchCityAndZoneFromComment("Казань, хорошая компания", cities, zones)

	assert.Nil(t, city)
	assert.Nil(t, zone)
}
