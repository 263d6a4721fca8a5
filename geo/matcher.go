// Package geo maps free-form address and comment text onto the city/zone
// catalog by case-insensitive substring containment. Crude on purpose:
// district names appear verbatim in human-written addresses, and anything
// smarter starts guessing.
package geo

import (
	"strings"

	"techline/models"
)

// MatchCityAndZone finds the first city whose name appears in the address
// text, then the first of that city's zones whose name also appears.
// Candidate order is the caller's priority order; there is no tie-break.
// Returns (nil, nil) when no city matches, (city, nil) when the city
// matched but no zone name is present in the text.
func MatchCityAndZone(addressText string, cities []models.City, zonesByCity func(cityID int) []models.Zone) (*models.City, *models.Zone) {
	lower := strings.ToLower(addressText)

	var city *models.City
	for i := range cities {
		if strings.Contains(lower, strings.ToLower(cities[i].Name)) {
			city = &cities[i]
			break
		}
	}
	if city == nil {
		return nil, nil
	}

	zones := zonesByCity(city.ID)
	for i := range zones {
		if strings.Contains(lower, strings.ToLower(zones[i].Name)) {
			return city, &zones[i]
		}
	}
	return city, nil
}

// MatchCityAndZoneFromComment resolves a city/zone pair from an
// organization's comment text, where the two must be jointly consistent.
// A zone match implies its owning city; an independently matched city that
// disagrees with the zone's owner makes the comment unresolvable rather
// than a guess. A city match with no zone is likewise unresolvable: a lone
// city never picks a district.
func MatchCityAndZoneFromComment(comment string, cities []models.City, zones []models.Zone) (*models.City, *models.Zone) {
	lower := strings.ToLower(comment)

	var zone *models.Zone
	for i := range zones {
		if strings.Contains(lower, strings.ToLower(zones[i].Name)) {
			zone = &zones[i]
			break
		}
	}

	var city *models.City
	for i := range cities {
		if strings.Contains(lower, strings.ToLower(cities[i].Name)) {
			city = &cities[i]
			break
		}
	}

	if zone == nil {
		return nil, nil
	}

	if city != nil && city.ID != zone.CityID {
		return nil, nil
	}

	if city == nil {
		city = cityByID(cities, zone.CityID)
		if city == nil {
			return nil, nil
		}
	}

	return city, zone
}

func cityByID(cities []models.City, id int) *models.City {
	for i := range cities {
		if cities[i].ID == id {
			return &cities[i]
		}
	}
	return nil
}
