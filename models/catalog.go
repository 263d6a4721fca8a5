package models

import "time"

// MSK is the audit-stamp timezone for the shared store (UTC+3).
var MSK = time.FixedZone("MSK", 3*60*60)

// Now returns the current time in the store's audit timezone.
func Now() time.Time {
	return time.Now().In(MSK)
}

// Branch is a top-level organizational/regional grouping.
type Branch struct {
	ID   int16  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// City is a municipality with a canonical search URL into the external
// mapping site. The URL scopes every scrape session for that city.
type City struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	URL      string `json:"url" db:"url"`
	BranchID int16  `json:"branch_id" db:"branch_id"`
}

// Zone is a named district within a city, the unit matched against
// scraped address text.
type Zone struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	BranchID int16  `json:"branch_id" db:"branch_id"`
	CityID   int    `json:"city_id" db:"city_id"`
}

// Area is an organizational-responsibility unit ("<branch>.<n>") that a
// staff user is assigned to. Zones are linked to areas via area_zones.
type Area struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	BranchID int16  `json:"branch_id" db:"branch_id"`
}

// UserScope is the slice of the users table the resolution pipeline needs:
// who the user is and which area/branch/default city bound their searches.
type UserScope struct {
	ID            int64  `json:"id" db:"id"`
	FullName      string `json:"full_name" db:"full_name"`
	AreaID        string `json:"area_id" db:"area_id"`
	BranchID      int16  `json:"branch_id" db:"branch_id"`
	DefaultCityID *int   `json:"default_city_id" db:"default_city_id"`
	IsActive      bool   `json:"is_active" db:"is_active"`
}

// HousingOffice is a building-management organization record, optionally
// linked to houses. Unique per (name, address, city, zone).
type HousingOffice struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Address      string    `json:"address" db:"address"`
	CityID       int       `json:"city_id" db:"city_id"`
	ZoneID       int       `json:"zone_id" db:"zone_id"`
	Comments     string    `json:"comments" db:"comments"`
	PhotoURL     string    `json:"photo_url" db:"photo_url"`
	WorkingHours string    `json:"working_hours" db:"working_hours"`
	Phone        string    `json:"phone" db:"phone"`
	Email        string    `json:"email" db:"email"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
