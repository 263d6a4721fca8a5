package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// House is a residential building, unique per (area_id, street,
// house_number). Never physically deleted; archival via IsActive.
type House struct {
	ID              int       `json:"id" db:"id"`
	AreaID          string    `json:"area_id" db:"area_id"`
	ZoneID          int       `json:"zone_id" db:"zone_id"`
	Street          string    `json:"street" db:"street"`
	HouseNumber     string    `json:"house_number" db:"house_number"`
	Entrances       int16     `json:"entrances" db:"entrances"`
	Floors          int16     `json:"floors" db:"floors"`
	IsInGKS         bool      `json:"is_in_gks" db:"is_in_gks"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	Notes           string    `json:"notes" db:"notes"`
	HousingOfficeID *int      `json:"housing_office_id" db:"housing_office_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy       int64     `json:"created_by" db:"created_by"`
	UpdatedBy       int64     `json:"updated_by" db:"updated_by"`
}

// HouseEntrance belongs to exactly one house; unique (house_id,
// entrance_number). Entrance numbers are 1-based and contiguous up to the
// house's declared entrance count.
type HouseEntrance struct {
	ID             int       `json:"id" db:"id"`
	HouseID        int       `json:"house_id" db:"house_id"`
	EntranceNumber int16     `json:"entrance_number" db:"entrance_number"`
	Floors         int16     `json:"floors" db:"floors"`
	FlatsText      string    `json:"flats_text" db:"flats_text"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	Notes          string    `json:"notes" db:"notes"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy      int64     `json:"created_by" db:"created_by"`
	UpdatedBy      int64     `json:"updated_by" db:"updated_by"`
}

// FlatsRange is an inclusive interval of apartment numbers served by one
// entrance. Start <= End.
type FlatsRange struct {
	ID         int `json:"id" db:"id"`
	EntranceID int `json:"entrance_id" db:"entrance_id"`
	StartFlat  int `json:"start_flat" db:"start_flat"`
	EndFlat    int `json:"end_flat" db:"end_flat"`
}

// ParsedHouse is the normalized structural record produced by the address
// extractor from scraped text. It is the only shape that crosses from the
// scraper side into the repository; raw text is never re-parsed downstream.
type ParsedHouse struct {
	Street      string
	HouseNumber string
	Floors      int
	Entrances   int
	// FlatsByEntrance keys need not cover 1..Entrances; entrances without a
	// parsed line simply get no ranges.
	FlatsByEntrance map[int][]FlatsRange
}

// FlatsText renders the human-readable range summary for one entrance,
// e.g. "1–40, 45–50". Empty when the entrance has no parsed ranges.
func (p *ParsedHouse) FlatsText(entrance int) string {
	ranges := p.FlatsByEntrance[entrance]
	if len(ranges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, fmt.Sprintf("%d–%d", r.StartFlat, r.EndFlat))
	}
	return strings.Join(parts, ", ")
}

// HouseView is the presentation-ready record returned to the dialog layer:
// the same text shapes the scraper produces, rebuilt from stored rows.
type HouseView struct {
	HouseID    int
	Title      string
	Floors     string
	Entrances  string
	Apartments []string
	CityName   string
	ZoneName   string
	Notes      string
	UpdatedAt  string
}

// BuildHouseView renders a stored house with its entrances and ranges into
// the summary shape the original card uses.
func BuildHouseView(h *House, city *City, zone *Zone, entrances []HouseEntrance, ranges map[int][]FlatsRange) *HouseView {
	v := &HouseView{
		HouseID:   h.ID,
		Title:     fmt.Sprintf("%s %s", h.Street, h.HouseNumber),
		Floors:    "Не указано",
		Entrances: "Не указано",
		Notes:     h.Notes,
		UpdatedAt: h.UpdatedAt.In(MSK).Format("02.01.2006 15:04"),
	}
	if h.Floors > 0 {
		v.Floors = fmt.Sprintf("%d этажей", h.Floors)
	}
	if h.Entrances > 0 {
		v.Entrances = fmt.Sprintf("%d подъездов", h.Entrances)
	}
	if city != nil {
		v.CityName = city.Name
	}
	if zone != nil {
		v.ZoneName = zone.Name
	}
	if v.Notes == "" {
		v.Notes = "Нет"
	}

	sorted := make([]HouseEntrance, len(entrances))
	copy(sorted, entrances)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EntranceNumber < sorted[j].EntranceNumber })

	for _, e := range sorted {
		rs := make([]FlatsRange, len(ranges[e.ID]))
		copy(rs, ranges[e.ID])
		sort.Slice(rs, func(i, j int) bool { return rs[i].StartFlat < rs[j].StartFlat })
		if len(rs) == 0 {
			continue
		}
		parts := make([]string, 0, len(rs))
		for _, r := range rs {
			parts = append(parts, fmt.Sprintf("%d–%d", r.StartFlat, r.EndFlat))
		}
		v.Apartments = append(v.Apartments,
			fmt.Sprintf("%d подъезд: квартиры %s", e.EntranceNumber, strings.Join(parts, ", ")))
	}
	return v
}
