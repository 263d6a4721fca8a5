package models

import (
	"testing"
	"time"
)

func TestParsedHouseFlatsText(t *testing.T) {
	p := &ParsedHouse{
		FlatsByEntrance: map[int][]FlatsRange{
			1: {
				{StartFlat: 1, EndFlat: 40},
				{StartFlat: 45, EndFlat: 50},
			},
		},
	}

	if got := p.FlatsText(1); got != "1–40, 45–50" {
		t.Errorf("unexpected flats text: %q", got)
	}
	if got := p.FlatsText(2); got != "" {
		t.Errorf("expected empty text for entrance without ranges, got %q", got)
	}
}

func TestBuildHouseView(t *testing.T) {
	updated := time.Date(2026, 8, 15, 11, 30, 0, 0, MSK)
	h := &House{
		ID:          7,
		Street:      "Тимирязева",
		HouseNumber: "4",
		Floors:      9,
		Entrances:   2,
		UpdatedAt:   updated,
	}
	city := &City{ID: 1, Name: "Казань"}
	zone := &Zone{ID: 10, Name: "Ново-Савиновский"}
	entrances := []HouseEntrance{
		{ID: 101, EntranceNumber: 2},
		{ID: 100, EntranceNumber: 1},
	}
	ranges := map[int][]FlatsRange{
		100: {{StartFlat: 1, EndFlat: 40}},
		101: {{StartFlat: 41, EndFlat: 80}},
	}

	v := BuildHouseView(h, city, zone, entrances, ranges)

	if v.Title != "Тимирязева 4" {
		t.Errorf("unexpected title: %q", v.Title)
	}
	if v.Floors != "9 этажей" {
		t.Errorf("unexpected floors: %q", v.Floors)
	}
	if v.Entrances != "2 подъездов" {
		t.Errorf("unexpected entrances: %q", v.Entrances)
	}
	if v.CityName != "Казань" || v.ZoneName != "Ново-Савиновский" {
		t.Errorf("unexpected city/zone: %q / %q", v.CityName, v.ZoneName)
	}
	if v.Notes != "Нет" {
		t.Errorf("empty notes should render as placeholder, got %q", v.Notes)
	}
	if v.UpdatedAt != "15.08.2026 11:30" {
		t.Errorf("unexpected updated stamp: %q", v.UpdatedAt)
	}

	// Entrances render in numeric order regardless of input order.
	if len(v.Apartments) != 2 {
		t.Fatalf("expected 2 apartment lines, got %d", len(v.Apartments))
	}
	if v.Apartments[0] != "1 подъезд: квартиры 1–40" {
		t.Errorf("unexpected first line: %q", v.Apartments[0])
	}
	if v.Apartments[1] != "2 подъезд: квартиры 41–80" {
		t.Errorf("unexpected second line: %q", v.Apartments[1])
	}
}

func TestBuildHouseView_Placeholders(t *testing.T) {
	h := &House{ID: 3, Street: "Гаврилова", HouseNumber: "2", UpdatedAt: time.Now()}

	v := BuildHouseView(h, nil, nil, nil, nil)

	if v.Floors != PlaceholderNotSpecified {
		t.Errorf("unexpected floors placeholder: %q", v.Floors)
	}
	if v.Entrances != PlaceholderNotSpecified {
		t.Errorf("unexpected entrances placeholder: %q", v.Entrances)
	}
	if len(v.Apartments) != 0 {
		t.Errorf("expected no apartment lines, got %v", v.Apartments)
	}
}
