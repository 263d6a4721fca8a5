package address

import (
	"testing"

	"techline/models"
)

func TestExtractHouseMeta_FullCard(t *testing.T) {
	raw := &models.RawBuilding{
		Title:     "Тимирязева, 4",
		Floors:    "9 этажей",
		Entrances: "3 подъезда",
		Apartments: []string{
			"1 подъезд: квартиры 1–40",
			"2 подъезд: квартиры 41-80",
		},
	}

	parsed := ExtractHouseMeta(raw)

	if parsed.Street != "Тимирязева" {
		t.Fatalf("expected street Тимирязева, got %q", parsed.Street)
	}
	if parsed.HouseNumber != "4" {
		t.Fatalf("expected house number 4, got %q", parsed.HouseNumber)
	}
	if parsed.Floors != 9 {
		t.Fatalf("expected 9 floors, got %d", parsed.Floors)
	}
	if parsed.Entrances != 3 {
		t.Fatalf("expected 3 entrances, got %d", parsed.Entrances)
	}

	first := parsed.FlatsByEntrance[1]
	if len(first) != 1 || first[0].StartFlat != 1 || first[0].EndFlat != 40 {
		t.Fatalf("unexpected ranges for entrance 1: %+v", first)
	}
	second := parsed.FlatsByEntrance[2]
	if len(second) != 1 || second[0].StartFlat != 41 || second[0].EndFlat != 80 {
		t.Fatalf("unexpected ranges for entrance 2: %+v", second)
	}
}

func TestExtractHouseMeta_PlaceholdersFallBackToDefaults(t *testing.T) {
	raw := models.NewRawBuilding()
	raw.Title = "Гаврилова, 2"

	parsed := ExtractHouseMeta(raw)

	if parsed.Floors != DefaultFloors {
		t.Fatalf("expected default floors %d, got %d", DefaultFloors, parsed.Floors)
	}
	if parsed.Entrances != DefaultEntrances {
		t.Fatalf("expected default entrances %d, got %d", DefaultEntrances, parsed.Entrances)
	}
	if len(parsed.FlatsByEntrance) != 0 {
		t.Fatalf("expected no ranges, got %+v", parsed.FlatsByEntrance)
	}
}

func TestExtractHouseMeta_DropsEntranceAboveDeclaredCount(t *testing.T) {
	raw := &models.RawBuilding{
		Title:     "Гаврилова, 2",
		Floors:    "5 этажей",
		Entrances: "2 подъезда",
		Apartments: []string{
			"1 подъезд: квартиры 1–20",
			"2 подъезд: квартиры 21–40",
			"5 подъезд: квартиры 100–120",
		},
	}

	parsed := ExtractHouseMeta(raw)

	if len(parsed.FlatsByEntrance) != 2 {
		t.Fatalf("expected ranges for 2 entrances, got %d", len(parsed.FlatsByEntrance))
	}
	if _, ok := parsed.FlatsByEntrance[5]; ok {
		t.Fatal("entrance 5 should have been dropped")
	}
}

func TestExtractHouseMeta_SkipsMalformedLines(t *testing.T) {
	raw := &models.RawBuilding{
		Title:     "Гаврилова, 2",
		Floors:    "5 этажей",
		Entrances: "2 подъезда",
		Apartments: []string{
			"Показать на карте",
			"1 подъезд: квартиры 1–20, 25–30",
			"подъезд: квартиры 1–20",
		},
	}

	parsed := ExtractHouseMeta(raw)

	if len(parsed.FlatsByEntrance) != 1 {
		t.Fatalf("expected ranges for 1 entrance, got %+v", parsed.FlatsByEntrance)
	}
	ranges := parsed.FlatsByEntrance[1]
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %+v", ranges)
	}
	if ranges[1].StartFlat != 25 || ranges[1].EndFlat != 30 {
		t.Fatalf("unexpected second range: %+v", ranges[1])
	}
}

func TestSplitTitle(t *testing.T) {
	cases := []struct {
		title  string
		street string
		number string
	}{
		{"Тимирязева, 4", "Тимирязева", "4"},
		{"улица Тимирязева, 4", "Тимирязева", "4"},
		{"ул. Гаврилова, 2", "Гаврилова", "2"},
		{"Гаврилова 2", "Гаврилова", "2"},
		{"Большая Красная 15а", "Большая Красная", "15а"},
		{"проспект Победы, 18 к2", "Победы", "18 к2"},
		{"Гаврилова", "Гаврилова", ""},
	}

	for _, tc := range cases {
		street, number := SplitTitle(tc.title)
		if street != tc.street || number != tc.number {
			t.Errorf("SplitTitle(%q) = (%q, %q), expected (%q, %q)",
				tc.title, street, number, tc.street, tc.number)
		}
	}
}

func TestFirstInt(t *testing.T) {
	cases := []struct {
		text string
		def  int
		want int
	}{
		{"9 этажей", 1, 9},
		{"12 этажей", 1, 12},
		{"3 подъезда", 1, 3},
		{"Не указано", 1, 1},
		{"", 7, 7},
	}

	for _, tc := range cases {
		if got := FirstInt(tc.text, tc.def); got != tc.want {
			t.Errorf("FirstInt(%q, %d) = %d, expected %d", tc.text, tc.def, got, tc.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("9\u00a0этажей\u200b "); got != "9 этажей" {
		t.Fatalf("unexpected clean result %q", got)
	}
}

func TestNormalizeStreet(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"улица Тимирязева", "тимирязева"},
		{"УЛ.  Гаврилова", "гаврилова"},
		{"Большая   Красная", "большая красная"},
	}

	for _, tc := range cases {
		if got := NormalizeStreet(tc.in); got != tc.want {
			t.Errorf("NormalizeStreet(%q) = %q, expected %q", tc.in, got, tc.want)
		}
	}
}
