package address

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"techline/models"
)

// Defaults applied when a digit run cannot be found in the scraped text.
// One canonical pair for every code path.
const (
	DefaultFloors    = 1
	DefaultEntrances = 1
)

var (
	firstDigitsRegex  = regexp.MustCompile(`(\d+)`)
	trailingTokenRe   = regexp.MustCompile(`^(.*?)\s+(\S+)$`)
	apartmentLineRe   = regexp.MustCompile(`^(\d+)\s+подъезд:\s*квартиры\s+(.+)$`)
	flatsRangeTokenRe = regexp.MustCompile(`^(\d+)[–-](\d+)`)
)

// ExtractHouseMeta turns a raw scraped building card into the normalized
// structural record. Parsing is forgiving: a malformed apartments line is
// skipped, missing counts fall back to defaults, and a title with no token
// boundary degrades to street-only. Entrance numbers above the declared
// entrance count are dropped (the scraped panel occasionally lists a shed
// or parking level as an extra "entrance").
func ExtractHouseMeta(raw *models.RawBuilding) *models.ParsedHouse {
	street, houseNumber := SplitTitle(raw.Title)

	parsed := &models.ParsedHouse{
		Street:          street,
		HouseNumber:     houseNumber,
		Floors:          FirstInt(raw.Floors, DefaultFloors),
		Entrances:       FirstInt(raw.Entrances, DefaultEntrances),
		FlatsByEntrance: make(map[int][]models.FlatsRange),
	}

	for _, line := range raw.Apartments {
		m := apartmentLineRe.FindStringSubmatch(CleanText(line))
		if m == nil {
			continue
		}
		entrance, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if entrance > parsed.Entrances {
			log.Printf("Dropping apartments line for entrance %d (house declares %d): %q", entrance, parsed.Entrances, line)
			continue
		}
		for _, token := range strings.Split(m[2], ", ") {
			fm := flatsRangeTokenRe.FindStringSubmatch(strings.TrimSpace(token))
			if fm == nil {
				continue
			}
			start, _ := strconv.Atoi(fm[1])
			end, _ := strconv.Atoi(fm[2])
			parsed.FlatsByEntrance[entrance] = append(parsed.FlatsByEntrance[entrance], models.FlatsRange{
				StartFlat: start,
				EndFlat:   end,
			})
		}
	}

	return parsed
}

// SplitTitle separates a card title into street and house number.
// "Тимирязева, 4" splits on the last comma; "Тимирязева 4" on the last
// whitespace token. A title with neither comes back as (title, "").
func SplitTitle(title string) (street, houseNumber string) {
	title = CleanText(title)

	if idx := strings.LastIndex(title, ","); idx >= 0 {
		street = StripStreetPrefix(title[:idx])
		houseNumber = strings.TrimSpace(title[idx+1:])
		return street, houseNumber
	}

	if m := trailingTokenRe.FindStringSubmatch(title); m != nil {
		return StripStreetPrefix(m[1]), strings.TrimSpace(m[2])
	}

	return title, ""
}

// FirstInt extracts the first run of decimal digits anywhere in text,
// falling back to def ("9 этажей" -> 9, "Не указано" -> def).
func FirstInt(text string, def int) int {
	m := firstDigitsRegex.FindStringSubmatch(text)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return def
	}
	return n
}
