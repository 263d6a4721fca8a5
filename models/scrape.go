package models

// Placeholder values carried through from the scraped page when an expected
// element never appeared. Downstream code renders these as "unknown" rather
// than treating the extraction as failed.
const (
	PlaceholderNotFound     = "Не найдено"
	PlaceholderNotSpecified = "Не указано"
)

// RawBuilding is the untyped field set lifted from a building detail card.
// Every field is best-effort: present, or a placeholder.
type RawBuilding struct {
	Title      string   `json:"title"`
	Floors     string   `json:"floors"`
	Entrances  string   `json:"entrances"`
	Apartments []string `json:"apartments"`
	Address    string   `json:"address"`
}

// RawOrganization is the analogous field set for a non-residential
// organization card (housing offices).
type RawOrganization struct {
	Title        string `json:"title"`
	Address      string `json:"address"`
	WorkingHours string `json:"working_hours"`
	Phone        string `json:"phone"`
	Comments     string `json:"comments"`
}

// SearchHit is one candidate from a search result list: its display title
// and the detail-card link, already filtered to residential types.
type SearchHit struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewRawBuilding returns a RawBuilding with every scalar field set to its
// placeholder, so partially extracted cards stay uniform.
func NewRawBuilding() *RawBuilding {
	return &RawBuilding{
		Title:     PlaceholderNotFound,
		Floors:    PlaceholderNotSpecified,
		Entrances: PlaceholderNotSpecified,
	}
}
