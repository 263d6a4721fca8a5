package services

import "errors"

// Terminal resolution failures, surfaced to the dialog layer as short
// messages. Field-level scrape degradation never reaches this level; these
// are the outcomes that abort an attempt outright.
var (
	// ErrNotAuthorized means the user has no active area assignment; nothing
	// is scraped or written.
	ErrNotAuthorized = errors.New("user has no area assignment")

	// ErrNoCitySelected means neither an explicit city nor a stored default
	// was available. Resolution never guesses a city.
	ErrNoCitySelected = errors.New("no city selected and no default city set")

	// ErrScrapeNotFound means the external site had no residential match for
	// the query. No partial data is retained.
	ErrScrapeNotFound = errors.New("address not found on the external site")

	// ErrWrongCity means the scraped address resolved to a different city
	// than the one the search was scoped to.
	ErrWrongCity = errors.New("scraped address belongs to another city")

	// ErrGeoMismatch means the scraped address falls outside the user's
	// authorized zones. Deliberate refusal, never a closest-guess fallback.
	ErrGeoMismatch = errors.New("scraped address is outside the authorized zones")

	// ErrSessionFailure wraps browser launch/navigation failures, after the
	// session has been torn down.
	ErrSessionFailure = errors.New("browser session failure")

	// ErrNoPendingPreview means confirm was called with nothing to confirm.
	ErrNoPendingPreview = errors.New("no pending preview")

	// ErrPreviewExpired means the preview outlived its TTL and was dropped.
	ErrPreviewExpired = errors.New("preview expired, start a new search")
)
