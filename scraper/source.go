package scraper

import (
	"context"
	"errors"

	"techline/models"
)

// ErrNotFound means the search ran fine but produced no usable candidate:
// no direct card and no residential hit in the result list.
var ErrNotFound = errors.New("no matching result")

// Source is one external mapping site. Implementations own their browser
// session; callers bound each fetch with the context deadline.
// Implementations need not be safe for concurrent use — anything shared
// across services goes through ExclusiveSource.
type Source interface {
	// FetchBuilding searches for a building inside one city's scope and
	// extracts its detail card. Returns ErrNotFound when nothing residential
	// matches the query.
	FetchBuilding(ctx context.Context, cityURL, query string) (*models.RawBuilding, error)

	// FetchOrganization is the same flow without the residential filter,
	// used for management-company lookups.
	FetchOrganization(ctx context.Context, cityURL, query string) (*models.RawOrganization, error)

	Close()
}
