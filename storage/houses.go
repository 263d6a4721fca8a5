package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"techline/models"
)

const uniqueViolationCode = "23505"

// SaveResult is the outcome of an idempotent house write: either this call
// created the row, or somebody (possibly a concurrent resolver) already had.
type SaveResult struct {
	HouseID int
	Created bool
}

const houseColumns = `id, area_id, zone_id, street, house_number, entrances, floors,
	is_in_gks, is_active, COALESCE(notes, ''), housing_office_id,
	created_at, updated_at, created_by, updated_by`

func scanHouse(row pgx.Row) (*models.House, error) {
	var h models.House
	err := row.Scan(
		&h.ID, &h.AreaID, &h.ZoneID, &h.Street, &h.HouseNumber, &h.Entrances, &h.Floors,
		&h.IsInGKS, &h.IsActive, &h.Notes, &h.HousingOfficeID,
		&h.CreatedAt, &h.UpdatedAt, &h.CreatedBy, &h.UpdatedBy,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetHouseByAddress is the point lookup on the unique key, restricted to
// one zone and to active rows. Archived houses do not resurface here.
func (s *PostgresStore) GetHouseByAddress(ctx context.Context, areaID string, zoneID int, street, houseNumber string) (*models.House, error) {
	query := `
		SELECT ` + houseColumns + `
		FROM houses
		WHERE area_id = $1 AND zone_id = $2
			AND LOWER(street) = LOWER($3) AND LOWER(house_number) = LOWER($4)
			AND is_active`

	return scanHouse(s.pool.QueryRow(ctx, query, areaID, zoneID, street, houseNumber))
}

// getHouseAnyState looks up by the unique key alone, including archived
// rows. Used for the idempotence pre-check and for conflict recovery, where
// an archived duplicate must be found rather than re-created.
func getHouseAnyState(ctx context.Context, q querier, areaID, street, houseNumber string) (*models.House, error) {
	query := `
		SELECT ` + houseColumns + `
		FROM houses
		WHERE area_id = $1 AND LOWER(street) = LOWER($2) AND LOWER(house_number) = LOWER($3)`

	return scanHouse(q.QueryRow(ctx, query, areaID, street, houseNumber))
}

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type CreateHouseParams struct {
	AreaID      string
	ZoneID      int
	Street      string
	HouseNumber string
	Floors      int
	Entrances   int
	CreatedBy   int64
	Notes       string
}

// CreateHouseWithEntrances creates one house row plus exactly Entrances
// entrance rows numbered 1..N, each inheriting the house's floor count,
// as a single transaction. A duplicate key fails the whole unit.
func (s *PostgresStore) CreateHouseWithEntrances(ctx context.Context, p CreateHouseParams) (*models.House, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	house, err := insertHouse(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	for i := 1; i <= p.Entrances; i++ {
		if _, err := insertEntrance(ctx, tx, house.ID, i, p.Floors, "", p.CreatedBy); err != nil {
			return nil, fmt.Errorf("insert entrance %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return house, nil
}

// SaveParsedHouse is the full reconciliation write for a scraped and
// confirmed building: house, entrances 1..N with their flats summaries,
// and one range row per parsed interval, all in one transaction. Calling
// it again for the same (area, street, number) returns the existing id
// untouched, and a lost creation race against a concurrent resolver is
// recovered by re-reading the winner's row.
func (s *PostgresStore) SaveParsedHouse(ctx context.Context, parsed *models.ParsedHouse, areaID string, zoneID int, createdBy int64, notes string) (SaveResult, error) {
	lookup := func() (*models.House, error) {
		return getHouseAnyState(ctx, s.pool, areaID, parsed.Street, parsed.HouseNumber)
	}
	insert := func() (SaveResult, error) {
		return s.insertParsedHouse(ctx, parsed, areaID, zoneID, createdBy, notes)
	}
	return saveWithConflictRecovery(parsed.Street, parsed.HouseNumber, lookup, insert)
}

// saveWithConflictRecovery is the idempotent-write contract itself: an
// existing row (any state) short-circuits before the insert, and a unique
// violation from a lost creation race is recovered by re-reading the winner.
// Only genuinely unexpected errors surface.
func saveWithConflictRecovery(street, houseNumber string, lookup func() (*models.House, error), insert func() (SaveResult, error)) (SaveResult, error) {
	existing, err := lookup()
	if err != nil {
		return SaveResult{}, fmt.Errorf("check existing: %w", err)
	}
	if existing != nil {
		return SaveResult{HouseID: existing.ID}, nil
	}

	result, err := insert()
	if err == nil {
		return result, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		winner, ferr := lookup()
		if ferr != nil {
			return SaveResult{}, fmt.Errorf("refetch after conflict: %w", ferr)
		}
		if winner == nil {
			return SaveResult{}, fmt.Errorf("conflict on %s %s but no row found: %w", street, houseNumber, err)
		}
		return SaveResult{HouseID: winner.ID}, nil
	}

	return SaveResult{}, err
}

func (s *PostgresStore) insertParsedHouse(ctx context.Context, parsed *models.ParsedHouse, areaID string, zoneID int, createdBy int64, notes string) (SaveResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return SaveResult{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	house, err := insertHouse(ctx, tx, CreateHouseParams{
		AreaID:      areaID,
		ZoneID:      zoneID,
		Street:      parsed.Street,
		HouseNumber: parsed.HouseNumber,
		Floors:      parsed.Floors,
		Entrances:   parsed.Entrances,
		CreatedBy:   createdBy,
		Notes:       notes,
	})
	if err != nil {
		return SaveResult{}, err
	}

	for i := 1; i <= parsed.Entrances; i++ {
		entranceID, err := insertEntrance(ctx, tx, house.ID, i, parsed.Floors, parsed.FlatsText(i), createdBy)
		if err != nil {
			return SaveResult{}, fmt.Errorf("insert entrance %d: %w", i, err)
		}

		for _, r := range parsed.FlatsByEntrance[i] {
			_, err := tx.Exec(ctx,
				`INSERT INTO entrance_flats_ranges (entrance_id, start_flat, end_flat) VALUES ($1, $2, $3)`,
				entranceID, r.StartFlat, r.EndFlat,
			)
			if err != nil {
				return SaveResult{}, fmt.Errorf("insert flats range: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return SaveResult{}, fmt.Errorf("commit: %w", err)
	}
	return SaveResult{HouseID: house.ID, Created: true}, nil
}

func insertHouse(ctx context.Context, tx pgx.Tx, p CreateHouseParams) (*models.House, error) {
	query := `
		INSERT INTO houses (
			area_id, zone_id, street, house_number, entrances, floors,
			is_in_gks, is_active, notes, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, FALSE, TRUE, $7, $8, $8, $9, $9)
		RETURNING ` + houseColumns

	now := models.Now()
	return scanHouse(tx.QueryRow(ctx, query,
		p.AreaID, p.ZoneID, p.Street, p.HouseNumber, p.Entrances, p.Floors,
		p.Notes, now, p.CreatedBy,
	))
}

func insertEntrance(ctx context.Context, tx pgx.Tx, houseID, number, floors int, flatsText string, createdBy int64) (int, error) {
	query := `
		INSERT INTO house_entrances (
			house_id, entrance_number, floors, flats_text, is_active, notes,
			created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, TRUE, '', $5, $5, $6, $6)
		RETURNING id`

	var id int
	err := tx.QueryRow(ctx, query, houseID, number, floors, flatsText, models.Now(), createdBy).Scan(&id)
	return id, err
}

func (s *PostgresStore) GetHouseByID(ctx context.Context, id int) (*models.House, error) {
	query := `SELECT ` + houseColumns + ` FROM houses WHERE id = $1`
	return scanHouse(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) GetEntrancesByHouse(ctx context.Context, houseID int) ([]models.HouseEntrance, error) {
	query := `
		SELECT id, house_id, entrance_number, COALESCE(floors, 0), COALESCE(flats_text, ''),
			is_active, COALESCE(notes, ''), created_at, updated_at, created_by, updated_by
		FROM house_entrances
		WHERE house_id = $1
		ORDER BY entrance_number`

	rows, err := s.pool.Query(ctx, query, houseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entrances []models.HouseEntrance
	for rows.Next() {
		var e models.HouseEntrance
		if err := rows.Scan(
			&e.ID, &e.HouseID, &e.EntranceNumber, &e.Floors, &e.FlatsText,
			&e.IsActive, &e.Notes, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy, &e.UpdatedBy,
		); err != nil {
			return nil, err
		}
		entrances = append(entrances, e)
	}
	return entrances, rows.Err()
}

// GetFlatsRangesByHouse returns every range row for a house keyed by
// entrance row id.
func (s *PostgresStore) GetFlatsRangesByHouse(ctx context.Context, houseID int) (map[int][]models.FlatsRange, error) {
	query := `
		SELECT r.id, r.entrance_id, r.start_flat, r.end_flat
		FROM entrance_flats_ranges r
		JOIN house_entrances e ON e.id = r.entrance_id
		WHERE e.house_id = $1
		ORDER BY r.start_flat`

	rows, err := s.pool.Query(ctx, query, houseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranges := make(map[int][]models.FlatsRange)
	for rows.Next() {
		var r models.FlatsRange
		if err := rows.Scan(&r.ID, &r.EntranceID, &r.StartFlat, &r.EndFlat); err != nil {
			return nil, err
		}
		ranges[r.EntranceID] = append(ranges[r.EntranceID], r)
	}
	return ranges, rows.Err()
}

// GetHouseView loads a house with its zone, city, entrances and ranges and
// renders the presentation summary the dialog layer shows.
func (s *PostgresStore) GetHouseView(ctx context.Context, houseID int) (*models.HouseView, error) {
	house, err := s.GetHouseByID(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("get house: %w", err)
	}
	if house == nil {
		return nil, nil
	}

	zone, err := s.GetZoneByID(ctx, house.ZoneID)
	if err != nil {
		return nil, fmt.Errorf("get zone: %w", err)
	}

	var city *models.City
	if zone != nil {
		city, err = s.GetCityByID(ctx, zone.CityID)
		if err != nil {
			return nil, fmt.Errorf("get city: %w", err)
		}
	}

	entrances, err := s.GetEntrancesByHouse(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("get entrances: %w", err)
	}

	ranges, err := s.GetFlatsRangesByHouse(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("get flats ranges: %w", err)
	}

	return models.BuildHouseView(house, city, zone, entrances, ranges), nil
}
