package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"techline/models"
)

const officeColumns = `id, name, address, city_id, zone_id, COALESCE(comments, ''),
	COALESCE(photo_url, ''), COALESCE(working_hours, ''), COALESCE(phone, ''), COALESCE(email, ''), created_at`

func scanOffice(row pgx.Row) (*models.HousingOffice, error) {
	var o models.HousingOffice
	err := row.Scan(
		&o.ID, &o.Name, &o.Address, &o.CityID, &o.ZoneID, &o.Comments,
		&o.PhotoURL, &o.WorkingHours, &o.Phone, &o.Email, &o.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) GetHousingOfficeByID(ctx context.Context, id int) (*models.HousingOffice, error) {
	query := `SELECT ` + officeColumns + ` FROM housing_offices WHERE id = $1`
	return scanOffice(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) getHousingOfficeByKey(ctx context.Context, name, address string, cityID, zoneID int) (*models.HousingOffice, error) {
	query := `
		SELECT ` + officeColumns + `
		FROM housing_offices
		WHERE LOWER(name) = LOWER($1) AND LOWER(address) = LOWER($2) AND city_id = $3 AND zone_id = $4`

	return scanOffice(s.pool.QueryRow(ctx, query, name, address, cityID, zoneID))
}

// CreateHousingOffice inserts an office record, returning the existing row
// when the (name, address, city, zone) key is already taken. Same contract
// as the house write: calling it twice is safe and converges on one row.
func (s *PostgresStore) CreateHousingOffice(ctx context.Context, o *models.HousingOffice) (*models.HousingOffice, bool, error) {
	query := `
		INSERT INTO housing_offices (name, address, city_id, zone_id, comments, photo_url, working_hours, phone, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + officeColumns

	created, err := scanOffice(s.pool.QueryRow(ctx, query,
		o.Name, o.Address, o.CityID, o.ZoneID, o.Comments, o.PhotoURL, o.WorkingHours, o.Phone, o.Email, models.Now(),
	))
	if err == nil {
		return created, true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		existing, ferr := s.getHousingOfficeByKey(ctx, o.Name, o.Address, o.CityID, o.ZoneID)
		if ferr != nil {
			return nil, false, fmt.Errorf("refetch after conflict: %w", ferr)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("conflict on office %q but no row found: %w", o.Name, err)
		}
		return existing, false, nil
	}

	return nil, false, err
}

func (s *PostgresStore) GetHousingOfficesByZone(ctx context.Context, zoneID int) ([]models.HousingOffice, error) {
	query := `SELECT ` + officeColumns + ` FROM housing_offices WHERE zone_id = $1 ORDER BY name`

	rows, err := s.pool.Query(ctx, query, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offices []models.HousingOffice
	for rows.Next() {
		var o models.HousingOffice
		if err := rows.Scan(
			&o.ID, &o.Name, &o.Address, &o.CityID, &o.ZoneID, &o.Comments,
			&o.PhotoURL, &o.WorkingHours, &o.Phone, &o.Email, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	return offices, rows.Err()
}

// LinkHouseToOffice sets the housing office reference on a house.
func (s *PostgresStore) LinkHouseToOffice(ctx context.Context, houseID, officeID int, updatedBy int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE houses SET housing_office_id = $1, updated_at = $2, updated_by = $3 WHERE id = $4`,
		officeID, models.Now(), updatedBy, houseID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("house %d not found", houseID)
	}
	return nil
}
