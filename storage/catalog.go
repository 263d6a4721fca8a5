package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"techline/models"
)

// Read-only reference catalog: branches, cities, zones, areas, user scopes.
// The resolution pipeline consults these, never mutates them.

func (s *PostgresStore) GetAllCities(ctx context.Context) ([]models.City, error) {
	query := `SELECT id, name, url, branch_id FROM cities ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.BranchID); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

func (s *PostgresStore) GetCitiesByBranch(ctx context.Context, branchID int16) ([]models.City, error) {
	query := `SELECT id, name, url, branch_id FROM cities WHERE branch_id = $1 ORDER BY name`

	rows, err := s.pool.Query(ctx, query, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.BranchID); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

func (s *PostgresStore) GetCityByID(ctx context.Context, id int) (*models.City, error) {
	query := `SELECT id, name, url, branch_id FROM cities WHERE id = $1`

	var c models.City
	err := s.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.URL, &c.BranchID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) GetZoneByID(ctx context.Context, id int) (*models.Zone, error) {
	query := `SELECT id, name, branch_id, city_id FROM zones WHERE id = $1`

	var z models.Zone
	err := s.pool.QueryRow(ctx, query, id).Scan(&z.ID, &z.Name, &z.BranchID, &z.CityID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *PostgresStore) GetZonesByCity(ctx context.Context, cityID int) ([]models.Zone, error) {
	query := `SELECT id, name, branch_id, city_id FROM zones WHERE city_id = $1 ORDER BY name`

	rows, err := s.pool.Query(ctx, query, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.BranchID, &z.CityID); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// GetZonesByAreaAndCity returns the zones an area is responsible for,
// restricted to one city. The area_zones association table carries the
// responsibility links.
func (s *PostgresStore) GetZonesByAreaAndCity(ctx context.Context, areaID string, cityID int) ([]models.Zone, error) {
	query := `
		SELECT z.id, z.name, z.branch_id, z.city_id
		FROM zones z
		JOIN area_zones az ON az.zone_id = z.id
		WHERE az.area_id = $1 AND z.city_id = $2
		ORDER BY z.name`

	rows, err := s.pool.Query(ctx, query, areaID, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.BranchID, &z.CityID); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// GetCitiesByArea returns the distinct cities an area's zones belong to,
// used when a user is responsible for zones across more than one city.
func (s *PostgresStore) GetCitiesByArea(ctx context.Context, areaID string) ([]models.City, error) {
	query := `
		SELECT DISTINCT c.id, c.name, c.url, c.branch_id
		FROM cities c
		JOIN zones z ON z.city_id = c.id
		JOIN area_zones az ON az.zone_id = z.id
		WHERE az.area_id = $1
		ORDER BY c.name`

	rows, err := s.pool.Query(ctx, query, areaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.BranchID); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

func (s *PostgresStore) GetUserScope(ctx context.Context, userID int64) (*models.UserScope, error) {
	query := `
		SELECT id, full_name, COALESCE(area_id, ''), COALESCE(branch_id, 0), default_city_id, is_active
		FROM users WHERE id = $1`

	var u models.UserScope
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.FullName, &u.AreaID, &u.BranchID, &u.DefaultCityID, &u.IsActive,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
