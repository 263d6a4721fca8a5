package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"techline/models"
)

// SQLiteStore is the local operational database: resolution runs, operator
// commands and recent log lines. Nothing in it is shared state; the Postgres
// catalog stays authoritative for domain data.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resolution_runs (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		city_id INTEGER,
		query TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		outcome TEXT,
		house_id INTEGER,
		detail TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS ops_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_user ON resolution_runs(user_id, started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON resolution_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON ops_logs(run_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ResolutionRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO resolution_runs (user_id, city_id, query, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.UserID, run.CityID, run.Query, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ResolutionRun) error {
	_, err := s.db.Exec(`
		UPDATE resolution_runs SET finished_at = ?, status = ?, outcome = ?, house_id = ?, detail = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Outcome, run.HouseID, run.Detail, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ResolutionRun, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, city_id, query, started_at, finished_at, status, outcome, house_id, detail
		FROM resolution_runs WHERE id = ?`, id)

	return scanRun(row)
}

func (s *SQLiteStore) GetRecentRuns(userID int64, limit int) ([]models.ResolutionRun, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, city_id, query, started_at, finished_at, status, outcome, house_id, detail
		FROM resolution_runs WHERE user_id = ? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ResolutionRun
	for rows.Next() {
		var r models.ResolutionRun
		var cityID sql.NullInt64
		var houseID sql.NullInt64
		var finished sql.NullTime
		var outcome, detail sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &cityID, &r.Query, &r.StartedAt, &finished,
			&r.Status, &outcome, &houseID, &detail); err != nil {
			return nil, err
		}
		fillRunNullables(&r, cityID, finished, outcome, houseID, detail)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(row *sql.Row) (*models.ResolutionRun, error) {
	var r models.ResolutionRun
	var cityID sql.NullInt64
	var houseID sql.NullInt64
	var finished sql.NullTime
	var outcome, detail sql.NullString
	err := row.Scan(&r.ID, &r.UserID, &cityID, &r.Query, &r.StartedAt, &finished,
		&r.Status, &outcome, &houseID, &detail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fillRunNullables(&r, cityID, finished, outcome, houseID, detail)
	return &r, nil
}

func fillRunNullables(r *models.ResolutionRun, cityID sql.NullInt64, finished sql.NullTime, outcome sql.NullString, houseID sql.NullInt64, detail sql.NullString) {
	if cityID.Valid {
		r.CityID = int(cityID.Int64)
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if outcome.Valid {
		r.Outcome = models.Outcome(outcome.String)
	}
	if houseID.Valid {
		id := int(houseID.Int64)
		r.HouseID = &id
	}
	if detail.Valid {
		r.Detail = detail.String
	}
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		if err := rows.Scan(&cmd.ID, &cmd.Command, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) EnqueueCommand(command models.CommandType) error {
	_, err := s.db.Exec(`INSERT INTO commands (command) VALUES (?)`, command)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message string) error {
	_, err := s.db.Exec(`
		INSERT INTO ops_logs (run_id, timestamp, level, message)
		VALUES (?, ?, ?, ?)`,
		runID, time.Now(), level, message)
	return err
}

// PruneLogs keeps the ops_logs table from growing without bound.
func (s *SQLiteStore) PruneLogs(olderThan time.Duration) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM ops_logs WHERE timestamp < ?`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ResetAllData clears all operational tables.
func (s *SQLiteStore) ResetAllData() error {
	tables := []string{"ops_logs", "resolution_runs", "commands"}

	for _, table := range tables {
		_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	return nil
}
