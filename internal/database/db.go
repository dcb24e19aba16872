package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jgoulah/gridcast/pkg/models"
)

const (
	timestampLayout = time.RFC3339Nano
	dateLayout      = "2006-01-02"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		interval_seconds INTEGER NOT NULL,
		seed TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		ts TEXT NOT NULL,
		appliance_id INTEGER NOT NULL,
		appliance_name TEXT NOT NULL,
		user_id TEXT NOT NULL,
		usage REAL NOT NULL CHECK (usage >= 0),
		UNIQUE(run_id, appliance_id, user_id, ts)
	);
	CREATE INDEX IF NOT EXISTS idx_readings_run ON readings(run_id);
	CREATE INDEX IF NOT EXISTS idx_readings_pair ON readings(run_id, appliance_id, user_id);
	CREATE TABLE IF NOT EXISTS daily_usage (
		run_id TEXT NOT NULL,
		date TEXT NOT NULL,
		appliance_id INTEGER NOT NULL,
		appliance_name TEXT NOT NULL,
		user_id TEXT NOT NULL,
		kwh REAL NOT NULL,
		UNIQUE(run_id, appliance_id, user_id, date)
	);
	CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		appliance_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		source TEXT NOT NULL,
		mae REAL NOT NULL,
		rmse REAL NOT NULL,
		n INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_run ON metrics(run_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun stores a new run, assigning its ID and creation time
func (db *DB) CreateRun(run *models.Run) error {
	return insertRun(db.conn, run)
}

// StoreRun stores a new run together with its readings in one transaction, so a failed
// insert leaves no run behind
func (db *DB) StoreRun(run *models.Run, readings []models.UsageReading) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRun(tx, run); err != nil {
		return err
	}
	if err := insertReadings(tx, run.ID, readings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertRun(conn execer, run *models.Run) error {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC()

	query := `
	INSERT INTO runs (id, created_at, start_time, end_time, interval_seconds, seed)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := conn.Exec(query,
		run.ID,
		run.CreatedAt.Format(time.RFC3339),
		run.Start.Format(timestampLayout),
		run.End.Format(timestampLayout),
		int64(run.Interval/time.Second),
		fmt.Sprintf("%d", run.Seed), // uint64 does not fit INTEGER
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID, returning nil if it does not exist
func (db *DB) GetRun(id string) (*models.Run, error) {
	query := `
	SELECT r.id, r.created_at, r.start_time, r.end_time, r.interval_seconds, r.seed,
		(SELECT COUNT(*) FROM readings WHERE run_id = r.id)
	FROM runs r
	WHERE r.id = ?
	`
	run, err := scanRun(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves all runs, newest first
func (db *DB) ListRuns() ([]models.Run, error) {
	query := `
	SELECT r.id, r.created_at, r.start_time, r.end_time, r.interval_seconds, r.seed,
		(SELECT COUNT(*) FROM readings WHERE run_id = r.id)
	FROM runs r
	ORDER BY r.created_at DESC, r.id
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, *run)
	}

	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var run models.Run
	var createdStr, startStr, endStr, seedStr string
	var intervalSeconds int64

	if err := row.Scan(&run.ID, &createdStr, &startStr, &endStr, &intervalSeconds, &seedStr, &run.Readings); err != nil {
		return nil, err
	}

	var err error
	if run.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if run.Start, err = time.Parse(timestampLayout, startStr); err != nil {
		return nil, fmt.Errorf("parsing start_time: %w", err)
	}
	if run.End, err = time.Parse(timestampLayout, endStr); err != nil {
		return nil, fmt.Errorf("parsing end_time: %w", err)
	}
	if _, err := fmt.Sscanf(seedStr, "%d", &run.Seed); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	run.Interval = time.Duration(intervalSeconds) * time.Second

	return &run, nil
}

// InsertReadings stores readings for a run in one transaction, ignoring duplicates
func (db *DB) InsertReadings(runID string, readings []models.UsageReading) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertReadings(tx, runID, readings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing readings: %w", err)
	}
	return nil
}

func insertReadings(tx *sql.Tx, runID string, readings []models.UsageReading) error {
	stmt, err := tx.Prepare(`
	INSERT INTO readings (run_id, ts, appliance_id, appliance_name, user_id, usage)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, appliance_id, user_id, ts) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		if _, err := stmt.Exec(runID, r.Timestamp.Format(timestampLayout), r.ApplianceID, string(r.ApplianceName), r.UserID, r.Usage); err != nil {
			return fmt.Errorf("inserting reading: %w", err)
		}
	}
	return nil
}

// ListReadings retrieves the readings of a run in generation order
// (appliance, user, timestamp as inserted)
func (db *DB) ListReadings(runID string) ([]models.UsageReading, error) {
	query := `
	SELECT ts, appliance_id, appliance_name, user_id, usage
	FROM readings
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := db.conn.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var results []models.UsageReading
	for rows.Next() {
		var r models.UsageReading
		var tsStr, name string
		if err := rows.Scan(&tsStr, &r.ApplianceID, &name, &r.UserID, &r.Usage); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.Timestamp, err = time.Parse(timestampLayout, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing ts: %w", err)
		}
		r.ApplianceName = models.ApplianceType(name)

		results = append(results, r)
	}

	return results, rows.Err()
}

// ReplaceDaily stores a daily series for a run, replacing any previous one for the pair
func (db *DB) ReplaceDaily(runID string, series models.DailySeries) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM daily_usage WHERE run_id = ? AND appliance_id = ? AND user_id = ?`,
		runID, series.ApplianceID, series.UserID); err != nil {
		return fmt.Errorf("clearing daily usage: %w", err)
	}

	for _, p := range series.Points {
		_, err := tx.Exec(`
		INSERT INTO daily_usage (run_id, date, appliance_id, appliance_name, user_id, kwh)
		VALUES (?, ?, ?, ?, ?, ?)
		`, runID, p.Date.Format(dateLayout), series.ApplianceID, string(series.ApplianceName), series.UserID, p.KWh)
		if err != nil {
			return fmt.Errorf("inserting daily usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing daily usage: %w", err)
	}
	return nil
}

// GetDaily retrieves the stored daily series of one pair, ordered by date.
// Dates are returned as midnight in loc (UTC when nil).
func (db *DB) GetDaily(runID string, applianceID int, userID string, loc *time.Location) (models.DailySeries, error) {
	if loc == nil {
		loc = time.UTC
	}

	query := `
	SELECT date, appliance_name, kwh
	FROM daily_usage
	WHERE run_id = ? AND appliance_id = ? AND user_id = ?
	ORDER BY date
	`

	rows, err := db.conn.Query(query, runID, applianceID, userID)
	if err != nil {
		return models.DailySeries{}, fmt.Errorf("querying daily usage: %w", err)
	}
	defer rows.Close()

	series := models.DailySeries{ApplianceID: applianceID, UserID: userID, Points: []models.DailyUsage{}}
	for rows.Next() {
		var dateStr, name string
		var p models.DailyUsage
		if err := rows.Scan(&dateStr, &name, &p.KWh); err != nil {
			return models.DailySeries{}, fmt.Errorf("scanning row: %w", err)
		}

		p.Date, err = time.ParseInLocation(dateLayout, dateStr, loc)
		if err != nil {
			return models.DailySeries{}, fmt.Errorf("parsing date: %w", err)
		}
		series.ApplianceName = models.ApplianceType(name)
		series.Points = append(series.Points, p)
	}

	return series, rows.Err()
}

// SaveMetrics stores an evaluation result for a run
func (db *DB) SaveMetrics(m *models.StoredMetrics) error {
	m.CreatedAt = time.Now().UTC()

	query := `
	INSERT INTO metrics (run_id, appliance_id, user_id, source, mae, rmse, n, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.conn.Exec(query, m.RunID, m.ApplianceID, m.UserID, m.Source, m.Metrics.MAE, m.Metrics.RMSE, m.Metrics.N, m.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting metrics: %w", err)
	}
	return nil
}

// ListMetrics retrieves the evaluation results of a run in insertion order
func (db *DB) ListMetrics(runID string) ([]models.StoredMetrics, error) {
	query := `
	SELECT run_id, appliance_id, user_id, source, mae, rmse, n, created_at
	FROM metrics
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := db.conn.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var results []models.StoredMetrics
	for rows.Next() {
		var m models.StoredMetrics
		var createdStr string
		if err := rows.Scan(&m.RunID, &m.ApplianceID, &m.UserID, &m.Source, &m.Metrics.MAE, &m.Metrics.RMSE, &m.Metrics.N, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		m.CreatedAt, err = time.Parse(time.RFC3339, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, m)
	}

	return results, rows.Err()
}
