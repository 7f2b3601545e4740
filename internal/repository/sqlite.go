package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const exposureColumns = `eventid, time, latitude, longitude, depth, magnitude,
	predicted_deaths, mmi5, mmi6, mmi7, mmi8, mmi9, mmi10`

type SQLiteDB struct {
	db *sqlx.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// each connection to ":memory:" is its own database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS exposures (
			eventid TEXT PRIMARY KEY,
			time DATETIME NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			depth REAL NOT NULL,
			magnitude REAL NOT NULL,
			predicted_deaths INTEGER NOT NULL DEFAULT 0,
			mmi5 INTEGER NOT NULL DEFAULT 0,
			mmi6 INTEGER NOT NULL DEFAULT 0,
			mmi7 INTEGER NOT NULL DEFAULT 0,
			mmi8 INTEGER NOT NULL DEFAULT 0,
			mmi9 INTEGER NOT NULL DEFAULT 0,
			mmi10 INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_exposures_time ON exposures(time);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Load(ctx context.Context) ([]models.Exposure, error) {
	exposures := []models.Exposure{}
	query := `SELECT ` + exposureColumns + ` FROM exposures ORDER BY time, eventid`
	if err := s.db.SelectContext(ctx, &exposures, query); err != nil {
		return nil, fmt.Errorf("error while loading exposures: %w", err)
	}
	return exposures, nil
}

func (s *SQLiteDB) Save(ctx context.Context, exposures []models.Exposure) error {
	if len(exposures) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error while starting transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO exposures (` + exposureColumns + `)
		VALUES (:eventid, :time, :latitude, :longitude, :depth, :magnitude,
			:predicted_deaths, :mmi5, :mmi6, :mmi7, :mmi8, :mmi9, :mmi10)
		ON CONFLICT(eventid) DO UPDATE SET
			time = excluded.time,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			depth = excluded.depth,
			magnitude = excluded.magnitude,
			predicted_deaths = excluded.predicted_deaths,
			mmi5 = excluded.mmi5,
			mmi6 = excluded.mmi6,
			mmi7 = excluded.mmi7,
			mmi8 = excluded.mmi8,
			mmi9 = excluded.mmi9,
			mmi10 = excluded.mmi10,
			updated_at = CURRENT_TIMESTAMP
	`
	for _, e := range exposures {
		if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
			return fmt.Errorf("error while saving exposure %s: %w", e.EventID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteDB) Get(ctx context.Context, eventID string) (*models.Exposure, error) {
	var e models.Exposure
	query := `SELECT ` + exposureColumns + ` FROM exposures WHERE eventid = ?`
	err := s.db.GetContext(ctx, &e, query, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error while getting exposure %s: %w", eventID, err)
	}
	return &e, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
