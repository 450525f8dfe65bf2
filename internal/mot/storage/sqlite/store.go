// Package sqlite persists track records and per-frame observations so
// runs can be reviewed and compared after the fact.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// TrackRecord is the persisted summary row for one track.
type TrackRecord struct {
	TrackID     string
	StreamIndex int
	Class       int
	State       string
	StartFrame  int
	LastFrame   int
	AvgWidth    float32
	AvgHeight   float32
}

// Observation is one per-frame sample of a track's filtered state.
type Observation struct {
	TrackID    string
	FrameIndex int
	X, Y       float32
	W, H       float32
	VelocityX  float32
	VelocityY  float32
}

// Store wraps a sqlite database holding tracks and observations.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// migrateUp applies embedded migrations to the latest version.
func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertTrack inserts or updates a track summary row. ON CONFLICT DO
// UPDATE is used rather than INSERT OR REPLACE so observation rows are
// not cascade-deleted on update.
func (s *Store) UpsertTrack(rec *TrackRecord) error {
	query := `
		INSERT INTO tracks (
			track_id, stream_index, class, state,
			start_frame, last_frame, avg_width, avg_height
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (track_id) DO UPDATE SET
			class = excluded.class,
			state = excluded.state,
			last_frame = excluded.last_frame,
			avg_width = excluded.avg_width,
			avg_height = excluded.avg_height,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.Exec(query,
		rec.TrackID, rec.StreamIndex, rec.Class, rec.State,
		rec.StartFrame, rec.LastFrame, rec.AvgWidth, rec.AvgHeight,
	)
	if err != nil {
		return fmt.Errorf("upsert track %s: %w", rec.TrackID, err)
	}
	return nil
}

// InsertObservation appends one observation row for a track.
func (s *Store) InsertObservation(obs *Observation) error {
	query := `
		INSERT INTO track_obs (track_id, frame_index, x, y, w, h, velocity_x, velocity_y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		obs.TrackID, obs.FrameIndex,
		obs.X, obs.Y, obs.W, obs.H,
		obs.VelocityX, obs.VelocityY,
	)
	if err != nil {
		return fmt.Errorf("insert observation for track %s: %w", obs.TrackID, err)
	}
	return nil
}

// GetTrack fetches one track summary, or nil when absent.
func (s *Store) GetTrack(trackID string) (*TrackRecord, error) {
	row := s.db.QueryRow(`
		SELECT track_id, stream_index, class, state, start_frame, last_frame, avg_width, avg_height
		FROM tracks WHERE track_id = ?
	`, trackID)
	rec := &TrackRecord{}
	err := row.Scan(
		&rec.TrackID, &rec.StreamIndex, &rec.Class, &rec.State,
		&rec.StartFrame, &rec.LastFrame, &rec.AvgWidth, &rec.AvgHeight,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", trackID, err)
	}
	return rec, nil
}

// GetObservations returns a track's observations ordered by frame index.
// A limit of 0 means no limit.
func (s *Store) GetObservations(trackID string, limit int) ([]*Observation, error) {
	query := `
		SELECT track_id, frame_index, x, y, w, h, velocity_x, velocity_y
		FROM track_obs WHERE track_id = ? ORDER BY frame_index
	`
	args := []any{trackID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get observations for %s: %w", trackID, err)
	}
	defer rows.Close()

	var obs []*Observation
	for rows.Next() {
		o := &Observation{}
		if err := rows.Scan(&o.TrackID, &o.FrameIndex, &o.X, &o.Y, &o.W, &o.H, &o.VelocityX, &o.VelocityY); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// TracksForStream returns track summaries for one stream, optionally
// filtered by state ("" for all), ordered by start frame.
func (s *Store) TracksForStream(streamIndex int, state string) ([]*TrackRecord, error) {
	query := `
		SELECT track_id, stream_index, class, state, start_frame, last_frame, avg_width, avg_height
		FROM tracks WHERE stream_index = ?
	`
	args := []any{streamIndex}
	if state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}
	query += " ORDER BY start_frame, track_id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("tracks for stream %d: %w", streamIndex, err)
	}
	defer rows.Close()

	var recs []*TrackRecord
	for rows.Next() {
		rec := &TrackRecord{}
		if err := rows.Scan(
			&rec.TrackID, &rec.StreamIndex, &rec.Class, &rec.State,
			&rec.StartFrame, &rec.LastFrame, &rec.AvgWidth, &rec.AvgHeight,
		); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// PruneShortTracks deletes tracks whose lifetime never reached minFrames
// frames. Spurious tentative tracks otherwise accumulate without bound.
func (s *Store) PruneShortTracks(minFrames int) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM tracks WHERE last_frame - start_frame < ?`, minFrames,
	)
	if err != nil {
		return 0, fmt.Errorf("prune short tracks: %w", err)
	}
	return result.RowsAffected()
}
