package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-index/internal/mediatypes"
)

const recordColumns = `id, repository_id, file_id, name, kind, width, height, rotation, orientation,
	creation_date, description, rating, latitude, longitude, altitude, random_seed,
	last_modified, last_updated, verified`

// Lookup returns the record for a file, or ErrRecordNotFound.
func (d *Database) Lookup(ctx context.Context, repositoryID, fileID string) (rec *Record, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrRecordNotFound) {
			recordQuery("lookup", start, nil)
			return
		}
		recordQuery("lookup", start, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM files WHERE repository_id = ? AND file_id = ?",
		repositoryID, fileID,
	)
	rec, err = scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Tags, err = d.recordTags(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec         Record
		kind        string
		orientation string
		creation    int64
		modified    int64
		updated     int64
		description sql.NullString
		rating      sql.NullInt64
		lat         sql.NullFloat64
		lon         sql.NullFloat64
		alt         sql.NullFloat64
	)

	err := row.Scan(
		&rec.ID, &rec.RepositoryID, &rec.FileID, &rec.Name, &kind,
		&rec.Width, &rec.Height, &rec.Rotation, &orientation,
		&creation, &description, &rating, &lat, &lon, &alt, &rec.RandomSeed,
		&modified, &updated, &rec.Verified,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = mediatypes.Kind(kind)
	rec.Orientation = mediatypes.Orientation(orientation)
	rec.CreationDate = fromUnix(creation)
	rec.LastModified = fromUnixNano(modified)
	rec.LastUpdated = fromUnixNano(updated)
	rec.Description = description.String
	if rating.Valid {
		v := int(rating.Int64)
		rec.Rating = &v
	}
	rec.Latitude = nullFloat(lat)
	rec.Longitude = nullFloat(lon)
	rec.Altitude = nullFloat(alt)
	return &rec, nil
}

// Upsert inserts or replaces a record and relinks its tags in one
// transaction. The random seed is written as given: callers updating an
// existing record must carry its seed forward.
func (d *Database) Upsert(ctx context.Context, rec *Record) (err error) {
	start := time.Now()
	defer func() { recordQuery("upsert", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `
		INSERT INTO files (repository_id, file_id, name, kind, width, height, rotation, orientation,
			creation_date, description, rating, latitude, longitude, altitude, random_seed,
			last_modified, last_updated, verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repository_id, file_id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			width = excluded.width,
			height = excluded.height,
			rotation = excluded.rotation,
			orientation = excluded.orientation,
			creation_date = excluded.creation_date,
			description = excluded.description,
			rating = excluded.rating,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			altitude = excluded.altitude,
			random_seed = excluded.random_seed,
			last_modified = excluded.last_modified,
			last_updated = excluded.last_updated,
			verified = excluded.verified
		RETURNING id
		`,
			rec.RepositoryID, rec.FileID, rec.Name, string(rec.Kind),
			rec.Width, rec.Height, rec.Rotation, string(rec.Orientation),
			toUnix(rec.CreationDate), nullString(rec.Description), rec.Rating,
			rec.Latitude, rec.Longitude, rec.Altitude, rec.RandomSeed,
			toUnixNano(rec.LastModified), toUnixNano(rec.LastUpdated), rec.Verified,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to upsert %s/%s: %w", rec.RepositoryID, rec.FileID, err)
		}
		rec.ID = id

		if _, err := tx.ExecContext(ctx, "DELETE FROM tag_file WHERE file_id = ?", id); err != nil {
			return fmt.Errorf("failed to unlink tags: %w", err)
		}
		for _, name := range rec.Tags {
			tagID, err := d.UpsertTag(ctx, tx, name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO tag_file (tag_id, file_id) VALUES (?, ?)", tagID, id,
			); err != nil {
				return fmt.Errorf("failed to link tag %q: %w", name, err)
			}
		}
		return nil
	})
}

// MarkAllUnverified clears the verified flag of every record of a
// repository.
func (d *Database) MarkAllUnverified(ctx context.Context, repositoryID string) (err error) {
	start := time.Now()
	defer func() { recordQuery("mark_all_unverified", start, err) }()

	_, err = d.exec(ctx, "mark_all_unverified",
		"UPDATE files SET verified = 0 WHERE repository_id = ?", repositoryID)
	return err
}

// MarkVerified sets the verified flag of one record.
func (d *Database) MarkVerified(ctx context.Context, repositoryID, fileID string) (err error) {
	start := time.Now()
	defer func() { recordQuery("mark_verified", start, err) }()

	n, err := d.exec(ctx, "mark_verified",
		"UPDATE files SET verified = 1 WHERE repository_id = ? AND file_id = ?", repositoryID, fileID)
	if err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return err
}

// DeleteUnverified removes the records of a repository that were not
// verified during the current build pass.
func (d *Database) DeleteUnverified(ctx context.Context, repositoryID string) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("delete_unverified", start, err) }()

	return d.exec(ctx, "delete_unverified",
		"DELETE FROM files WHERE repository_id = ? AND verified = 0", repositoryID)
}

// DeleteAll removes every record of a repository.
func (d *Database) DeleteAll(ctx context.Context, repositoryID string) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("delete_all", start, err) }()

	return d.exec(ctx, "delete_all", "DELETE FROM files WHERE repository_id = ?", repositoryID)
}

// Count returns the number of records.
func (d *Database) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&n)
	return n, err
}

// CountRepository returns the number of records of one repository.
func (d *Database) CountRepository(ctx context.Context, repositoryID string) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM files WHERE repository_id = ?", repositoryID).Scan(&n)
	return n, err
}

// Timestamps are stored as unix seconds; 0 stands for an unknown time.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}

// last_modified and last_updated keep nanoseconds so that a change within
// the second of the last extraction still compares as newer.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
