package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.exec(ctx, "set_metadata", `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func lastBuildKey(repositoryID string) string {
	return "last_build:" + repositoryID
}

// GetLastBuild returns when the last complete build pass of a repository
// finished. Returns zero time if it never ran.
func (d *Database) GetLastBuild(ctx context.Context, repositoryID string) (time.Time, error) {
	value, err := d.GetMetadata(ctx, lastBuildKey(repositoryID))
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastBuild records the completion time of a build pass.
func (d *Database) SetLastBuild(ctx context.Context, repositoryID string, t time.Time) error {
	return d.SetMetadata(ctx, lastBuildKey(repositoryID), t.UTC().Format(time.RFC3339))
}
