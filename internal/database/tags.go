package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-index/internal/logging"
)

// UpsertTag returns the id of the tag called name, creating it if needed.
// The lookup is by exact, case-sensitive name and runs inside tx.
func (d *Database) UpsertTag(ctx context.Context, tx *sql.Tx, name string) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("upsert_tag", start, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("tag name cannot be empty")
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name,
	); err != nil {
		return 0, fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	err = tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to look up tag %q: %w", name, err)
	}
	return id, nil
}

// recordTags returns the tag names linked to a record, sorted
// case-insensitively.
func (d *Database) recordTags(ctx context.Context, recordID int64) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT t.name
		FROM tags t
		INNER JOIN tag_file tf ON t.id = tf.tag_id
		WHERE tf.file_id = ?
		ORDER BY lower(t.name), t.name
	`, recordID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// DeleteOrphanTags removes tags that no record links to.
func (d *Database) DeleteOrphanTags(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("delete_orphan_tags", start, err) }()

	return d.exec(ctx, "delete_orphan_tags",
		"DELETE FROM tags WHERE NOT EXISTS (SELECT 1 FROM tag_file tf WHERE tf.tag_id = tags.id)")
}

// TagCount returns the number of tags.
func (d *Database) TagCount(ctx context.Context) (n int, err error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&n)
	return n, err
}

// ListTags returns all tags with their usage counts.
func (d *Database) ListTags(ctx context.Context) ([]Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(tf.file_id)
		FROM tags t
		LEFT JOIN tag_file tf ON t.id = tf.tag_id
		GROUP BY t.id
		ORDER BY lower(t.name), t.name
	`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.ItemCount); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
