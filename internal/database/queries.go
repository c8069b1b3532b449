package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"media-index/internal/logging"
	"media-index/internal/mediatypes"
	"media-index/internal/metrics"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Columns usable in iterator queries. The files table is aliased as f.
const (
	ColRepositoryID = "f.repository_id"
	ColFileID       = "f.file_id"
	ColName         = "f.name"
	ColKind         = "f.kind"
	ColOrientation  = "f.orientation"
	ColCreationDate = "f.creation_date"
	ColRandomSeed   = "f.random_seed"
	ColRowID        = "f.id"
)

// SelectRefs starts a query returning the columns Snapshot scans.
func SelectRefs() sq.SelectBuilder {
	return psql.Select(ColRepositoryID, ColFileID, ColCreationDate, ColRandomSeed).From("files f")
}

// CreatedSince matches records created at or after t.
func CreatedSince(t time.Time) sq.Sqlizer {
	return sq.GtOrEq{ColCreationDate: toUnix(t)}
}

// HasAnyTag matches records linked to at least one of names, compared
// case-insensitively.
func HasAnyTag(names []string) sq.Sqlizer {
	return tagExists("EXISTS", names)
}

// HasNoTag matches records linked to none of names, compared
// case-insensitively. Records without tags always match.
func HasNoTag(names []string) sq.Sqlizer {
	return tagExists("NOT EXISTS", names)
}

func tagExists(op string, names []string) sq.Sqlizer {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	sub := sq.Select("1").
		From("tag_file tf").
		Join("tags t ON t.id = tf.tag_id").
		Where("tf.file_id = f.id").
		Where(sq.Eq{"lower(t.name)": lowered})
	return sqlizerFunc(func() (string, []any, error) {
		query, args, err := sub.ToSql()
		if err != nil {
			return "", nil, err
		}
		return op + " (" + query + ")", args, nil
	})
}

type sqlizerFunc func() (string, []any, error)

func (f sqlizerFunc) ToSql() (string, []any, error) { return f() }

// Snapshot executes a query built from SelectRefs and materializes the
// rows.
func (d *Database) Snapshot(ctx context.Context, query sq.SelectBuilder) (refs []Ref, err error) {
	start := time.Now()
	defer func() { recordQuery("snapshot", start, err) }()

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	logging.Debug("Snapshot query: %s %v", sqlStr, args)

	rows, err := d.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	for rows.Next() {
		var (
			ref      Ref
			creation int64
		)
		if err := rows.Scan(&ref.RepositoryID, &ref.FileID, &creation, &ref.RandomSeed); err != nil {
			return nil, err
		}
		ref.CreationDate = fromUnix(creation)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Stats returns record totals per kind and per repository.
func (d *Database) Stats(ctx context.Context) (stats IndexStats, err error) {
	start := time.Now()
	defer func() { recordQuery("stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats.Repositories = make(map[string]int)

	rows, err := d.db.QueryContext(ctx,
		"SELECT repository_id, kind, COUNT(*) FROM files GROUP BY repository_id, kind")
	if err != nil {
		return stats, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	for rows.Next() {
		var (
			repo  string
			kind  string
			count int
		)
		if err := rows.Scan(&repo, &kind, &count); err != nil {
			return stats, err
		}
		stats.TotalRecords += count
		stats.Repositories[repo] += count
		switch mediatypes.Kind(kind) {
		case mediatypes.KindImage:
			stats.TotalImages += count
		case mediatypes.KindVideo:
			stats.TotalVideos += count
		default:
			stats.TotalOther += count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	stats.TotalTags, err = d.TagCount(ctx)
	return stats, err
}

// GetStats adapts Stats for the metrics collector.
func (d *Database) GetStats() metrics.Stats {
	d.UpdateDBMetrics()
	stats, err := d.Stats(context.Background())
	if err != nil {
		logging.Warn("Failed to collect index stats: %v", err)
	}
	return metrics.Stats{
		TotalRecords: stats.TotalRecords,
		ImageRecords: stats.TotalImages,
		VideoRecords: stats.TotalVideos,
		OtherRecords: stats.TotalOther,
		TotalTags:    stats.TotalTags,
	}
}
