package iterator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"media-index/internal/database"
	"media-index/internal/logging"
	"media-index/internal/mediatypes"
	"media-index/internal/metrics"
	"media-index/internal/repository"
)

// ErrExhausted is returned when an iterator has no further file. Callers
// compile a new iterator to pick up changes of the index.
var ErrExhausted = errors.New("iterator exhausted")

// Store materializes index queries.
type Store interface {
	Snapshot(ctx context.Context, query sq.SelectBuilder) ([]database.Ref, error)
}

// Resolver returns the adapter of a repository.
type Resolver interface {
	Get(id string) (repository.Adapter, error)
}

// Iterator walks a fixed snapshot of the index. It is not safe for
// concurrent use.
type Iterator struct {
	criteria Criteria
	resolver Resolver
	refs     []database.Ref
	position int

	// cutoff is set once a smart iteration hit its time gap.
	cutoff bool
}

// compiler holds the random sources used while compiling.
type compiler struct {
	store    Store
	resolver Resolver
	float    func() float64
	shuffle  func(n int, swap func(i, j int))
}

// Compile validates criteria, queries the index once and returns an
// iterator over the result. An empty result is not an error: the first
// call to Next returns ErrExhausted.
func Compile(ctx context.Context, store Store, resolver Resolver, criteria Criteria) (*Iterator, error) {
	c := compiler{
		store:    store,
		resolver: resolver,
		float:    rand.Float64,
		shuffle:  rand.Shuffle,
	}
	return c.compile(ctx, criteria)
}

func (c compiler) compile(ctx context.Context, criteria Criteria) (it *Iterator, err error) {
	start := time.Now()
	order := criteria.orderLabel()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.IteratorCompilesTotal.WithLabelValues(order, status).Inc()
		metrics.IteratorCompileDuration.WithLabelValues(order).Observe(time.Since(start).Seconds())
	}()

	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	query := filter(database.SelectRefs(), criteria)

	if criteria.MostRecent > 0 {
		newest, err := c.store.Snapshot(ctx, query.OrderBy(database.ColCreationDate+" DESC").Limit(uint64(criteria.MostRecent)))
		if err != nil {
			return nil, fmt.Errorf("failed to query most recent files: %w", err)
		}
		if len(newest) > 0 {
			// Every record dated like the N-th newest is kept, so ties
			// can yield more than N records.
			query = query.Where(database.CreatedSince(newest[len(newest)-1].CreationDate))
		}
	}

	var refs []database.Ref
	switch criteria.Order {
	case mediatypes.OrderSmart:
		refs, err = c.smart(ctx, query, criteria)
	case mediatypes.OrderRandom:
		refs, err = c.store.Snapshot(ctx, query.OrderBy(database.ColRowID))
		if err == nil {
			c.shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
		}
	default:
		refs, err = c.store.Snapshot(ctx, ordered(query, criteria))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	metrics.IteratorResultSize.Observe(float64(len(refs)))
	logging.Debug("Compiled iterator (%s) with %d files", criteria, len(refs))

	return &Iterator{
		criteria: criteria,
		resolver: c.resolver,
		refs:     refs,
	}, nil
}

// filter adds the conjunction of the criteria filters to query.
func filter(query sq.SelectBuilder, c Criteria) sq.SelectBuilder {
	if len(c.Repositories) > 0 {
		query = query.Where(sq.Eq{database.ColRepositoryID: c.Repositories})
	}
	if len(c.Kinds) > 0 {
		kinds := make([]string, len(c.Kinds))
		for i, k := range c.Kinds {
			kinds[i] = string(k)
		}
		query = query.Where(sq.Eq{database.ColKind: kinds})
	}
	if c.Orientation != "" {
		query = query.Where(sq.Eq{database.ColOrientation: string(c.Orientation)})
	}
	if len(c.Tags) > 0 {
		query = query.Where(database.HasAnyTag(c.Tags))
	}
	if len(c.ExcludedTags) > 0 {
		query = query.Where(database.HasNoTag(c.ExcludedTags))
	}
	return query
}

// ordered applies name, date or insertion order. Row ids break ties.
func ordered(query sq.SelectBuilder, c Criteria) sq.SelectBuilder {
	dir := " ASC"
	if c.Direction == mediatypes.Descending {
		dir = " DESC"
	}
	switch c.Order {
	case mediatypes.OrderName:
		return query.OrderBy("upper("+database.ColName+")"+dir, database.ColRowID+dir)
	case mediatypes.OrderDate:
		return query.OrderBy(database.ColCreationDate+dir, database.ColRowID+dir)
	}
	return query.OrderBy(database.ColRowID)
}

// smart picks the record whose seed is the smallest not below a fresh
// random number, wrapping around to the smallest seed, and returns up to
// SmartLimit records from its creation date on.
func (c compiler) smart(ctx context.Context, query sq.SelectBuilder, criteria Criteria) ([]database.Ref, error) {
	r := c.float()
	bySeed := query.OrderBy(database.ColRandomSeed, database.ColRowID).Limit(1)

	anchor, err := c.store.Snapshot(ctx, bySeed.Where(sq.GtOrEq{database.ColRandomSeed: r}))
	if err != nil {
		return nil, err
	}
	if len(anchor) == 0 {
		anchor, err = c.store.Snapshot(ctx, bySeed)
		if err != nil {
			return nil, err
		}
	}
	if len(anchor) == 0 {
		return nil, nil
	}
	logging.Debug("Smart order anchored at %s/%s (%v)", anchor[0].RepositoryID, anchor[0].FileID, anchor[0].CreationDate)

	return c.store.Snapshot(ctx, query.
		Where(database.CreatedSince(anchor[0].CreationDate)).
		OrderBy(database.ColCreationDate, database.ColRowID).
		Limit(uint64(criteria.SmartLimit)))
}

// Len returns the size of the snapshot, including files that no longer
// resolve.
func (it *Iterator) Len() int { return len(it.refs) }

// Position returns the number of snapshot entries consumed so far.
func (it *Iterator) Position() int { return it.position }

// Criteria returns the criteria the iterator was compiled from.
func (it *Iterator) Criteria() Criteria { return it.criteria }

// Next returns the next file that still resolves. Entries whose file is
// gone are logged and skipped. In smart order the iteration ends early
// once two consecutive entries are further apart than SmartTime hours.
func (it *Iterator) Next(ctx context.Context) (repository.FileHandle, error) {
	if it.cutoff {
		return nil, ErrExhausted
	}

	for {
		if it.position >= len(it.refs) {
			metrics.IteratorExhaustedTotal.WithLabelValues("end").Inc()
			return nil, ErrExhausted
		}
		ref := it.refs[it.position]
		it.position++

		if it.position > 1 {
			if gap, cut := it.gapExceeded(it.refs[it.position-2], ref); cut {
				logging.Debug("Ending smart iteration after a gap of %v", gap)
				it.cutoff = true
				metrics.IteratorExhaustedTotal.WithLabelValues("smart_time").Inc()
				return nil, ErrExhausted
			}
		}

		file, err := it.resolve(ctx, ref)
		if err == nil {
			return file, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		metrics.IteratorSkippedTotal.Inc()
		if errors.Is(err, repository.ErrNotFound) {
			logging.Warn("Skipping file '%s' of repository '%s', the index may be outdated: %v",
				ref.FileID, ref.RepositoryID, err)
		} else {
			logging.Error("Skipping file '%s' of repository '%s': %v", ref.FileID, ref.RepositoryID, err)
		}
	}
}

// Previous returns the n-th file before the last one returned. It rewinds
// the position by n+1 entries and steps forward, so files that were
// skipped count as entries.
func (it *Iterator) Previous(ctx context.Context, n int) (repository.FileHandle, error) {
	if n < 1 {
		return nil, repository.Invalid("n", n, "must be at least 1")
	}
	if it.position <= n {
		return nil, ErrExhausted
	}
	it.position -= n + 1
	it.cutoff = false
	return it.Next(ctx)
}

// Refs returns the entries a traversal from the start would visit, in
// order, without resolving them. Entries whose file is gone are included.
func (it *Iterator) Refs() []database.Ref {
	n := len(it.refs)
	for i := 1; i < len(it.refs); i++ {
		if _, cut := it.gapExceeded(it.refs[i-1], it.refs[i]); cut {
			n = i
			break
		}
	}
	return slices.Clone(it.refs[:n])
}

// gapExceeded reports whether a smart iteration ends between prev and cur.
func (it *Iterator) gapExceeded(prev, cur database.Ref) (time.Duration, bool) {
	if it.criteria.Order != mediatypes.OrderSmart {
		return 0, false
	}
	gap := cur.CreationDate.Sub(prev.CreationDate)
	return gap, gap.Hours() > it.criteria.SmartTime
}

func (it *Iterator) resolve(ctx context.Context, ref database.Ref) (repository.FileHandle, error) {
	adapter, err := it.resolver.Get(ref.RepositoryID)
	if err != nil {
		return nil, err
	}
	return adapter.Resolve(ctx, ref.FileID)
}
