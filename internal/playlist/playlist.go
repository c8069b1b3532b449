package playlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"media-index/internal/iterator"
	"media-index/internal/logging"
	"media-index/internal/metrics"
	"media-index/internal/repository"
)

// ErrNoContent is returned when nothing in the index matches a playlist,
// even after recompiling.
var ErrNoContent = errors.New("no content matches the playlist")

// Playlist is a named selection with a cursor. When the cursor runs out,
// the selection is compiled again so files indexed meanwhile show up.
// It is safe for concurrent use.
type Playlist struct {
	name     string
	criteria iterator.Criteria
	store    iterator.Store
	resolver iterator.Resolver

	mu sync.Mutex
	it *iterator.Iterator
}

// Status describes the cursor of a playlist.
type Status struct {
	Name     string            `json:"name"`
	Criteria iterator.Criteria `json:"criteria"`
	Position int               `json:"position"`
	Length   int               `json:"length"`
	Started  bool              `json:"started"`
}

// New returns a playlist. The selection is compiled lazily by the first
// call to Next.
func New(name string, criteria iterator.Criteria, store iterator.Store, resolver iterator.Resolver) (*Playlist, error) {
	if name == "" {
		return nil, repository.Invalid("name", name, "must not be empty")
	}
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("playlist %s: %w", name, err)
	}
	return &Playlist{
		name:     name,
		criteria: criteria,
		store:    store,
		resolver: resolver,
	}, nil
}

func (p *Playlist) Name() string { return p.name }

func (p *Playlist) Criteria() iterator.Criteria { return p.criteria }

// Next returns the next file of the selection. On exhaustion the
// selection is compiled once more and the first file of the new
// snapshot is returned; ErrNoContent means the new snapshot is empty too.
func (p *Playlist) Next(ctx context.Context) (repository.FileHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.it != nil {
		file, err := p.it.Next(ctx)
		if !errors.Is(err, iterator.ErrExhausted) {
			return file, err
		}
		metrics.PlaylistRestartsTotal.WithLabelValues(p.name).Inc()
		logging.Debug("Playlist %s exhausted after %d files, restarting", p.name, p.it.Position())
	}

	it, err := iterator.Compile(ctx, p.store, p.resolver, p.criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to compile playlist %s: %w", p.name, err)
	}
	p.it = it

	file, err := it.Next(ctx)
	if errors.Is(err, iterator.ErrExhausted) {
		return nil, ErrNoContent
	}
	return file, err
}

// Previous steps back n files. It returns iterator.ErrExhausted when the
// cursor is not far enough into the current snapshot.
func (p *Playlist) Previous(ctx context.Context, n int) (repository.FileHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.it == nil {
		if n < 1 {
			return nil, repository.Invalid("n", n, "must be at least 1")
		}
		return nil, iterator.ErrExhausted
	}
	return p.it.Previous(ctx, n)
}

// Reset drops the cursor. The next call to Next compiles a new snapshot.
func (p *Playlist) Reset() {
	p.mu.Lock()
	p.it = nil
	p.mu.Unlock()
}

// Status returns the cursor position within the current snapshot.
func (p *Playlist) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{Name: p.name, Criteria: p.criteria}
	if p.it != nil {
		s.Started = true
		s.Position = p.it.Position()
		s.Length = p.it.Len()
	}
	return s
}

// Set holds the configured playlists by name.
type Set struct {
	playlists map[string]*Playlist
}

// NewSet builds playlists from configuration-style criteria maps.
func NewSet(defs map[string]map[string]any, store iterator.Store, resolver iterator.Resolver) (*Set, error) {
	s := &Set{playlists: make(map[string]*Playlist, len(defs))}
	for name, raw := range defs {
		criteria, err := iterator.ParseCriteria(raw)
		if err != nil {
			return nil, fmt.Errorf("playlist %s: %w", name, err)
		}
		p, err := New(name, criteria, store, resolver)
		if err != nil {
			return nil, err
		}
		s.playlists[name] = p
	}
	return s, nil
}

// Get returns the playlist called name or an error wrapping
// repository.ErrNotFound.
func (s *Set) Get(name string) (*Playlist, error) {
	p, ok := s.playlists[name]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", repository.ErrNotFound, name)
	}
	return p, nil
}

// Names returns the playlist names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.playlists))
	for name := range s.playlists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Set) Len() int { return len(s.playlists) }

// Statuses returns the status of every playlist, sorted by name.
func (s *Set) Statuses() []Status {
	out := make([]Status, 0, len(s.playlists))
	for _, name := range s.Names() {
		out = append(out, s.playlists[name].Status())
	}
	return out
}
