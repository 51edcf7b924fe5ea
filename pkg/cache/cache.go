package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foomo/sitepress/pkg/errs"
	"github.com/google/uuid"
)

type (
	// Finder read only lookup by url key (host + path)
	Finder interface {
		Find(url string) (*Entry, bool)
	}
	// Generation an immutable, completely built set of responses
	Generation struct {
		id      string
		created time.Time
		entries map[string]*Entry
	}
	// Builder collects the responses of a generation under construction.
	// Disjoint keys may be added concurrently.
	Builder struct {
		id      string
		created time.Time
		entries map[string]*Entry
		lock    sync.RWMutex
		sealed  bool
	}
	// Store holds the published generation
	Store struct {
		current atomic.Pointer[Generation]
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Builder
// ------------------------------------------------------------------------------------------------

func NewBuilder() *Builder {
	return &Builder{
		id:      uuid.New().String(),
		created: time.Now().UTC().Truncate(time.Second),
		entries: map[string]*Entry{},
	}
}

func (b *Builder) ID() string {
	return b.id
}

// Created time used as last modified for every response of the generation
func (b *Builder) Created() time.Time {
	return b.created
}

// AddResponse inserts entry for url. A url produced twice is a build error.
func (b *Builder) AddResponse(url string, entry *Entry) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.sealed {
		return errs.Configuration("generation %s is sealed, can not add %s", b.id, url)
	}
	if existing, ok := b.entries[url]; ok {
		return errs.Configuration("duplicate url %s produced by %s and %s", url, existing.Producer, entry.Producer)
	}
	if entry.Regular.LastModified.IsZero() {
		entry.Regular.LastModified = b.created
	}
	if entry.PJAX != nil && entry.PJAX.LastModified.IsZero() {
		entry.PJAX.LastModified = b.created
	}
	b.entries[url] = entry
	return nil
}

func (b *Builder) Find(url string) (*Entry, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	e, ok := b.entries[url]
	return e, ok
}

func (b *Builder) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.entries)
}

// Seal finishes the builder and returns the immutable generation
func (b *Builder) Seal() *Generation {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.sealed = true
	return &Generation{
		id:      b.id,
		created: b.created,
		entries: b.entries,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Generation
// ------------------------------------------------------------------------------------------------

func (g *Generation) ID() string {
	return g.id
}

func (g *Generation) Created() time.Time {
	return g.created
}

func (g *Generation) Find(url string) (*Entry, bool) {
	e, ok := g.entries[url]
	return e, ok
}

func (g *Generation) Len() int {
	return len(g.entries)
}

// URLs returns all url keys sorted
func (g *Generation) URLs() []string {
	urls := make([]string, 0, len(g.entries))
	for url := range g.entries {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// ------------------------------------------------------------------------------------------------
// ~ Store
// ------------------------------------------------------------------------------------------------

func NewStore() *Store {
	return &Store{}
}

// Publish atomically replaces the live generation. Readers holding the
// previous generation keep using it until they drop their reference.
func (s *Store) Publish(g *Generation) *Generation {
	return s.current.Swap(g)
}

// Current returns the live generation, nil before the first publish
func (s *Store) Current() *Generation {
	return s.current.Load()
}

func (s *Store) Find(url string) (*Entry, bool) {
	g := s.current.Load()
	if g == nil {
		return nil, false
	}
	return g.Find(url)
}

func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}
