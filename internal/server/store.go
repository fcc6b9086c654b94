package server

import (
	"sort"
	"strconv"
	"sync"
)

// Deck is one rendered deck as served by the preview.
type Deck struct {
	Slug   string
	Title  string
	Path   string
	HTML   string
	Meta   any
	Failed bool
}

// Summary is the index entry for a deck.
type Summary struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Path   string `json:"filePath"`
	Failed bool   `json:"failed"`
}

// Store holds the current decks and announces changes on a Broker.
// Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	decks  map[string]Deck
	broker *Broker
}

// NewStore creates an empty store. broker may be nil.
func NewStore(broker *Broker) *Store {
	return &Store{decks: make(map[string]Deck), broker: broker}
}

// Put adds or replaces d and publishes deck.updated. A deck from the same
// path under an older slug is dropped. When another file already holds
// d.Slug, the deck is stored under the next free "-2", "-3", ... suffix.
// Put returns the slug used.
func (s *Store) Put(d Deck) string {
	s.mu.Lock()
	d.Slug = s.uniqueSlug(d.Slug, d.Path)
	for k, old := range s.decks {
		if d.Path != "" && old.Path == d.Path && k != d.Slug {
			delete(s.decks, k)
		}
	}
	s.decks[d.Slug] = d
	s.mu.Unlock()

	if s.broker != nil {
		s.broker.Publish(Event{Type: EventDeckUpdated, Data: map[string]string{"slug": d.Slug}})
	}
	return d.Slug
}

// UniqueSlug returns the slug Put would assign to a deck built from path.
func (s *Store) UniqueSlug(slug, path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uniqueSlug(slug, path)
}

// uniqueSlug requires s.mu. Decks without a path always replace.
func (s *Store) uniqueSlug(slug, path string) string {
	if path == "" {
		return slug
	}
	taken := func(candidate string) bool {
		old, ok := s.decks[candidate]
		return ok && old.Path != path
	}
	unique := slug
	for n := 2; taken(unique); n++ {
		unique = slug + "-" + strconv.Itoa(n)
	}
	return unique
}

// RemovePath drops the deck built from path and publishes deck.removed.
// It reports whether a deck was removed.
func (s *Store) RemovePath(path string) bool {
	s.mu.Lock()
	var slug string
	for k, d := range s.decks {
		if d.Path == path {
			slug = k
			delete(s.decks, k)
			break
		}
	}
	s.mu.Unlock()

	if slug == "" {
		return false
	}
	if s.broker != nil {
		s.broker.Publish(Event{Type: EventDeckRemoved, Data: map[string]string{"slug": slug}})
	}
	return true
}

// Get returns the deck with slug.
func (s *Store) Get(slug string) (Deck, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decks[slug]
	return d, ok
}

// List returns all decks ordered by slug.
func (s *Store) List() []Summary {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.decks))
	for _, d := range s.decks {
		out = append(out, Summary{Slug: d.Slug, Title: d.Title, Path: d.Path, Failed: d.Failed})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
