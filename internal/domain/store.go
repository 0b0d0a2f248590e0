package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Store holds at most one listing per key. It is not safe for concurrent use.
type Store struct {
	rows  map[string]*Listing
	byURL map[string]string
}

func NewStore() *Store {
	return &Store{
		rows:  make(map[string]*Listing),
		byURL: make(map[string]string),
	}
}

func (s *Store) Len() int {
	return len(s.rows)
}

func (s *Store) Empty() bool {
	return len(s.rows) == 0
}

func (s *Store) Has(key string) bool {
	_, ok := s.rows[key]
	return ok
}

func (s *Store) Get(key string) (Listing, bool) {
	l, ok := s.rows[key]
	if !ok {
		return Listing{}, false
	}
	return l.Clone(), true
}

// Put inserts or overwrites the listing under its key and reports whether the key is new.
func (s *Store) Put(l Listing) bool {
	key := l.Key()
	if key == "" {
		return false
	}
	prev, exists := s.rows[key]
	if exists && prev.URL != l.URL {
		delete(s.byURL, normalizeURL(prev.URL))
	}
	c := l.Clone()
	s.rows[key] = &c
	if u := normalizeURL(l.URL); u != "" {
		s.byURL[u] = key
	}
	return !exists
}

// KeyForURL finds the stored key of a listing by its url.
func (s *Store) KeyForURL(url string) (string, bool) {
	key, ok := s.byURL[normalizeURL(url)]
	return key, ok
}

// MarkSoldByURL flips the listing with the given url to sold and reports
// whether its status changed.
func (s *Store) MarkSoldByURL(url string) bool {
	key, ok := s.KeyForURL(url)
	if !ok {
		return false
	}
	l := s.rows[key]
	if l.Status == StatusSold {
		return false
	}
	l.Status = StatusSold
	return true
}

// LatestPostedDate is the crawl frontier: the max known posted date.
func (s *Store) LatestPostedDate() Date {
	var latest Date
	for _, l := range s.rows {
		latest = MaxDate(latest, l.PostedDate)
	}
	return latest
}

func (s *Store) LatestScrapeDate() Date {
	var latest Date
	for _, l := range s.rows {
		latest = MaxDate(latest, l.ScrapeDate)
	}
	return latest
}

// FillScrapeDate sets the scrape date of every row that has none.
func (s *Store) FillScrapeDate(d Date) {
	for _, l := range s.rows {
		if !l.ScrapeDate.Known() {
			l.ScrapeDate = d
		}
	}
}

func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Listings returns copies ordered newest first: posted date descending with
// unknown dates last, then key descending.
func (s *Store) Listings() []Listing {
	out := make([]Listing, 0, len(s.rows))
	for _, l := range s.rows {
		out = append(out, l.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PostedDate, out[j].PostedDate
		if a.Known() != b.Known() {
			return a.Known()
		}
		if !a.Equal(b) {
			return a.After(b)
		}
		return keyGreater(out[i].Key(), out[j].Key())
	})
	return out
}

func (s *Store) Clone() *Store {
	c := NewStore()
	for _, l := range s.rows {
		c.Put(*l)
	}
	return c
}

func keyGreater(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai > bi
	}
	return a > b
}

func normalizeURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
