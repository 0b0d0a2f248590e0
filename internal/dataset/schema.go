// Package dataset maps the per-site listing tables and the merged dashboard
// table to domain values.
package dataset

import (
	"sort"
	"strconv"
	"strings"

	"car_resale/internal/domain"
	"car_resale/internal/table"
)

// StatusCodec converts between the normalized status and a site's raw label.
type StatusCodec struct {
	Encode func(domain.Status) string
	Decode func(string) domain.Status
}

// LabelStatus writes available/sold labels and reads any of soldLabels
// (case-insensitive) as sold, everything else as available.
func LabelStatus(available, sold string, soldLabels ...string) StatusCodec {
	set := map[string]struct{}{strings.ToLower(sold): {}}
	for _, l := range soldLabels {
		set[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return StatusCodec{
		Encode: func(s domain.Status) string {
			if s == domain.StatusSold {
				return sold
			}
			return available
		},
		Decode: func(raw string) domain.Status {
			if _, ok := set[strings.ToLower(strings.TrimSpace(raw))]; ok {
				return domain.StatusSold
			}
			return domain.StatusAvailable
		},
	}
}

// BoolStatus stores sold as a True/False column.
func BoolStatus() StatusCodec {
	return StatusCodec{
		Encode: func(s domain.Status) string {
			return FormatBool(s == domain.StatusSold)
		},
		Decode: func(raw string) domain.Status {
			if ParseBool(raw) {
				return domain.StatusSold
			}
			return domain.StatusAvailable
		},
	}
}

// Schema describes one site's listing table.
type Schema struct {
	Site            domain.Site
	IDColumn        string
	URLColumn       string
	PostedColumn    string
	StatusColumn    string
	ScrapeColumn    string
	SpotlightColumn string
	Status          StatusCodec
	// ListingID derives the id when the table has no id column or the cell is empty.
	ListingID func(url string) string
	// Columns fixes the order of attribute columns; unlisted attributes follow sorted.
	Columns []string
}

func (s Schema) core() map[string]struct{} {
	core := make(map[string]struct{})
	for _, c := range []string{s.IDColumn, s.URLColumn, s.PostedColumn, s.StatusColumn, s.ScrapeColumn, s.SpotlightColumn} {
		if c != "" {
			core[c] = struct{}{}
		}
	}
	return core
}

// Decode reads a full table into a store. Rows without a url or id are dropped;
// a later row with the same key overwrites an earlier one.
func (s Schema) Decode(t table.Table) *domain.Store {
	store := domain.NewStore()
	core := s.core()
	idCol := t.Column(s.IDColumn)
	urlCol := t.Column(s.URLColumn)
	postedCol := t.Column(s.PostedColumn)
	statusCol := t.Column(s.StatusColumn)
	scrapeCol := t.Column(s.ScrapeColumn)
	spotCol := -1
	if s.SpotlightColumn != "" {
		spotCol = t.Column(s.SpotlightColumn)
	}

	for _, row := range t.Rows {
		l := domain.Listing{
			URL:        t.Value(row, urlCol),
			ID:         t.Value(row, idCol),
			PostedDate: domain.ParseDate(t.Value(row, postedCol)),
			Status:     s.Status.Decode(t.Value(row, statusCol)),
			ScrapeDate: domain.ParseDate(t.Value(row, scrapeCol)),
			Spotlight:  ParseBool(t.Value(row, spotCol)),
		}
		if l.ID == "" && s.ListingID != nil {
			l.ID = s.ListingID(l.URL)
		}
		if l.Key() == "" {
			continue
		}
		for i, h := range t.Header {
			if _, ok := core[h]; ok {
				continue
			}
			if l.Attributes == nil {
				l.Attributes = make(map[string]string)
			}
			l.Attributes[h] = t.Value(row, i)
		}
		store.Put(l)
	}
	return store
}

// Encode writes the whole store, newest first.
func (s Schema) Encode(store *domain.Store) table.Table {
	listings := store.Listings()
	attrs := s.attributeColumns(listings)

	header := []string{s.URLColumn, s.IDColumn}
	header = append(header, attrs...)
	header = append(header, s.PostedColumn, s.StatusColumn)
	if s.SpotlightColumn != "" {
		header = append(header, s.SpotlightColumn)
	}
	header = append(header, s.ScrapeColumn)

	t := table.Table{Header: header, Rows: make([][]string, 0, len(listings))}
	for _, l := range listings {
		row := []string{l.URL, l.ID}
		for _, a := range attrs {
			row = append(row, l.Attributes[a])
		}
		row = append(row, l.PostedDate.String(), s.Status.Encode(l.Status))
		if s.SpotlightColumn != "" {
			row = append(row, FormatBool(l.Spotlight))
		}
		scrape := ""
		if l.ScrapeDate.Known() {
			scrape = l.ScrapeDate.String()
		}
		row = append(row, scrape)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (s Schema) attributeColumns(listings []domain.Listing) []string {
	core := s.core()
	present := make(map[string]struct{})
	for _, l := range listings {
		for k := range l.Attributes {
			if _, ok := core[k]; !ok {
				present[k] = struct{}{}
			}
		}
	}

	cols := make([]string, 0, len(present))
	for _, c := range s.Columns {
		if _, ok := present[c]; ok {
			cols = append(cols, c)
			delete(present, c)
		}
	}
	rest := make([]string, 0, len(present))
	for c := range present {
		rest = append(rest, c)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "t":
		return true
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return f != 0
	}
	return false
}

func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
