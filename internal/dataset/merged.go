package dataset

import (
	"car_resale/internal/domain"
	"car_resale/internal/table"
)

const (
	MergedWebsiteColumn = "Website"
	MergedURLColumn     = "URL"
	MergedSoldColumn    = "Sold"
)

// DecodeMerged reads the dashboard table, keeping column order for the round trip.
func DecodeMerged(t table.Table) *domain.MergedDataset {
	m := &domain.MergedDataset{Columns: append([]string(nil), t.Header...)}
	websiteCol := t.Column(MergedWebsiteColumn)
	urlCol := t.Column(MergedURLColumn)
	soldCol := t.Column(MergedSoldColumn)

	for _, row := range t.Rows {
		r := domain.MergedRow{
			Website: t.Value(row, websiteCol),
			URL:     t.Value(row, urlCol),
			Sold:    ParseBool(t.Value(row, soldCol)),
			Fields:  make(map[string]string, len(t.Header)),
		}
		for i, h := range t.Header {
			if i == websiteCol || i == urlCol || i == soldCol {
				continue
			}
			r.Fields[h] = t.Value(row, i)
		}
		m.Rows = append(m.Rows, r)
	}
	return m
}

func EncodeMerged(m *domain.MergedDataset) table.Table {
	header := append([]string(nil), m.Columns...)
	for _, c := range []string{MergedWebsiteColumn, MergedURLColumn, MergedSoldColumn} {
		if indexOf(header, c) < 0 {
			header = append(header, c)
		}
	}

	t := table.Table{Header: header, Rows: make([][]string, 0, len(m.Rows))}
	for _, r := range m.Rows {
		row := make([]string, len(header))
		for i, h := range header {
			switch h {
			case MergedWebsiteColumn:
				row[i] = r.Website
			case MergedURLColumn:
				row[i] = r.URL
			case MergedSoldColumn:
				row[i] = FormatBool(r.Sold)
			default:
				row[i] = r.Fields[h]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
