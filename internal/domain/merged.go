package domain

// MergedRow is one row of the cross-site dashboard dataset. Fields keeps every
// column the reconciliation pass does not interpret.
type MergedRow struct {
	Website string
	URL     string
	Sold    bool
	Fields  map[string]string
}

type MergedDataset struct {
	Columns []string
	Rows    []MergedRow
}

// MarkSoldByURL flips every unsold row with the given url and returns how many changed.
func (m *MergedDataset) MarkSoldByURL(url string) int {
	target := normalizeURL(url)
	changed := 0
	for i := range m.Rows {
		if m.Rows[i].Sold || normalizeURL(m.Rows[i].URL) != target {
			continue
		}
		m.Rows[i].Sold = true
		changed++
	}
	return changed
}

// PendingBySite groups the urls of unsold rows by originating site, dropping
// duplicates and rows without a url. Rows from unknown websites are counted
// in unrouted.
func (m *MergedDataset) PendingBySite() (pending map[Site][]string, unrouted int) {
	pending = make(map[Site][]string)
	seen := make(map[string]struct{})
	for _, row := range m.Rows {
		if row.Sold {
			continue
		}
		u := normalizeURL(row.URL)
		if u == "" {
			continue
		}
		site, ok := SiteFromWebsite(row.Website)
		if !ok {
			unrouted++
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		pending[site] = append(pending[site], row.URL)
	}
	return pending, unrouted
}
