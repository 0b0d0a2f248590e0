package domain

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// NotAvailable is how an unknown date is written to a table.
const NotAvailable = "N.A."

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2006/01/02",
	"02/01/2006",
}

// Date is a calendar day without time of day. The zero value is an unknown date.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts the layouts the marketplaces and stored tables use.
// Placeholders such as "N.A." and unparseable input yield an unknown date.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "N.A.", "NA", "N/A", "-", "NAN", "NONE", "NULL":
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}

func (d Date) Known() bool {
	return !d.t.IsZero()
}

func (d Date) Time() time.Time {
	return d.t
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

func (d Date) AddDays(n int) Date {
	if !d.Known() {
		return d
	}
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if !d.Known() {
		return NotAvailable
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	if !d.Known() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	*d = ParseDate(string(b))
	return nil
}

// MaxDate returns the latest known date, or an unknown date when none is known.
func MaxDate(dates ...Date) Date {
	var latest Date
	for _, d := range dates {
		if d.Known() && (!latest.Known() || d.After(latest)) {
			latest = d
		}
	}
	return latest
}
