package sgcarmart

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"car_resale/internal/domain"
)

// ErrNoListingData is returned when a page carries no embedded listing payload.
var ErrNoListingData = errors.New("no listing data in page")

const (
	listingDataKey = `"listing_data":{"data":`
	detailMarker   = "infoUrlData"
)

var brandOptionRe = regexp.MustCompile(`"value":"(.*?)","text":"(.*?)"`)

// Fields are the detail attributes kept from the embedded listing payload.
var Fields = []string{
	"car_model", "depreciation", "reg_date", "mileage", "manufactured",
	"road_tax", "transmission", "dereg_value", "omv", "coe", "arf",
	"engine_cap", "power", "curb_weight", "owners", "posted_on",
	"drive_range", "lifespan", "original_reg_date", "indicative_price",
	"auction_closing", "status", "fuel_type",
}

var soldStatuses = map[string]struct{}{
	"sold":    {},
	"expired": {},
}

// StatusFromLabel maps the site's status text; unknown labels count as available.
func StatusFromLabel(label string) domain.Status {
	if _, ok := soldStatuses[strings.ToLower(strings.TrimSpace(label))]; ok {
		return domain.StatusSold
	}
	return domain.StatusAvailable
}

func scripts(doc *goquery.Document) []string {
	var out []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if txt := s.Text(); strings.TrimSpace(txt) != "" {
			out = append(out, txt)
		}
	})
	return out
}

// parseBrands reads the make options listed between "All Makes" and "Any Status".
func parseBrands(doc *goquery.Document) []string {
	for _, script := range scripts(doc) {
		cleaned := unescapeScript(script)
		if !strings.Contains(cleaned, "All Makes") {
			continue
		}
		var brands []string
		inMakes := false
		for _, m := range brandOptionRe.FindAllStringSubmatch(cleaned, -1) {
			text := m[2]
			switch {
			case text == "All Makes":
				inMakes = true
			case text == "Any Status":
				inMakes = false
			case inMakes:
				brands = append(brands, text)
			}
		}
		if len(brands) > 0 {
			return brands
		}
	}
	return nil
}

type indexEntry struct {
	Date string `json:"date"`
	Link string `json:"link"`
}

// parseIndex extracts the listing_data array; a page without it has no more listings.
func parseIndex(doc *goquery.Document) ([]indexEntry, error) {
	for _, script := range scripts(doc) {
		cleaned := unescapeScript(script)
		start := strings.Index(cleaned, listingDataKey)
		if start < 0 {
			continue
		}
		raw := balanced(cleaned[start+len(listingDataKey):], '[', ']')
		if raw == "" {
			return nil, fmt.Errorf("unterminated listing data")
		}
		var entries []indexEntry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("decode listing data: %w", err)
		}
		return entries, nil
	}
	return nil, nil
}

// parseDetailPayload decodes the embedded page state of a detail page.
func parseDetailPayload(doc *goquery.Document) (map[string]any, error) {
	for _, script := range scripts(doc) {
		head := script
		if len(head) > 100 {
			head = head[:100]
		}
		if !strings.Contains(head, detailMarker) {
			continue
		}
		raw := balanced(unescapeScript(script), '{', '}')
		if raw == "" {
			return nil, ErrNoListingData
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("decode detail payload: %w", err)
		}
		return payload, nil
	}
	return nil, ErrNoListingData
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}

func detailStatus(payload map[string]any) (string, bool) {
	s, ok := dig(payload, "ucInfoDetailData", "data", "status").(string)
	return s, ok
}

func listingFromPayload(payload map[string]any, rawURL string) (*domain.Listing, error) {
	detail, _ := dig(payload, "ucInfoDetailData", "data").(map[string]any)
	if detail == nil {
		return nil, ErrNoListingData
	}

	attrs := make(map[string]string, len(Fields)+3)
	for _, f := range Fields {
		attrs[f] = stringify(detail[f])
	}
	if attrs["car_model"] == "" {
		return nil, fmt.Errorf("%w: missing car model", ErrNoListingData)
	}
	attrs["type_of_vehicle"] = stringify(dig(detail, "type_of_vehicle", "text"))
	attrs["price"] = stringify(dig(payload, "ucInfoPageData", "data", "price"))
	attrs["coe_left"] = stringify(dig(payload, "ucInfoPageData", "data", "coe_left"))

	status := attrs["status"]
	delete(attrs, "status")
	posted := domain.ParseDate(attrs["posted_on"])
	delete(attrs, "posted_on")

	return &domain.Listing{
		URL:        rawURL,
		PostedDate: posted,
		Status:     StatusFromLabel(status),
		Attributes: attrs,
	}, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// balanced returns the first open..close span of s, skipping brackets inside
// quoted strings. It returns "" when the span is not closed.
func balanced(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	var quote byte
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				inString = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inString = true
			quote = ch
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// unescapeScript undoes one level of JavaScript string escaping, which is how
// the page state is embedded in the streamed scripts.
func unescapeScript(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			b.WriteByte(ch)
			continue
		}
		next := s[i+1]
		switch next {
		case '"', '\\', '/', '\'':
			b.WriteByte(next)
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case 'u':
			if i+5 < len(s) {
				if r, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					var buf [utf8.UTFMax]byte
					n := utf8.EncodeRune(buf[:], rune(r))
					b.Write(buf[:n])
					i += 5
					continue
				}
			}
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
