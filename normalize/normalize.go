package normalize

import (
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// WireLayout is the date layout the backend expects (DD-MM-YYYY).
const WireLayout = "02-01-2006"

// TimestampKey is the one key whose value is never rewritten.
const TimestampKey = "timestamp"

var dateKeys = map[string]struct{}{
	"date":           {},
	"startdate":      {},
	"enddate":        {},
	"completiondate": {},
}

var (
	plainDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	wireDatePattern  = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	isoDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}`)
)

// parseLayouts are tried in order for date-like strings that are not plain
// YYYY-MM-DD. The first match wins.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// IsDateKey reports whether key names a date field.
func IsDateKey(key string) bool {
	_, ok := dateKeys[strings.ToLower(key)]
	return ok
}

// LooksLikeDate reports whether s is an ISO-8601 date or date-time.
func LooksLikeDate(s string) bool {
	return plainDatePattern.MatchString(s) || isoDatePattern.MatchString(s)
}

// Date converts a single date-like string to DD-MM-YYYY.
//
// The second return value is false when s could not be interpreted as a
// date, in which case s is returned unchanged.
func Date(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if wireDatePattern.MatchString(trimmed) {
		return s, true
	}

	// Plain dates are reassembled textually; parsing them would drag in a
	// timezone and could shift the day.
	if m := plainDatePattern.FindStringSubmatch(trimmed); m != nil {
		return m[3] + "-" + m[2] + "-" + m[1], true
	}

	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Time(t), true
		}
	}
	return s, false
}

// Time formats t as DD-MM-YYYY using its UTC calendar fields.
func Time(t time.Time) string {
	return t.UTC().Format(WireLayout)
}

// Value normalizes v in place and returns it. See the package documentation
// for the mutation contract.
func Value(v any) any {
	w := walker{seen: make(map[uintptr]struct{})}
	return w.walk(v, "")
}

// Query normalizes query parameters in place and returns q.
func Query(q url.Values) url.Values {
	for key, values := range q {
		if key == TimestampKey {
			continue
		}
		for i, s := range values {
			values[i] = normalizeString(s, key)
		}
	}
	return q
}

type walker struct {
	seen map[uintptr]struct{}
}

func (w *walker) walk(v any, key string) any {
	switch x := v.(type) {
	case map[string]any:
		if w.visited(x) {
			return x
		}
		for k, child := range x {
			if k == TimestampKey {
				continue
			}
			x[k] = w.walk(child, k)
		}
		return x
	case []any:
		if len(x) == 0 || w.visited(x) {
			return x
		}
		// Elements inherit the key of the slice so that a list under
		// "date" is treated as a list of dates.
		for i, child := range x {
			x[i] = w.walk(child, key)
		}
		return x
	case string:
		return normalizeString(x, key)
	case time.Time:
		return Time(x)
	case *time.Time:
		if x == nil {
			return v
		}
		return Time(*x)
	default:
		return v
	}
}

// visited marks the container behind v as seen and reports whether it had
// already been seen on this walk.
func (w *walker) visited(v any) bool {
	ptr := reflect.ValueOf(v).Pointer()
	if _, ok := w.seen[ptr]; ok {
		return true
	}
	w.seen[ptr] = struct{}{}
	return false
}

func normalizeString(s, key string) string {
	if key == TimestampKey {
		return s
	}
	if !IsDateKey(key) && !LooksLikeDate(s) {
		return s
	}
	out, _ := Date(s)
	return out
}
