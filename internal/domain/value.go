package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DateLayout is the calendar-day layout used when dates are rendered in reports.
const DateLayout = "2006-01-02"

var yearOnlyPattern = regexp.MustCompile(`^\d{4}$`)

// IsNull reports whether v is a null cell value.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case *time.Time:
		return x == nil
	}
	return false
}

// ToFloat converts a typed numeric value to float64. Strings, booleans and
// dates are not numeric.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		f := float64(x)
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// ParseNumber is the lenient counterpart of ToFloat: numeric strings such as
// "90" are accepted too.
func ParseNumber(v any) (float64, bool) {
	if f, ok := ToFloat(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToTime returns the time held by a typed date cell.
func ToTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	}
	return time.Time{}, false
}

// ParseTime accepts typed dates and date strings. Bare years and numbers are
// never interpreted as dates.
func ParseTime(v any) (time.Time, bool) {
	if t, ok := ToTime(v); ok {
		return t, true
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" || yearOnlyPattern.MatchString(s) {
		return time.Time{}, false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Time{}, false
	}
	t, err := cast.ToTimeE(s)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// IsYearOnly reports whether v is a bare four-digit year, as a number or a string.
func IsYearOnly(v any) bool {
	if f, ok := ToFloat(v); ok {
		return f == math.Trunc(f) && f >= 1000 && f <= 9999
	}
	if s, ok := v.(string); ok {
		return yearOnlyPattern.MatchString(strings.TrimSpace(s))
	}
	return false
}

// FormatValue renders a cell for reports. Dates are rendered as calendar days.
func FormatValue(v any) string {
	if IsNull(v) {
		return ""
	}
	if t, ok := ToTime(v); ok {
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(DateLayout)
		}
		return t.Format(time.RFC3339)
	}
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return cast.ToString(v)
}

// Key returns a type-tagged identity for a cell, used for grouping and
// duplicate detection. Numbers of different Go kinds with equal value share a key.
func Key(v any) string {
	if IsNull(v) {
		return "\x00"
	}
	if f, ok := ToFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if t, ok := ToTime(v); ok {
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	}
	switch x := v.(type) {
	case string:
		return "s:" + x
	case bool:
		return "b:" + strconv.FormatBool(x)
	}
	return "v:" + cast.ToString(v)
}

// RowKey joins the keys of the given columns of a row.
func (t *Table) RowKey(row int, columns []string) string {
	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(Key(t.Value(row, c)))
	}
	return b.String()
}

// ColumnKind classifies the non-null values of a column.
type ColumnKind string

const (
	KindEmpty   ColumnKind = "empty"
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
	KindBool    ColumnKind = "boolean"
	KindDate    ColumnKind = "date"
	KindMixed   ColumnKind = "mixed"
)

// Kind inspects a column's non-null values. A column is numeric only when
// every non-null value is numeric.
func (t *Table) Kind(column string) ColumnKind {
	kind := KindEmpty
	for i := range t.rows {
		v := t.Value(i, column)
		if v == nil {
			continue
		}
		var k ColumnKind
		switch {
		case isNumeric(v):
			k = KindNumeric
		case isTime(v):
			k = KindDate
		default:
			switch v.(type) {
			case string:
				k = KindText
			case bool:
				k = KindBool
			default:
				k = KindMixed
			}
		}
		if kind == KindEmpty {
			kind = k
		} else if kind != k {
			return KindMixed
		}
	}
	return kind
}

// HasText reports whether any non-null value in the column is a string.
func (t *Table) HasText(column string) bool {
	for i := range t.rows {
		if _, ok := t.Value(i, column).(string); ok {
			return true
		}
	}
	return false
}

// NumericColumns returns the columns whose non-null values are all numeric.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.columns {
		if t.Kind(c) == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

func isNumeric(v any) bool {
	_, ok := ToFloat(v)
	return ok
}

func isTime(v any) bool {
	_, ok := ToTime(v)
	return ok
}
