package json

import (
	"database/sql"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Str returns the field as a string. Strings are taken as is; numbers and
// booleans keep their literal text. Missing fields, null, objects and arrays
// are null.
func (f Fields) Str(key string) sql.NullString {
	raw, ok := f[key]
	if !ok || len(raw) == 0 {
		return sql.NullString{}
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return sql.NullString{}
		}
		return sql.NullString{String: s, Valid: true}
	case c == '-' || (c >= '0' && c <= '9'):
		return sql.NullString{String: string(raw), Valid: true}
	case string(raw) == "true" || string(raw) == "false":
		return sql.NullString{String: string(raw), Valid: true}
	}
	return sql.NullString{}
}

// Int returns the field as an integer. Integral numbers and numeric strings
// are accepted; anything else, including fractional values, is null.
func (f Fields) Int(key string) sql.NullInt64 {
	lit, ok := f.numericLiteral(key)
	if !ok {
		return sql.NullInt64{}
	}
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return sql.NullInt64{Int64: n, Valid: true}
	}
	// 1.541121934796e12 and 39.0 are still integers.
	x, err := strconv.ParseFloat(lit, 64)
	if err != nil || x != math.Trunc(x) || math.Abs(x) > 1<<53 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(x), Valid: true}
}

// Float returns the field as a float64. Numbers and numeric strings are
// accepted; anything else is null.
func (f Fields) Float(key string) sql.NullFloat64 {
	lit, ok := f.numericLiteral(key)
	if !ok {
		return sql.NullFloat64{}
	}
	x, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: x, Valid: true}
}

func (f Fields) numericLiteral(key string) (string, bool) {
	raw, ok := f[key]
	if !ok || len(raw) == 0 {
		return "", false
	}
	switch c := raw[0]; {
	case c == '-' || (c >= '0' && c <= '9'):
		return string(raw), true
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	return "", false
}
