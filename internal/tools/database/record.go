package database

import (
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is an insertion-ordered column → value map. It is used for value
// and condition maps on input and for result rows on output; key order
// decides placeholder numbering and JSON field order.
type Record = orderedmap.OrderedMap[string, any]

// NewRecord returns an empty record.
func NewRecord() *Record {
	return orderedmap.New[string, any]()
}

// RecordOf builds a record from alternating keys and values.
// It panics if a key is not a string or a value is missing.
func RecordOf(kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("database.RecordOf: odd number of arguments")
	}
	r := NewRecord()
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

// entries splits a record into parallel key and value slices in order.
// A nil record has no entries.
func entries(r *Record) ([]string, []any) {
	if r == nil {
		return nil, nil
	}
	keys := make([]string, 0, r.Len())
	vals := make([]any, 0, r.Len())
	for p := r.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
		vals = append(vals, p.Value)
	}
	return keys, vals
}

// maxExactFloat is the largest magnitude at which every integer is
// representable as a float64.
const maxExactFloat = 1 << 53

// normalizeRecord rewrites JSON numbers in place: integral values become
// int64 so that pgx binds them to integer columns without a cast.
func normalizeRecord(r *Record) {
	if r == nil {
		return
	}
	for p := r.Oldest(); p != nil; p = p.Next() {
		p.Value = normalizeJSON(p.Value)
	}
}

func normalizeJSON(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) <= maxExactFloat {
			return int64(t)
		}
		return t
	case []any:
		for i := range t {
			t[i] = normalizeJSON(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeJSON(t[k])
		}
		return t
	default:
		return v
	}
}

// collectRecords drains rows into ordered records keyed by column name.
func collectRecords(rows pgx.Rows) ([]*Record, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]*Record, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec := NewRecord()
		for i, f := range fields {
			var v any
			if i < len(vals) {
				v = vals[i]
			}
			rec.Set(f.Name, rowValue(v))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// rowValue converts driver values that do not encode sensibly as JSON.
func rowValue(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	default:
		return v
	}
}
