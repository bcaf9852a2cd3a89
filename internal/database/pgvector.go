package database

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// PgVector is the column type for VECTOR columns. The pgvector extension
// exchanges vectors as a bracketed text literal ("[0.1,0.2,0.3]"); PgVector
// converts between that literal and a float64 slice, implementing
// sql.Scanner and driver.Valuer so GORM can read and write the column.
type PgVector struct {
	floats []float64
}

// NewPgVector copies floats into a PgVector. Mutating the source slice
// afterwards does not change the vector.
func NewPgVector(floats []float64) PgVector {
	cp := make([]float64, len(floats))
	copy(cp, floats)
	return PgVector{floats: cp}
}

// Floats returns a copy of the vector elements, or nil when the vector was
// scanned from a NULL column.
func (v PgVector) Floats() []float64 {
	if v.floats == nil {
		return nil
	}
	cp := make([]float64, len(v.floats))
	copy(cp, v.floats)
	return cp
}

// Dimension returns the vector length.
func (v PgVector) Dimension() int {
	return len(v.floats)
}

// Scan implements sql.Scanner. The driver delivers the vector literal as a
// string or []byte depending on the wire protocol; NULL scans to a nil
// vector.
func (v *PgVector) Scan(value any) error {
	switch src := value.(type) {
	case nil:
		v.floats = nil
		return nil
	case string:
		return v.decode(src)
	case []byte:
		return v.decode(string(src))
	default:
		return fmt.Errorf("cannot scan %T into PgVector", value)
	}
}

// decode parses a pgvector literal. An empty body ("[]") decodes to an
// empty, non-nil vector so it stays distinguishable from NULL.
func (v *PgVector) decode(literal string) error {
	body := strings.TrimSpace(literal)
	body = strings.TrimPrefix(body, "[")
	body = strings.TrimSuffix(body, "]")
	body = strings.TrimSpace(body)
	if body == "" {
		v.floats = []float64{}
		return nil
	}

	var floats []float64
	for i := 0; ; i++ {
		elem, rest, more := strings.Cut(body, ",")
		f, err := strconv.ParseFloat(strings.TrimSpace(elem), 64)
		if err != nil {
			return fmt.Errorf("parse element %d: %w", i, err)
		}
		floats = append(floats, f)
		if !more {
			break
		}
		body = rest
	}
	v.floats = floats
	return nil
}

// Value implements driver.Valuer, emitting the bracketed literal.
func (v PgVector) Value() (driver.Value, error) {
	return v.String(), nil
}

// String formats the vector as a pgvector literal. The same form is passed
// as the query parameter of the <=> distance operator in similarity search.
func (v PgVector) String() string {
	buf := make([]byte, 0, len(v.floats)*10+2)
	buf = append(buf, '[')
	for i, f := range v.floats {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, f, 'f', -1, 64)
	}
	buf = append(buf, ']')
	return string(buf)
}
