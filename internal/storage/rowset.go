package storage

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Row is one result row. Every column is read as text.
type Row []sql.NullString

// String returns column i, or "" when it is NULL.
func (r Row) String(i int) string {
	if i >= len(r) {
		return ""
	}
	return r[i].String
}

// IsNull reports whether column i is NULL.
func (r Row) IsNull(i int) bool {
	return i >= len(r) || !r[i].Valid
}

// Int64 parses column i. NULL reads as 0.
func (r Row) Int64(i int) (int64, error) {
	if r.IsNull(i) || r[i].String == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(r[i].String, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %d: invalid integer %q: %w", i, r[i].String, err)
	}
	return v, nil
}

// Bool reads column i as an integer flag.
func (r Row) Bool(i int) bool {
	switch r.String(i) {
	case "", "0", "f", "false":
		return false
	}
	return true
}

// RowSet is a fully materialized query result. No driver handle outlives the
// query that produced it.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// ScanRowSet reads every row of rows as text and closes rows.
func ScanRowSet(rows *sql.Rows) (*RowSet, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &RowSet{Columns: cols}
	for rows.Next() {
		row := make(Row, len(cols))
		dest := make([]any, len(cols))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, rows.Err()
}
