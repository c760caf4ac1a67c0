package codec

import (
	"time"

	"github.com/econdata/tsengine/pkg/xerrors"
)

// Column holds one column's values plus an optional null bitmap. Only the
// slice matching the column's declared Type is populated; the others are
// left nil. Nulls is nil when the column is non-nullable.
type Column struct {
	Utf8      []string
	Bool      []bool
	Int32     []int32
	Float64   []float64
	Decimal   []string
	Timestamp []time.Time
	Nulls     []bool
}

func newColumn(t ColumnType, rows int, nullable bool) Column {
	c := Column{}
	if nullable {
		c.Nulls = make([]bool, rows)
	}
	switch t {
	case TypeUtf8, TypeDecimal:
		s := make([]string, rows)
		if t == TypeUtf8 {
			c.Utf8 = s
		} else {
			c.Decimal = s
		}
	case TypeBoolean:
		c.Bool = make([]bool, rows)
	case TypeInt32:
		c.Int32 = make([]int32, rows)
	case TypeFloat64:
		c.Float64 = make([]float64, rows)
	case TypeTimestamp:
		c.Timestamp = make([]time.Time, rows)
	}
	return c
}

// Batch is one row group: a schema plus row-major-equivalent columnar data.
type Batch struct {
	Schema Schema
	Cols   []Column
	Rows   int
}

// NewBatch allocates a Batch with rows rows for every column in schema,
// ready to be filled in by index via SetXxx.
func NewBatch(schema Schema, rows int) *Batch {
	b := &Batch{Schema: schema, Rows: rows, Cols: make([]Column, len(schema.Columns))}
	for i, cs := range schema.Columns {
		b.Cols[i] = newColumn(cs.Type, rows, cs.Nullable)
	}
	return b
}

func (b *Batch) colIndex(name string) (int, error) {
	_, idx, ok := b.Schema.column(name)
	if !ok {
		return -1, xerrors.Newf(xerrors.Invalid, "batch has no column %q", name)
	}
	return idx, nil
}

// SetUtf8 sets row row of the named column to v, or marks it null when
// null is true.
func (b *Batch) SetUtf8(name string, row int, v string, null bool) error {
	idx, err := b.colIndex(name)
	if err != nil {
		return err
	}
	col := &b.Cols[idx]
	if null {
		col.Nulls[row] = true
		return nil
	}
	col.Utf8[row] = v
	return nil
}

// SetDecimal sets row row of the named column to the exact decimal
// string v, or marks it null.
func (b *Batch) SetDecimal(name string, row int, v string, null bool) error {
	idx, err := b.colIndex(name)
	if err != nil {
		return err
	}
	col := &b.Cols[idx]
	if null {
		col.Nulls[row] = true
		return nil
	}
	col.Decimal[row] = v
	return nil
}

// SetBool sets row row of the named column.
func (b *Batch) SetBool(name string, row int, v bool, null bool) error {
	idx, err := b.colIndex(name)
	if err != nil {
		return err
	}
	col := &b.Cols[idx]
	if null {
		col.Nulls[row] = true
		return nil
	}
	col.Bool[row] = v
	return nil
}

// SetInt32 sets row row of the named column.
func (b *Batch) SetInt32(name string, row int, v int32, null bool) error {
	idx, err := b.colIndex(name)
	if err != nil {
		return err
	}
	col := &b.Cols[idx]
	if null {
		col.Nulls[row] = true
		return nil
	}
	col.Int32[row] = v
	return nil
}

// SetFloat64 sets row row of the named column.
func (b *Batch) SetFloat64(name string, row int, v float64, null bool) error {
	idx, err := b.colIndex(name)
	if err != nil {
		return err
	}
	col := &b.Cols[idx]
	if null {
		col.Nulls[row] = true
		return nil
	}
	col.Float64[row] = v
	return nil
}

// SetTimestamp sets row row of the named column.
func (b *Batch) SetTimestamp(name string, row int, v time.Time, null bool) error {
	idx, err := b.colIndex(name)
	if err != nil {
		return err
	}
	col := &b.Cols[idx]
	if null {
		col.Nulls[row] = true
		return nil
	}
	col.Timestamp[row] = v
	return nil
}

// IsNull reports whether the named column is null at row.
func (b *Batch) IsNull(name string, row int) bool {
	idx, err := b.colIndex(name)
	if err != nil {
		return false
	}
	col := b.Cols[idx]
	return col.Nulls != nil && col.Nulls[row]
}

// Utf8At returns the value of a Utf8/Decimal-typed column at row, even
// if null (callers should check IsNull first for null-sensitive logic).
func (b *Batch) Utf8At(name string, row int) string {
	idx, err := b.colIndex(name)
	if err != nil {
		return ""
	}
	col := b.Cols[idx]
	if col.Utf8 != nil {
		return col.Utf8[row]
	}
	return col.Decimal[row]
}

// BoolAt returns the value of a Boolean-typed column at row.
func (b *Batch) BoolAt(name string, row int) bool {
	idx, err := b.colIndex(name)
	if err != nil {
		return false
	}
	return b.Cols[idx].Bool[row]
}

// Float64At returns the value of a Float64-typed column at row.
func (b *Batch) Float64At(name string, row int) float64 {
	idx, err := b.colIndex(name)
	if err != nil {
		return 0
	}
	return b.Cols[idx].Float64[row]
}

// Int32At returns the value of an Int32-typed column at row.
func (b *Batch) Int32At(name string, row int) int32 {
	idx, err := b.colIndex(name)
	if err != nil {
		return 0
	}
	return b.Cols[idx].Int32[row]
}

// TimestampAt returns the value of a Timestamp-typed column at row.
func (b *Batch) TimestampAt(name string, row int) time.Time {
	idx, err := b.colIndex(name)
	if err != nil {
		return time.Time{}
	}
	return b.Cols[idx].Timestamp[row]
}
