package codec

// ColumnType is the wire type of one column. The codec is self-describing:
// every file carries its own Schema, so a reader never needs out-of-band
// knowledge of column order (spec §4.1 "self-describing").
type ColumnType uint8

const (
	TypeUtf8 ColumnType = iota + 1
	TypeBoolean
	TypeInt32
	TypeFloat64
	TypeDecimal
	TypeTimestamp
)

func (t ColumnType) String() string {
	switch t {
	case TypeUtf8:
		return "utf8"
	case TypeBoolean:
		return "boolean"
	case TypeInt32:
		return "int32"
	case TypeFloat64:
		return "float64"
	case TypeDecimal:
		return "decimal"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// ColumnSchema describes one column's name, wire type, and nullability.
type ColumnSchema struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Schema is an ordered list of columns. Readers tolerate a file whose
// schema has trailing columns absent from the reader's expected schema
// (forward compatibility, spec §4.1), but a name/type mismatch on a
// shared-position column is Corrupt.
type Schema struct {
	Columns []ColumnSchema
}

func (s Schema) column(name string) (ColumnSchema, int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return c, i, true
		}
	}
	return ColumnSchema{}, -1, false
}

// SeriesMetadataSchema is the fixed 13-column schema for series metadata
// files (spec §6.1 "SeriesMetadata"). The catalog persists series
// metadata as JSON (spec §6.3), so this schema has no reader/writer of
// its own yet; it is declared here, bit-exact, so a future bulk
// columnar export of the catalog has a schema to write against without
// re-deriving the column order from the spec by hand.
var SeriesMetadataSchema = Schema{Columns: []ColumnSchema{
	{Name: "id", Type: TypeUtf8},
	{Name: "source_id", Type: TypeUtf8},
	{Name: "external_id", Type: TypeUtf8},
	{Name: "title", Type: TypeUtf8},
	{Name: "description", Type: TypeUtf8, Nullable: true},
	{Name: "units", Type: TypeUtf8, Nullable: true},
	{Name: "frequency", Type: TypeUtf8},
	{Name: "seasonal_adjustment", Type: TypeUtf8, Nullable: true},
	{Name: "start_date", Type: TypeUtf8, Nullable: true},
	{Name: "end_date", Type: TypeUtf8, Nullable: true},
	{Name: "is_active", Type: TypeBoolean},
	{Name: "created_at", Type: TypeTimestamp},
	{Name: "updated_at", Type: TypeTimestamp},
}}

// DataPointsSchema is the fixed 8-column schema for partitioned data
// point files (spec §6.1 "DataPoints"). date and revision_date are
// Int32 days-since-epoch (types.Date.DaysSinceEpoch), not a
// nanosecond timestamp: a data point's date never carries a
// time-of-day component, so the narrower encoding is both exact and
// one-fourth the width on disk.
var DataPointsSchema = Schema{Columns: []ColumnSchema{
	{Name: "id", Type: TypeUtf8},
	{Name: "series_id", Type: TypeUtf8},
	{Name: "date", Type: TypeInt32},
	{Name: "value", Type: TypeFloat64, Nullable: true},
	{Name: "revision_date", Type: TypeInt32},
	{Name: "is_original_release", Type: TypeBoolean},
	{Name: "created_at", Type: TypeTimestamp},
	{Name: "updated_at", Type: TypeTimestamp},
}}
