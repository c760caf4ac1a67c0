// Package codec implements the self-describing columnar file format
// used for both series metadata and partitioned data point files
// (spec §4.1, §6.1). A file is a header (schema plus compression code)
// followed by one or more independently compressed row groups, so a
// writer can stream batches without buffering a whole series in memory
// and a reader can stream them back out the same way.
package codec

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
)

var magic = [4]byte{'T', 'S', 'C', '1'}

// FormatVersion is the on-disk format version written into every file's
// header. Readers reject a version they do not recognize as
// xerrors.Unsupported rather than guessing at a layout.
const FormatVersion uint16 = 1

// Writer serializes row groups to an underlying stream under a fixed
// schema and compression code, writing the header on the first call.
type Writer struct {
	w           *bufio.Writer
	schema      Schema
	compression types.CompressionCode
	level       int
	wroteHeader bool
}

// NewWriter returns a Writer that will compress every row group with
// compression (types.CompressionZstd is the codec default, spec §4.1),
// at the zstd library's default speed tier. Call SetCompressionLevel
// before the first WriteBatch to use spec §6.4's blob.compression_level
// instead.
func NewWriter(w io.Writer, schema Schema, compression types.CompressionCode) *Writer {
	return &Writer{w: bufio.NewWriter(w), schema: schema, compression: compression}
}

// SetCompressionLevel overrides the zstd level used by WriteBatch
// (spec §6.4 blob.compression_level, 1-22). Has no effect on the other
// compression codes.
func (w *Writer) SetCompressionLevel(level int) {
	w.level = level
}

func (w *Writer) writeHeader() error {
	if _, err := w.w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, FormatVersion); err != nil {
		return err
	}
	compBytes := []byte(w.compression)
	if err := w.w.WriteByte(byte(len(compBytes))); err != nil {
		return err
	}
	if _, err := w.w.Write(compBytes); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(len(w.schema.Columns))); err != nil {
		return err
	}
	for _, c := range w.schema.Columns {
		nameBytes := []byte(c.Name)
		if err := binary.Write(w.w, binary.LittleEndian, uint16(len(nameBytes))); err != nil {
			return err
		}
		if _, err := w.w.Write(nameBytes); err != nil {
			return err
		}
		if err := w.w.WriteByte(byte(c.Type)); err != nil {
			return err
		}
		nullable := byte(0)
		if c.Nullable {
			nullable = 1
		}
		if err := w.w.WriteByte(nullable); err != nil {
			return err
		}
	}
	w.wroteHeader = true
	return nil
}

// WriteBatch appends one row group. Batch.Schema must match the
// Writer's schema by column name/type at every shared position; the
// batch may carry extra trailing columns (forward compatibility, spec
// §4.1), but a batch with fewer columns than the Writer's schema is
// rejected as Corrupt.
func (w *Writer) WriteBatch(b *Batch) error {
	if !w.wroteHeader {
		if err := w.writeHeader(); err != nil {
			return xerrors.Wrap(xerrors.Transport, "write codec header", err)
		}
	}
	if err := checkCompatible(w.schema, b.Schema); err != nil {
		return err
	}

	payload := encodeRowGroup(b)
	compressed, err := compress(w.compression, payload, w.level)
	if err != nil {
		return err
	}

	if err := binary.Write(w.w, binary.LittleEndian, uint32(b.Rows)); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write row count", err)
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint64(len(payload))); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write uncompressed length", err)
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint64(len(compressed))); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write compressed length", err)
	}
	if _, err := w.w.Write(compressed); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write row group payload", err)
	}
	return nil
}

// Close flushes buffered output, writing the header (with the Writer's
// schema) if no batch was ever written, so the result is a valid file
// with zero row groups.
func (w *Writer) Close() error {
	if !w.wroteHeader {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

// checkCompatible verifies that every column the expected schema names
// exists at the same position in got with the same type; got may carry
// additional trailing columns (spec §4.1 forward compatibility).
func checkCompatible(expected, got Schema) error {
	if len(got.Columns) < len(expected.Columns) {
		return xerrors.Newf(xerrors.Corrupt, "batch has %d columns, schema expects at least %d", len(got.Columns), len(expected.Columns))
	}
	for i, ec := range expected.Columns {
		gc := got.Columns[i]
		if gc.Name != ec.Name || gc.Type != ec.Type {
			return xerrors.Newf(xerrors.Corrupt, "column %d mismatch: expected %s:%s, got %s:%s", i, ec.Name, ec.Type, gc.Name, gc.Type)
		}
	}
	return nil
}

// Reader streams row groups back out of a codec file.
type Reader struct {
	r           *bufio.Reader
	Schema      Schema
	Compression types.CompressionCode
}

// NewReader reads and validates the file header, returning a Reader
// positioned at the first row group.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		if err == io.EOF {
			return nil, xerrors.New(xerrors.Corrupt, "empty codec file")
		}
		return nil, xerrors.Wrap(xerrors.Corrupt, "read magic", err)
	}
	if gotMagic != magic {
		return nil, xerrors.Newf(xerrors.Corrupt, "bad magic bytes %x", gotMagic)
	}
	var version uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "read version", err)
	}
	if version != FormatVersion {
		return nil, xerrors.Newf(xerrors.Unsupported, "unsupported codec version %d", version)
	}
	compLen, err := br.ReadByte()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "read compression code length", err)
	}
	compBytes := make([]byte, compLen)
	if _, err := io.ReadFull(br, compBytes); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "read compression code", err)
	}
	var numCols uint32
	if err := binary.Read(br, binary.LittleEndian, &numCols); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "read column count", err)
	}
	schema := Schema{Columns: make([]ColumnSchema, numCols)}
	for i := range schema.Columns {
		var nameLen uint16
		if err := binary.Read(br, binary.LittleEndian, &nameLen); err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "read column name length", err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(br, nameBytes); err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "read column name", err)
		}
		typeByte, err := br.ReadByte()
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "read column type", err)
		}
		nullableByte, err := br.ReadByte()
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "read column nullable flag", err)
		}
		schema.Columns[i] = ColumnSchema{
			Name:     string(nameBytes),
			Type:     ColumnType(typeByte),
			Nullable: nullableByte != 0,
		}
	}
	return &Reader{r: br, Schema: schema, Compression: types.CompressionCode(compBytes)}, nil
}

// Next returns the next row group, or io.EOF when the file is exhausted.
// A truncated or malformed row group surfaces as xerrors.Corrupt so a
// caller (spec §4.4 P-style partial-read tolerance) can skip the file
// and continue rather than aborting an entire multi-partition read.
func (r *Reader) Next() (*Batch, error) {
	var rows uint32
	if err := binary.Read(r.r, binary.LittleEndian, &rows); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, xerrors.Wrap(xerrors.Corrupt, "read row count", err)
	}
	var uncompressedLen, compressedLen uint64
	if err := binary.Read(r.r, binary.LittleEndian, &uncompressedLen); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "read uncompressed length", err)
	}
	if err := binary.Read(r.r, binary.LittleEndian, &compressedLen); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "read compressed length", err)
	}
	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(r.r, compressed); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "read row group payload", err)
	}
	payload, err := decompress(r.Compression, compressed)
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) != uncompressedLen {
		return nil, xerrors.Newf(xerrors.Corrupt, "row group length mismatch: header says %d, decoded %d", uncompressedLen, len(payload))
	}
	return decodeRowGroup(r.Schema, int(rows), payload)
}

// ReadAll drains the reader into a single slice of batches, for callers
// that do not need streaming.
func (r *Reader) ReadAll() ([]*Batch, error) {
	var out []*Batch
	for {
		b, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
}

func encodeRowGroup(b *Batch) []byte {
	var buf []byte
	nullBytes := (b.Rows + 7) / 8
	for i, cs := range b.Schema.Columns {
		col := b.Cols[i]
		if cs.Nullable {
			bitmap := make([]byte, nullBytes)
			for row, isNull := range col.Nulls {
				if isNull {
					bitmap[row/8] |= 1 << uint(row%8)
				}
			}
			buf = append(buf, bitmap...)
		}
		switch cs.Type {
		case TypeUtf8, TypeDecimal:
			vals := col.Utf8
			if cs.Type == TypeDecimal {
				vals = col.Decimal
			}
			for _, v := range vals {
				var lenBuf [4]byte
				binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v)))
				buf = append(buf, lenBuf[:]...)
				buf = append(buf, v...)
			}
		case TypeBoolean:
			for _, v := range col.Bool {
				if v {
					buf = append(buf, 1)
				} else {
					buf = append(buf, 0)
				}
			}
		case TypeInt32:
			for _, v := range col.Int32 {
				var b4 [4]byte
				binary.LittleEndian.PutUint32(b4[:], uint32(v))
				buf = append(buf, b4[:]...)
			}
		case TypeFloat64:
			for _, v := range col.Float64 {
				var b8 [8]byte
				binary.LittleEndian.PutUint64(b8[:], math.Float64bits(v))
				buf = append(buf, b8[:]...)
			}
		case TypeTimestamp:
			for _, v := range col.Timestamp {
				var b8 [8]byte
				binary.LittleEndian.PutUint64(b8[:], uint64(v.UnixNano()))
				buf = append(buf, b8[:]...)
			}
		}
	}
	return buf
}

func decodeRowGroup(schema Schema, rows int, payload []byte) (*Batch, error) {
	b := NewBatch(schema, rows)
	nullBytes := (rows + 7) / 8
	pos := 0

	need := func(n int) error {
		if pos+n > len(payload) {
			return xerrors.New(xerrors.Corrupt, "row group payload truncated")
		}
		return nil
	}

	for i, cs := range schema.Columns {
		col := &b.Cols[i]
		if cs.Nullable {
			if err := need(nullBytes); err != nil {
				return nil, err
			}
			bitmap := payload[pos : pos+nullBytes]
			pos += nullBytes
			col.Nulls = make([]bool, rows)
			for row := 0; row < rows; row++ {
				col.Nulls[row] = bitmap[row/8]&(1<<uint(row%8)) != 0
			}
		}
		switch cs.Type {
		case TypeUtf8, TypeDecimal:
			vals := make([]string, rows)
			for row := 0; row < rows; row++ {
				if err := need(4); err != nil {
					return nil, err
				}
				l := binary.LittleEndian.Uint32(payload[pos:])
				pos += 4
				if err := need(int(l)); err != nil {
					return nil, err
				}
				vals[row] = string(payload[pos : pos+int(l)])
				pos += int(l)
			}
			if cs.Type == TypeUtf8 {
				col.Utf8 = vals
			} else {
				col.Decimal = vals
			}
		case TypeBoolean:
			if err := need(rows); err != nil {
				return nil, err
			}
			vals := make([]bool, rows)
			for row := 0; row < rows; row++ {
				vals[row] = payload[pos+row] != 0
			}
			pos += rows
			col.Bool = vals
		case TypeInt32:
			if err := need(4 * rows); err != nil {
				return nil, err
			}
			vals := make([]int32, rows)
			for row := 0; row < rows; row++ {
				vals[row] = int32(binary.LittleEndian.Uint32(payload[pos:]))
				pos += 4
			}
			col.Int32 = vals
		case TypeFloat64:
			if err := need(8 * rows); err != nil {
				return nil, err
			}
			vals := make([]float64, rows)
			for row := 0; row < rows; row++ {
				vals[row] = math.Float64frombits(binary.LittleEndian.Uint64(payload[pos:]))
				pos += 8
			}
			col.Float64 = vals
		case TypeTimestamp:
			if err := need(8 * rows); err != nil {
				return nil, err
			}
			vals := make([]time.Time, rows)
			for row := 0; row < rows; row++ {
				ns := int64(binary.LittleEndian.Uint64(payload[pos:]))
				vals[row] = time.Unix(0, ns).UTC()
				pos += 8
			}
			col.Timestamp = vals
		default:
			return nil, xerrors.Newf(xerrors.Unsupported, "unknown column type %d", cs.Type)
		}
	}
	return b, nil
}
