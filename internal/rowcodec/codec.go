// Package rowcodec encodes and decodes a row image into a
// length-prefixed binary page, and is the sole authority on whether a
// row image is eligible for spill.
//
// The wire format is a varint column count followed by, for each
// non-nil column, a tag byte (column number in the high nibble,
// value-kind tag in the low nibble) and the value's own encoding. A
// Record never sees this format directly — it only calls
// Encode/Decode/CanEncode/SerializedLength.
package rowcodec

import (
	"encoding/binary"
	"fmt"
	"math"

	isql "github.com/leftmike/mahoundo/internal/sql"
	"github.com/leftmike/mahoundo/internal/session"
)

// Kind is how to invert a change; it is opaque to the codec beyond being
// a single byte on the wire.
type Kind byte

const (
	Insert Kind = iota + 1
	Delete
	UpdateOld
	UpdateNew
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "INSERT"
	case Delete:
		return "DELETE"
	case UpdateOld:
		return "UPDATE_OLD"
	case UpdateNew:
		return "UPDATE_NEW"
	}
	return "UNKNOWN"
}

const (
	boolValueTag    = 1
	int64ValueTag   = 2
	float64ValueTag = 3
	stringValueTag  = 4
	bytesValueTag   = 5
	// Value tags must be less than 16 to share a byte with the column
	// number nibble; see encodeColNumValueTag.
)

// Codec is the collaborator interface UndoRecord consumes. A real engine
// would back it with its on-disk row format; mahoundo's default
// implementation (below) is a complete, independent codec so the undo
// log is testable without any other subsystem.
type Codec interface {
	CreatePage(size int) []byte
	Encode(buf []byte, kind Kind, table isql.TableName, row []isql.Value) ([]byte, error)
	Decode(buf []byte, ses session.Context) (Kind, isql.TableName, []isql.Value, error)
	CanEncode(row []isql.Value) bool
	SerializedLength(buf []byte) int
}

// Default is the length-prefixed binary codec described above. The zero
// value is ready to use; it carries no state of its own.
type Default struct{}

func (Default) CreatePage(size int) []byte {
	return make([]byte, 0, size)
}

// frameHeaderLength is the 4-byte big-endian length prefix every encoded
// record carries on disk so Decode knows how many payload bytes to read
// without needing any out-of-band index.
const frameHeaderLength = 4

func (Default) Encode(buf []byte, kind Kind, table isql.TableName, row []isql.Value) ([]byte, error) {
	if !(Default{}).CanEncode(row) {
		return nil, fmt.Errorf("rowcodec: row is not eligible for spill: %s", isql.Format(row))
	}

	buf = buf[:0]
	buf = append(buf, 0, 0, 0, 0) // placeholder for the frame length
	buf = append(buf, byte(kind))
	buf = EncodeVarint(buf, uint64(table.Database))
	buf = EncodeVarint(buf, uint64(table.Schema))
	buf = EncodeVarint(buf, uint64(table.Table))
	buf = encodeRow(buf, row)

	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)-frameHeaderLength))
	return buf, nil
}

func (Default) SerializedLength(buf []byte) int {
	if len(buf) < frameHeaderLength {
		return 0
	}
	return frameHeaderLength + int(binary.BigEndian.Uint32(buf[0:4]))
}

func (Default) Decode(buf []byte, ses session.Context) (Kind, isql.TableName, []isql.Value, error) {
	if len(buf) < frameHeaderLength+1 {
		return 0, isql.TableName{}, nil, fmt.Errorf("rowcodec: truncated record")
	}
	length := int(binary.BigEndian.Uint32(buf[0:4]))
	buf = buf[frameHeaderLength:]
	if len(buf) < length {
		return 0, isql.TableName{}, nil, fmt.Errorf("rowcodec: truncated record: have %d want %d",
			len(buf), length)
	}
	buf = buf[:length]

	kind := Kind(buf[0])
	buf = buf[1:]

	var ok bool
	var u uint64
	var table isql.TableName

	buf, u, ok = DecodeVarint(buf)
	if !ok {
		return 0, isql.TableName{}, nil, fmt.Errorf("rowcodec: bad table database field")
	}
	table.Database = isql.Identifier(u)

	buf, u, ok = DecodeVarint(buf)
	if !ok {
		return 0, isql.TableName{}, nil, fmt.Errorf("rowcodec: bad table schema field")
	}
	table.Schema = isql.Identifier(u)

	buf, u, ok = DecodeVarint(buf)
	if !ok {
		return 0, isql.TableName{}, nil, fmt.Errorf("rowcodec: bad table name field")
	}
	table.Table = isql.Identifier(u)

	row, err := decodeRow(buf)
	if err != nil {
		return 0, isql.TableName{}, nil, err
	}
	return kind, table, row, nil
}

// CanEncode is the eligibility predicate: a row is ineligible for spill
// iff some column references a transient resource that cannot be
// byte-round-tripped, modeled here by sql.StreamValue.
func (Default) CanEncode(row []isql.Value) bool {
	for _, v := range row {
		if _, ok := v.(isql.StreamValue); ok {
			return false
		}
	}
	return true
}

// extendedColNum is the high-nibble value that marks "the real column
// number follows as a varint" rather than being the column number
// itself. Column numbers 0-14 fit directly in the high nibble; 15 and
// above always take the extended form, so the marker value is never
// ambiguous with an inline column number.
const extendedColNum = 0xF

func encodeColNumValueTag(buf []byte, colNum int, tag byte) []byte {
	if colNum < extendedColNum {
		buf = append(buf, byte(colNum<<4)|tag)
	} else {
		buf = append(buf, byte(extendedColNum<<4)|tag)
		buf = EncodeVarint(buf, uint64(colNum))
	}
	return buf
}

func encodeRow(buf []byte, row []isql.Value) []byte {
	buf = EncodeVarint(buf, uint64(len(row)))
	for num := range row {
		val := row[num]
		if val == nil {
			continue
		}
		switch val := val.(type) {
		case isql.BoolValue:
			buf = encodeColNumValueTag(buf, num, boolValueTag)
			if val {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case isql.StringValue:
			b := []byte(val)
			buf = encodeColNumValueTag(buf, num, stringValueTag)
			buf = EncodeVarint(buf, uint64(len(b)))
			buf = append(buf, b...)
		case isql.BytesValue:
			b := []byte(val)
			buf = encodeColNumValueTag(buf, num, bytesValueTag)
			buf = EncodeVarint(buf, uint64(len(b)))
			buf = append(buf, b...)
		case isql.Float64Value:
			buf = encodeColNumValueTag(buf, num, float64ValueTag)
			buf = EncodeUint64(buf, math.Float64bits(float64(val)))
		case isql.Int64Value:
			buf = encodeColNumValueTag(buf, num, int64ValueTag)
			buf = EncodeZigzag64(buf, int64(val))
		default:
			panic(fmt.Sprintf("rowcodec: unexpected type for sql.Value: %T: %v", val, val))
		}
	}
	return buf
}

func decodeRow(buf []byte) ([]isql.Value, error) {
	buf, u, ok := DecodeVarint(buf)
	if !ok {
		return nil, fmt.Errorf("rowcodec: bad row, column count field")
	}
	dest := make([]isql.Value, u)

	for len(buf) > 0 {
		tag := buf[0] & 0x0F
		num := int(buf[0] >> 4)
		buf = buf[1:]
		if num == extendedColNum {
			var u uint64
			buf, u, ok = DecodeVarint(buf)
			if !ok {
				return nil, fmt.Errorf("rowcodec: bad row, column number field")
			}
			num = int(u)
		}

		var val isql.Value
		switch tag {
		case boolValueTag:
			if len(buf) < 1 {
				return nil, fmt.Errorf("rowcodec: bad row, bool field")
			}
			val = isql.BoolValue(buf[0] != 0)
			buf = buf[1:]
		case stringValueTag:
			var n uint64
			buf, n, ok = DecodeVarint(buf)
			if !ok || len(buf) < int(n) {
				return nil, fmt.Errorf("rowcodec: bad row, string field")
			}
			val = isql.StringValue(buf[:n])
			buf = buf[n:]
		case bytesValueTag:
			var n uint64
			buf, n, ok = DecodeVarint(buf)
			if !ok || len(buf) < int(n) {
				return nil, fmt.Errorf("rowcodec: bad row, bytes field")
			}
			val = isql.BytesValue(append([]byte(nil), buf[:n]...))
			buf = buf[n:]
		case float64ValueTag:
			if len(buf) < 8 {
				return nil, fmt.Errorf("rowcodec: bad row, float field")
			}
			val = isql.Float64Value(math.Float64frombits(binary.BigEndian.Uint64(buf)))
			buf = buf[8:]
		case int64ValueTag:
			var n int64
			buf, n, ok = DecodeZigzag64(buf)
			if !ok {
				return nil, fmt.Errorf("rowcodec: bad row, int field")
			}
			val = isql.Int64Value(n)
		default:
			return nil, fmt.Errorf("rowcodec: bad row, unknown value tag %d", tag)
		}

		if num >= len(dest) {
			return nil, fmt.Errorf("rowcodec: bad row, column number %d out of range", num)
		}
		dest[num] = val
	}

	return dest, nil
}
