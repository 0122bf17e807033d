package undo

import (
	"fmt"

	"github.com/leftmike/mahoundo/internal/rowcodec"
	isql "github.com/leftmike/mahoundo/internal/sql"
	"github.com/leftmike/mahoundo/internal/session"
)

// Record is one logical undo entry: a change kind, the table it applies
// to, and the row image needed to invert it. A Record is always in
// exactly one of two states — resident (row image held in
// memory) or stored (only a scratch-file offset is held) — never both
// and never neither.
//
// Record is a plain struct meant to live inside Log.records; the
// tagged-union state (row vs offset) is two fields plus a bool rather
// than a Go union, since Go has none.
type Record struct {
	kind  rowcodec.Kind
	table isql.TableName

	row    []isql.Value
	offset int64
	stored bool
}

// NewRecord creates a memory-resident record. This is the only
// constructor; every Record starts resident.
func NewRecord(kind rowcodec.Kind, table isql.TableName, row []isql.Value) *Record {
	return &Record{kind: kind, table: table, row: row}
}

func (r *Record) Kind() rowcodec.Kind {
	return r.kind
}

func (r *Record) Table() isql.TableName {
	return r.table
}

// Row returns the row image, or nil when the record is stored on disk.
func (r *Record) Row() []isql.Value {
	return r.row
}

// IsStored reports whether the record currently holds only a disk
// offset (DISK state) rather than a row image (MEM state).
func (r *Record) IsStored() bool {
	return r.stored
}

// Offset is the scratch-file byte offset of a stored record. Callers
// must check IsStored first; Offset is meaningless for a resident record.
func (r *Record) Offset() int64 {
	return r.offset
}

// spillFrame asks the codec to serialize the record into buf, without
// mutating the record's state or touching any file. It returns ok=false
// (and a nil error) when the record is already stored, or when the codec
// reports the row ineligible for spill — both are no-ops, not errors.
func (r *Record) spillFrame(codec rowcodec.Codec, buf []byte) (frame []byte, ok bool, err error) {
	if r.stored {
		return nil, false, nil
	}
	if !codec.CanEncode(r.row) {
		return nil, false, nil
	}
	frame, err = codec.Encode(buf, r.kind, r.table, r.row)
	if err != nil {
		return nil, false, err
	}
	return frame, true, nil
}

// markStored completes the MEM->DISK transition once Log has durably
// written the frame spillFrame produced, dropping the in-memory image.
func (r *Record) markStored(offset int64) {
	r.offset = offset
	r.stored = true
	r.row = nil
}

// load completes the DISK->MEM transition: decode, verify the frame
// describes this record, reattach the row image, and forget the offset.
func (r *Record) load(codec rowcodec.Codec, frame []byte, ses session.Context) error {
	if !r.stored {
		return fmt.Errorf("undo: record is not stored")
	}
	kind, table, row, err := codec.Decode(frame, ses)
	if err != nil {
		return err
	}
	if kind != r.kind || table != r.table {
		return fmt.Errorf("undo: decoded record mismatch: got kind=%s table=%s, want kind=%s table=%s",
			kind, table, r.kind, r.table)
	}
	r.row = row
	r.stored = false
	r.offset = 0
	return nil
}
