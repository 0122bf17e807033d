// Package undo implements the per-session undo log: an ordered,
// LIFO-readable sequence of row-change records that spills to a scratch
// file under memory pressure and rehydrates on demand.
package undo

import (
	"encoding/binary"
	"fmt"

	"github.com/leftmike/mahoundo/internal/rowcodec"
	"github.com/leftmike/mahoundo/internal/scratch"
	"github.com/leftmike/mahoundo/internal/session"
)

// CheckInvariants enables debug-build-only residency bookkeeping
// assertions. It is off by default; when on, Size panics if the resident
// count exceeds the number of records.
var CheckInvariants = false

// Log is the undo log itself. One Log belongs to exactly one session:
// there is no internal locking, and every method is a plain,
// synchronous call from that session's single actor.
type Log struct {
	ses   session.Context
	codec rowcodec.Codec
	alloc scratch.Allocator

	records       []*Record
	residentCount int

	scratchFile   *scratch.File
	scratchCursor int64
	codecBuf      []byte

	index *offsetIndex
}

// New creates an empty log bound to ses. codec and alloc are the row
// codec and temp-file allocator collaborators it delegates encoding and
// file creation to.
func New(ses session.Context, codec rowcodec.Codec, alloc scratch.Allocator) *Log {
	return &Log{
		ses:   ses,
		codec: codec,
		alloc: alloc,
		index: newOffsetIndex(),
	}
}

// Size returns the number of records currently held, resident or stored.
func (l *Log) Size() int {
	if CheckInvariants && l.residentCount > len(l.records) {
		panic(fmt.Sprintf("undo: invariant violated: residentCount %d > len(records) %d",
			l.residentCount, len(l.records)))
	}
	return len(l.records)
}

// ResidentCount returns the number of records currently holding an
// in-memory row image. Exposed for tests asserting the residency cap
// and for diagnostics.
func (l *Log) ResidentCount() int {
	return l.residentCount
}

// HasScratchFile reports whether a scratch file has ever been created
// for this log's current cycle.
func (l *Log) HasScratchFile() bool {
	return l.scratchFile != nil
}

// Append adds record to the tail of the log. It may trigger the first
// spill (creating the scratch file and walking every record from head
// to tail) or a single tail-only spill attempt on an already-spilling
// log.
func (l *Log) Append(record *Record) error {
	l.records = append(l.records, record)
	l.residentCount++

	if l.residentCount <= l.ses.MaxMemoryUndo() || !l.ses.IsPersistent() {
		return nil
	}

	if l.scratchFile == nil {
		return l.firstSpill()
	}
	return l.spillOne(record)
}

// firstSpill opens the scratch file, reserves its header, and walks
// every record from head to tail attempting to spill each — the oldest
// records are least likely to be popped soon, so paging them out first
// maximizes the expected time until rehydration.
func (l *Log) firstSpill() error {
	path, err := l.alloc.CreateScratch()
	if err != nil {
		return fmt.Errorf("undo: create scratch file: %w", err)
	}
	f, err := l.alloc.Open(path, true, true)
	if err != nil {
		return fmt.Errorf("undo: open scratch file: %w", err)
	}
	f.MarkAutoDelete()

	headerLen := l.ses.ScratchHeaderLength()
	if err := scratch.WriteHeader(f, headerLen); err != nil {
		return fmt.Errorf("undo: write scratch header: %w", err)
	}

	l.scratchFile = f
	l.scratchCursor = int64(headerLen)
	l.codecBuf = l.codec.CreatePage(l.ses.DefaultPageSize())

	for _, r := range l.records {
		if err := l.spillOne(r); err != nil {
			return err
		}
	}
	return nil
}

// spillOne attempts to spill a single record. It is a no-op, not an
// error, when the record is already stored or the codec reports it
// ineligible.
func (l *Log) spillOne(r *Record) error {
	frame, ok, err := r.spillFrame(l.codec, l.codecBuf)
	if err != nil {
		return fmt.Errorf("undo: encode record: %w", err)
	}
	if !ok {
		return nil
	}

	offset := l.scratchCursor
	if err := l.scratchFile.WriteAt(offset, frame); err != nil {
		return fmt.Errorf("undo: spill record: %w", err)
	}

	r.markStored(offset)
	l.residentCount--
	l.scratchCursor = offset + int64(len(frame))
	l.index.add(offset, r)
	return nil
}

// PopLast removes and returns the most recently appended record still in
// the log, rehydrating a window of stored records around it first if
// necessary.
func (l *Log) PopLast() (*Record, error) {
	if len(l.records) == 0 {
		return nil, ErrEmpty
	}
	i := len(l.records) - 1
	last := l.records[i]

	if last.IsStored() {
		if err := l.rehydrateWindow(i); err != nil {
			return nil, err
		}
	}

	l.records = l.records[:i]
	l.residentCount--
	return last, nil
}

// rehydrateWindow restores to memory every stored record in
// [max(0, i - maxMemoryUndo/2), i]. Rollback pops in LIFO order and
// overwhelmingly accesses adjacent records next, so amortizing the I/O
// over a half-budget window pays for itself.
func (l *Log) rehydrateWindow(i int) error {
	windowStart := i - l.ses.MaxMemoryUndo()/2
	if windowStart < 0 {
		windowStart = 0
	}

	for j := windowStart; j <= i; j++ {
		r := l.records[j]
		if !r.IsStored() {
			continue
		}
		if err := l.rehydrate(r); err != nil {
			return err
		}
		l.residentCount++
	}

	// Log tracks scratchCursor itself and every read/write uses absolute
	// offsets (scratch.File.ReadAt/WriteAt), so a rehydration batch never
	// needs to restore an implicit file-position cursor before the next
	// append — see DESIGN.md, the "`seek(file)`" entry.
	return nil
}

func (l *Log) rehydrate(r *Record) error {
	frame, err := l.readFrame(r.Offset())
	if err != nil {
		return fmt.Errorf("undo: rehydrate record: %w", err)
	}
	l.index.remove(r.Offset())
	if err := r.load(l.codec, frame, l.ses); err != nil {
		return fmt.Errorf("undo: rehydrate record: %w", err)
	}
	return nil
}

// readFrame reads a complete length-prefixed record frame starting at
// offset: first the 4-byte big-endian length, then that many payload
// bytes, handed to the codec as one contiguous slice.
func (l *Log) readFrame(offset int64) ([]byte, error) {
	head, err := l.scratchFile.ReadAt(offset, 4)
	if err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(head)
	payload, err := l.scratchFile.ReadAt(offset+4, int(length))
	if err != nil {
		return nil, err
	}
	return append(head, payload...), nil
}

// Clear drops every record and releases the scratch file, if any. It is
// idempotent and intentionally swallows any error closing or deleting
// the scratch file: Clear is called from cleanup paths that must not
// fail.
func (l *Log) Clear() {
	l.records = nil
	l.residentCount = 0
	l.index = newOffsetIndex()
	if l.scratchFile != nil {
		l.scratchFile.CloseAndDeleteSilently()
		l.scratchFile = nil
		l.codecBuf = nil
		l.scratchCursor = 0
	}
}

// FindRecordOwningOffset returns the stored record whose frame starts at
// the largest offset <= pos in the scratch file, using the btree-backed
// offsetIndex instead of a linear scan, for diagnostic tools. Frame ends
// are not checked (see offsetIndex.findOwner).
func (l *Log) FindRecordOwningOffset(pos int64) (*Record, bool) {
	return l.index.findOwner(pos)
}
