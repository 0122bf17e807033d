// Package scratch implements the undo log's temp-file allocator
// collaborator: an append-oriented, random-access byte file with a
// reserved header region, created lazily and discarded when the owning
// log is cleared or the session ends.
//
// Unlike a durable write-ahead log backing an on-disk table format, a
// scratch file never survives the process: it exists purely so UndoLog
// can spill memory-resident records under pressure and rehydrate them
// later in the same session.
package scratch

import (
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
)

var headerSignature = [8]byte{'m', 'a', 'h', 'o', 'u', 'n', 'd', 'o'}

const headerVersion = 1

// minHeaderLength is the smallest reservation that can carry the
// diagnostic signature, version byte, and blake2b-256 checksum. Session
// contexts that configure a smaller ScratchHeaderLength still work; the
// checksum is simply skipped.
const minHeaderLength = len(headerSignature) + 1 + blake2b.Size256

// File is a single scratch file. All reads and writes are at absolute
// offsets; there is no implicit file-position cursor to keep in sync,
// which is the one behavioral difference from the file-store this is
// ported from (see DESIGN.md, "internal/scratch").
type File struct {
	f          *os.File
	path       string
	autoDelete bool
}

// Open wraps an already-open *os.File as a scratch File.
func Open(path string, f *os.File) *File {
	return &File{f: f, path: path}
}

// Path returns the file's location on disk.
func (sf *File) Path() string {
	return sf.path
}

// MarkAutoDelete records that the file should be removed when closed.
func (sf *File) MarkAutoDelete() {
	sf.autoDelete = true
}

// WriteAt writes b at the given absolute offset.
func (sf *File) WriteAt(offset int64, b []byte) error {
	n, err := sf.f.WriteAt(b, offset)
	if err != nil {
		return fmt.Errorf("scratch: write at %d: %w", offset, err)
	}
	if n != len(b) {
		return fmt.Errorf("scratch: partial write at %d: got %d, want %d", offset, n, len(b))
	}
	return nil
}

// ReadAt reads exactly n bytes starting at the given absolute offset.
func (sf *File) ReadAt(offset int64, n int) ([]byte, error) {
	b := make([]byte, n)
	got, err := sf.f.ReadAt(b, offset)
	if err != nil {
		return nil, fmt.Errorf("scratch: read at %d: %w", offset, err)
	}
	if got != n {
		return nil, fmt.Errorf("scratch: partial read at %d: got %d, want %d", offset, got, n)
	}
	return b, nil
}

// CloseAndDeleteSilently closes the file and, if it was marked
// auto-delete, removes it from disk. Errors from either step are
// swallowed: callers invoke this from UndoLog.Clear, a cleanup path that
// must never fail.
func (sf *File) CloseAndDeleteSilently() {
	path := sf.path
	autoDelete := sf.autoDelete
	_ = sf.f.Close()
	if autoDelete {
		_ = os.Remove(path)
	}
}

// WriteHeader stamps the reserved header region with a signature, a
// version byte, and (when the reservation is large enough) a blake2b-256
// checksum over the signature and version. This is purely diagnostic: it
// lets a caller report whether a freshly-created scratch file's header
// looks sane. Nothing in UndoLog's correctness depends on it.
func WriteHeader(sf *File, headerLength int) error {
	buf := make([]byte, headerLength)
	n := copy(buf, headerSignature[:])
	if n < headerLength {
		buf[n] = headerVersion
		n++
	}
	if headerLength >= minHeaderLength {
		sum := blake2b.Sum256(buf[:len(headerSignature)+1])
		copy(buf[len(headerSignature)+1:], sum[:])
	}
	return sf.WriteAt(0, buf)
}

// VerifyHeader reports whether the header region at the front of the file
// carries the expected signature and (if present) checksum. It never
// returns an error for a short or garbled header — only ok=false — since
// a bad header is a diagnostic observation, not a fatal condition.
func VerifyHeader(sf *File, headerLength int) (ok bool, err error) {
	if headerLength < len(headerSignature) {
		return false, nil
	}
	buf, err := sf.ReadAt(0, headerLength)
	if err != nil {
		return false, err
	}
	if string(buf[:len(headerSignature)]) != string(headerSignature[:]) {
		return false, nil
	}
	if headerLength < minHeaderLength {
		return true, nil
	}
	want := blake2b.Sum256(buf[:len(headerSignature)+1])
	got := buf[len(headerSignature)+1 : len(headerSignature)+1+blake2b.Size256]
	return string(want[:]) == string(got), nil
}
