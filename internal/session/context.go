// Package session provides the database/session context collaborator:
// the small set of knobs an UndoLog reads to decide when to spill and
// how much scratch-file header room to reserve.
package session

import (
	"context"

	isql "github.com/leftmike/mahoundo/internal/sql"
)

// Context is the narrow capability interface UndoLog depends on: the
// undo log only ever needs these four values plus whatever the caller
// already threads through for cancellation, not a full
// session/database pair.
type Context interface {
	Context() context.Context
	DefaultEngine() string
	DefaultDatabase() isql.Identifier

	// MaxMemoryUndo is a count of records, not bytes: the soft residency
	// budget UndoLog.Append enforces.
	MaxMemoryUndo() int

	// IsPersistent reports whether this engine instance ever writes to
	// disk at all. When false, UndoLog never spills regardless of how
	// many records accumulate.
	IsPersistent() bool

	// DefaultPageSize sizes the reusable codec scratch buffer.
	DefaultPageSize() int

	// ScratchHeaderLength is the number of bytes UndoLog reserves at the
	// front of a scratch file before the first spilled record.
	ScratchHeaderLength() int
}

type ctx struct {
	eng  string
	name isql.Identifier

	maxMemoryUndo       int
	persistent          bool
	defaultPageSize     int
	scratchHeaderLength int
}

// Option configures a Context produced by New beyond its required
// engine/database pair.
type Option func(*ctx)

func WithMaxMemoryUndo(n int) Option {
	return func(c *ctx) { c.maxMemoryUndo = n }
}

func WithPersistent(p bool) Option {
	return func(c *ctx) { c.persistent = p }
}

func WithDefaultPageSize(n int) Option {
	return func(c *ctx) { c.defaultPageSize = n }
}

func WithScratchHeaderLength(n int) Option {
	return func(c *ctx) { c.scratchHeaderLength = n }
}

// New constructs a session Context. Defaults mirror a freshly started
// engine: a thousand resident undo records, persistent, 4KB pages, and a
// 64 byte scratch header (enough for the diagnostic signature, version,
// and checksum written by internal/scratch).
func New(eng string, name isql.Identifier, opts ...Option) Context {
	c := &ctx{
		eng:                 eng,
		name:                name,
		maxMemoryUndo:       1000,
		persistent:          true,
		defaultPageSize:     4096,
		scratchHeaderLength: 64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ctx) Context() context.Context {
	return context.Background()
}

func (c *ctx) DefaultEngine() string {
	return c.eng
}

func (c *ctx) DefaultDatabase() isql.Identifier {
	return c.name
}

func (c *ctx) MaxMemoryUndo() int {
	return c.maxMemoryUndo
}

func (c *ctx) IsPersistent() bool {
	return c.persistent
}

func (c *ctx) DefaultPageSize() int {
	return c.defaultPageSize
}

func (c *ctx) ScratchHeaderLength() int {
	return c.scratchHeaderLength
}
