package session_test

import (
	"testing"

	isql "github.com/leftmike/mahoundo/internal/sql"
	"github.com/leftmike/mahoundo/internal/session"
)

func TestNewDefaults(t *testing.T) {
	ctx := session.New("basic", isql.ID("mydb"))

	if ctx.DefaultEngine() != "basic" {
		t.Errorf("DefaultEngine() = %q, want %q", ctx.DefaultEngine(), "basic")
	}
	if ctx.DefaultDatabase() != isql.ID("mydb") {
		t.Errorf("DefaultDatabase() = %s, want %s", ctx.DefaultDatabase(), isql.ID("mydb"))
	}
	if ctx.MaxMemoryUndo() != 1000 {
		t.Errorf("MaxMemoryUndo() = %d, want 1000", ctx.MaxMemoryUndo())
	}
	if !ctx.IsPersistent() {
		t.Errorf("IsPersistent() = false, want true")
	}
	if ctx.DefaultPageSize() != 4096 {
		t.Errorf("DefaultPageSize() = %d, want 4096", ctx.DefaultPageSize())
	}
	if ctx.ScratchHeaderLength() != 64 {
		t.Errorf("ScratchHeaderLength() = %d, want 64", ctx.ScratchHeaderLength())
	}
	if ctx.Context() == nil {
		t.Errorf("Context() = nil")
	}
}

func TestNewOptions(t *testing.T) {
	ctx := session.New("kvrows", isql.ID("mydb"),
		session.WithMaxMemoryUndo(10),
		session.WithPersistent(false),
		session.WithDefaultPageSize(8192),
		session.WithScratchHeaderLength(128))

	if ctx.MaxMemoryUndo() != 10 {
		t.Errorf("MaxMemoryUndo() = %d, want 10", ctx.MaxMemoryUndo())
	}
	if ctx.IsPersistent() {
		t.Errorf("IsPersistent() = true, want false")
	}
	if ctx.DefaultPageSize() != 8192 {
		t.Errorf("DefaultPageSize() = %d, want 8192", ctx.DefaultPageSize())
	}
	if ctx.ScratchHeaderLength() != 128 {
		t.Errorf("ScratchHeaderLength() = %d, want 128", ctx.ScratchHeaderLength())
	}
}
