package scratch

import (
	"fmt"
	"os"
)

// Allocator is the temp-file allocator collaborator: create a scratch
// file and get back its path, then open it read-write or read-only.
// UndoLog never creates files itself; it only ever talks to this.
type Allocator interface {
	CreateScratch() (string, error)
	Open(path string, readWrite, mustExist bool) (*File, error)
}

// DefaultAllocator allocates scratch files under a single directory,
// named so that a crashed process's leftovers are easy to recognize and
// clean up by hand (they are never cleaned up automatically on restart;
// the undo log is strictly in-process and owns no durable state of its
// own).
type DefaultAllocator struct {
	Dir string
}

func (da DefaultAllocator) CreateScratch() (string, error) {
	f, err := os.CreateTemp(da.Dir, "mahoundo-*.scratch")
	if err != nil {
		return "", fmt.Errorf("scratch: create: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("scratch: create: %w", err)
	}
	return path, nil
}

func (da DefaultAllocator) Open(path string, readWrite, mustExist bool) (*File, error) {
	flag := os.O_RDONLY
	if readWrite {
		flag = os.O_RDWR
	}
	if !mustExist {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0600)
	if err != nil {
		return nil, fmt.Errorf("scratch: open %s: %w", path, err)
	}
	return Open(path, f), nil
}
