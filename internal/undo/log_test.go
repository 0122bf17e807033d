package undo_test

import (
	"fmt"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/leftmike/mahoundo/internal/rowcodec"
	"github.com/leftmike/mahoundo/internal/scratch"
	isql "github.com/leftmike/mahoundo/internal/sql"
	"github.com/leftmike/mahoundo/internal/session"
	"github.com/leftmike/mahoundo/internal/undo"
)

func newTestLog(t *testing.T, maxMemoryUndo int, persistent bool) *undo.Log {
	t.Helper()
	ses := session.New("test", isql.ID("db"),
		session.WithMaxMemoryUndo(maxMemoryUndo),
		session.WithPersistent(persistent),
		session.WithScratchHeaderLength(64))
	alloc := scratch.DefaultAllocator{Dir: t.TempDir()}
	return undo.New(ses, rowcodec.Default{}, alloc)
}

func testTable() isql.TableName {
	return isql.TableName{Database: isql.ID("db"), Schema: isql.ID("public"), Table: isql.ID("t")}
}

func insertRecord(n int64) *undo.Record {
	return undo.NewRecord(rowcodec.Insert, testTable(),
		[]isql.Value{isql.Int64Value(n), isql.StringValue(fmt.Sprintf("row-%d", n))})
}

func rowString(r *undo.Record) string {
	return isql.Format(r.Row())
}

// assertPoppedOrder pops len(want) records from the log and checks that
// the popped sequence is the reverse of want, failing with a readable
// diff.
func assertPoppedOrder(t *testing.T, log *undo.Log, want []*undo.Record) {
	t.Helper()
	var gotLines, wantLines []string
	for i := len(want) - 1; i >= 0; i-- {
		rec, err := log.PopLast()
		if err != nil {
			t.Fatalf("PopLast: %v", err)
		}
		gotLines = append(gotLines, rowString(rec))
		wantLines = append(wantLines, rowString(want[i]))
	}
	got := fmt.Sprintf("%v", gotLines)
	wantStr := fmt.Sprintf("%v", wantLines)
	if got != wantStr {
		t.Fatalf("popped sequence mismatch:\n%s", diff.LineDiff(wantStr, got))
	}
}

// S1 — pure memory.
func TestPureMemory(t *testing.T) {
	log := newTestLog(t, 4, true)

	r1, r2 := insertRecord(1), insertRecord(2)
	if err := log.Append(r1); err != nil {
		t.Fatal(err)
	}
	if err := log.Append(r2); err != nil {
		t.Fatal(err)
	}

	if log.Size() != 2 {
		t.Errorf("Size() = %d, want 2", log.Size())
	}
	if log.HasScratchFile() {
		t.Errorf("HasScratchFile() = true, want false")
	}

	assertPoppedOrder(t, log, []*undo.Record{r1, r2})
	if log.Size() != 0 {
		t.Errorf("Size() = %d, want 0", log.Size())
	}
}

// S2 — first spill.
func TestFirstSpill(t *testing.T) {
	log := newTestLog(t, 4, true)

	records := make([]*undo.Record, 6)
	for i := range records {
		records[i] = insertRecord(int64(i + 1))
		if err := log.Append(records[i]); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if log.ResidentCount() > 4 {
			t.Errorf("after append %d: ResidentCount() = %d, want <= 4", i, log.ResidentCount())
		}
	}

	if log.Size() != 6 {
		t.Errorf("Size() = %d, want 6", log.Size())
	}
	if !log.HasScratchFile() {
		t.Errorf("HasScratchFile() = false, want true after exceeding the budget")
	}
}

// S3 — rehydration on pop.
func TestRehydrationOnPop(t *testing.T) {
	log := newTestLog(t, 4, true)

	records := make([]*undo.Record, 6)
	for i := range records {
		records[i] = insertRecord(int64(i + 1))
		if err := log.Append(records[i]); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	rec, err := log.PopLast()
	if err != nil {
		t.Fatal(err)
	}
	if rowString(rec) != rowString(records[5]) {
		t.Errorf("PopLast() = %s, want %s", rowString(rec), rowString(records[5]))
	}

	assertPoppedOrder(t, log, records[:5])
}

// S4 — mixed eligibility.
func TestMixedEligibility(t *testing.T) {
	log := newTestLog(t, 4, true)

	table := testTable()
	r1 := insertRecord(1)
	r2 := undo.NewRecord(rowcodec.Insert, table,
		[]isql.Value{isql.Int64Value(2), isql.StreamValue{Name: "blob-2"}})
	r3, r4, r5, r6 := insertRecord(3), insertRecord(4), insertRecord(5), insertRecord(6)

	for i, r := range []*undo.Record{r1, r2, r3, r4, r5, r6} {
		if err := log.Append(r); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	if r2.IsStored() {
		t.Errorf("ineligible record was spilled to disk")
	}

	assertPoppedOrder(t, log, []*undo.Record{r1, r2, r3, r4, r5, r6})

	if r2.IsStored() {
		t.Errorf("ineligible record crossed to disk at some point")
	}
}

// S5 — clear mid-transaction.
func TestClearMidTransaction(t *testing.T) {
	log := newTestLog(t, 4, true)

	for i := 0; i < 10; i++ {
		if err := log.Append(insertRecord(int64(i))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if !log.HasScratchFile() {
		t.Fatalf("expected a scratch file before Clear")
	}

	log.Clear()
	if log.Size() != 0 {
		t.Errorf("Size() after Clear() = %d, want 0", log.Size())
	}
	if log.HasScratchFile() {
		t.Errorf("HasScratchFile() after Clear() = true, want false")
	}

	// Clear is idempotent.
	log.Clear()
	if log.Size() != 0 {
		t.Errorf("Size() after second Clear() = %d, want 0", log.Size())
	}

	// A fresh append cycle starts clean.
	if err := log.Append(insertRecord(100)); err != nil {
		t.Fatal(err)
	}
	if log.Size() != 1 {
		t.Errorf("Size() after append following Clear() = %d, want 1", log.Size())
	}
	if log.HasScratchFile() {
		t.Errorf("HasScratchFile() = true after a single append, want false")
	}
}

// S6 — non-persistent engine.
func TestNonPersistentBypass(t *testing.T) {
	log := newTestLog(t, 4, false)

	records := make([]*undo.Record, 1000)
	for i := range records {
		records[i] = insertRecord(int64(i))
		if err := log.Append(records[i]); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	if log.HasScratchFile() {
		t.Errorf("HasScratchFile() = true, want false for a non-persistent engine")
	}
	if log.ResidentCount() != 1000 {
		t.Errorf("ResidentCount() = %d, want 1000", log.ResidentCount())
	}

	assertPoppedOrder(t, log, records)
}

// A single pop never rehydrates more than half the residency budget plus
// one (the popped record itself).
func TestRehydrationWindowBound(t *testing.T) {
	const maxMemoryUndo = 4
	log := newTestLog(t, maxMemoryUndo, true)

	for i := 0; i < 20; i++ {
		if err := log.Append(insertRecord(int64(i))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	before := log.ResidentCount()
	if _, err := log.PopLast(); err != nil {
		t.Fatal(err)
	}
	after := log.ResidentCount()

	// after = before - (popped record, -1) + rehydrated.
	rehydrated := after - before + 1
	if rehydrated > maxMemoryUndo/2+1 {
		t.Errorf("rehydrated %d records, want <= %d", rehydrated, maxMemoryUndo/2+1)
	}
}

func TestPopLastOnEmptyLogReturnsErrEmpty(t *testing.T) {
	log := newTestLog(t, 4, true)
	if _, err := log.PopLast(); err != undo.ErrEmpty {
		t.Errorf("PopLast() on empty log = %v, want %v", err, undo.ErrEmpty)
	}
}
