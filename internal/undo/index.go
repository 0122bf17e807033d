package undo

import "github.com/google/btree"

// offsetIndex tracks which Record owns which scratch-file offset, backed
// by a google/btree.BTree so Log.FindRecordOwningOffset can answer "who
// owns this byte range" without scanning every record. It is purely an
// optimization for diagnostics: Log's correctness never depends on it,
// and it is rebuilt from scratch on Clear.
type offsetIndex struct {
	tree *btree.BTree
}

type offsetItem struct {
	offset int64
	record *Record
}

func (a offsetItem) Less(than btree.Item) bool {
	return a.offset < than.(offsetItem).offset
}

func newOffsetIndex() *offsetIndex {
	return &offsetIndex{tree: btree.New(32)}
}

func (oi *offsetIndex) add(offset int64, r *Record) {
	oi.tree.ReplaceOrInsert(offsetItem{offset: offset, record: r})
}

func (oi *offsetIndex) remove(offset int64) {
	oi.tree.Delete(offsetItem{offset: offset})
}

// findOwner returns the record whose frame starts at the largest offset
// <= pos among records still stored. Frame lengths are not tracked, so a
// pos past the end of that frame (in the bytes of a record since
// rehydrated, or beyond the last spilled frame) still returns it.
func (oi *offsetIndex) findOwner(pos int64) (*Record, bool) {
	var found offsetItem
	hit := false
	oi.tree.DescendLessOrEqual(offsetItem{offset: pos}, func(i btree.Item) bool {
		found = i.(offsetItem)
		hit = true
		return false
	})
	if !hit {
		return nil, false
	}
	return found.record, true
}
