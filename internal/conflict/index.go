// Package conflict keeps the date ranges of blocking bookings and answers
// overlap queries against them.
package conflict

import (
	"sort"
	"time"

	"github.com/cimillas/hut-booking/internal/domain"
)

// Entry is one occupied range.
type Entry struct {
	ID    string
	Range domain.DateRange
}

// Index is an interval index over inclusive date ranges. Entries are kept
// sorted by start date with a max-end segment tree on top, so a query visits
// only subtrees that can still hold an overlapping range. An Index is not
// safe for concurrent use; callers serialize access.
type Index struct {
	entries []Entry
	byID    map[string]domain.DateRange
	maxEnd  []time.Time
}

func NewIndex() *Index {
	return &Index{byID: make(map[string]domain.DateRange)}
}

func (x *Index) Len() int {
	return len(x.entries)
}

// Get returns the range stored for id.
func (x *Index) Get(id string) (domain.DateRange, bool) {
	r, ok := x.byID[id]
	return r, ok
}

// Put inserts id or moves it to a new range. Writes splice the sorted slice
// and refresh the tree in linear time; reads stay logarithmic plus output.
func (x *Index) Put(id string, r domain.DateRange) {
	old, ok := x.byID[id]
	if ok && old.Equal(r) {
		return
	}
	if ok {
		x.removeAt(x.position(id, old))
	}
	x.byID[id] = r
	i := x.position(id, r)
	x.entries = append(x.entries, Entry{})
	copy(x.entries[i+1:], x.entries[i:])
	x.entries[i] = Entry{ID: id, Range: r}
	x.refresh()
}

// Remove drops id from the index and reports whether it was present.
func (x *Index) Remove(id string) bool {
	r, ok := x.byID[id]
	if !ok {
		return false
	}
	delete(x.byID, id)
	x.removeAt(x.position(id, r))
	x.refresh()
	return true
}

// Overlapping returns the IDs of every entry intersecting r, ordered by start
// date. excludeID, when non-empty, is skipped so a booking never conflicts
// with itself.
func (x *Index) Overlapping(r domain.DateRange, excludeID string) []string {
	// Entries at or after limit start after r ends.
	limit := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].Range.Start.After(r.End)
	})
	if limit == 0 {
		return nil
	}
	var out []string
	x.collect(1, 0, len(x.entries), limit, r.Start, excludeID, &out)
	return out
}

func (x *Index) collect(node, lo, hi, limit int, start time.Time, excludeID string, out *[]string) {
	if lo >= limit || x.maxEnd[node].Before(start) {
		return
	}
	if hi-lo == 1 {
		if e := x.entries[lo]; e.ID != excludeID {
			*out = append(*out, e.ID)
		}
		return
	}
	mid := (lo + hi) / 2
	x.collect(2*node, lo, mid, limit, start, excludeID, out)
	x.collect(2*node+1, mid, hi, limit, start, excludeID, out)
}

// position is the first slot whose (start, id) is not below (r.Start, id).
func (x *Index) position(id string, r domain.DateRange) int {
	return sort.Search(len(x.entries), func(i int) bool {
		e := x.entries[i]
		if !e.Range.Start.Equal(r.Start) {
			return e.Range.Start.After(r.Start)
		}
		return e.ID >= id
	})
}

func (x *Index) removeAt(i int) {
	copy(x.entries[i:], x.entries[i+1:])
	x.entries = x.entries[:len(x.entries)-1]
}

func (x *Index) refresh() {
	if need := 4*len(x.entries) + 1; cap(x.maxEnd) < need {
		x.maxEnd = make([]time.Time, need)
	} else {
		x.maxEnd = x.maxEnd[:need]
	}
	if len(x.entries) > 0 {
		x.build(1, 0, len(x.entries))
	}
}

func (x *Index) build(node, lo, hi int) time.Time {
	if hi-lo == 1 {
		x.maxEnd[node] = x.entries[lo].Range.End
		return x.maxEnd[node]
	}
	mid := (lo + hi) / 2
	left := x.build(2*node, lo, mid)
	right := x.build(2*node+1, mid, hi)
	if right.After(left) {
		left = right
	}
	x.maxEnd[node] = left
	return left
}
