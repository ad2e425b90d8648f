package series

import "fmt"

// DefaultChunkSize is the number of groups loaded and filtered at once.
const DefaultChunkSize = 50000

type groupKey struct {
	userID int64
	stepID int64
}

// Assign drops submissions that are not WellFormed and gives each remaining one
// a group id shared by all submissions of the same user on the same step.
// Ids are handed out in order of first occurrence, starting at 0.
func Assign(subs []Submission) ([]Submission, int) {
	ids := make(map[groupKey]int)
	kept := make([]Submission, 0, len(subs))
	for _, s := range subs {
		if !WellFormed(s) {
			continue
		}
		k := groupKey{userID: s.UserID, stepID: s.StepID}
		id, ok := ids[k]
		if !ok {
			id = len(ids)
			ids[k] = id
		}
		s.Group = id
		kept = append(kept, s)
	}
	return kept, len(ids)
}

// Index holds submissions bucketed by group id. Members of a group keep their input order.
type Index struct {
	groups [][]Submission
}

func NewIndex(subs []Submission) (*Index, error) {
	ix := &Index{}
	for _, s := range subs {
		if s.Group < 0 {
			return nil, fmt.Errorf("submission %d has no group assigned", s.ID)
		}
		for len(ix.groups) <= s.Group {
			ix.groups = append(ix.groups, nil)
		}
		ix.groups[s.Group] = append(ix.groups[s.Group], s)
	}
	return ix, nil
}

// Len returns the size of the group id space.
func (ix *Index) Len() int {
	return len(ix.groups)
}

func (ix *Index) Group(id int) []Submission {
	if id < 0 || id >= len(ix.groups) {
		return nil
	}
	return ix.groups[id]
}

// Page is a batch of groups with ids in [Lo, Hi]. Hi never exceeds the last group id.
type Page struct {
	Lo     int
	Hi     int
	Groups [][]Submission
}

// Pager walks the group id space in fixed-size ranges.
type Pager struct {
	ix   *Index
	size int
	next int
}

// Pager returns an iterator over consecutive ranges of chunkSize group ids.
// A non-positive chunkSize falls back to DefaultChunkSize.
func (ix *Index) Pager(chunkSize int) *Pager {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pager{ix: ix, size: chunkSize}
}

// Next returns the following page, or false once every group was visited.
func (p *Pager) Next() (Page, bool) {
	total := len(p.ix.groups)
	if p.next >= total {
		return Page{}, false
	}
	lo := p.next
	end := min(lo+p.size, total)
	p.next = lo + p.size

	groups := make([][]Submission, 0, end-lo)
	for id := lo; id < end; id++ {
		if len(p.ix.groups[id]) > 0 {
			groups = append(groups, p.ix.groups[id])
		}
	}
	return Page{Lo: lo, Hi: end - 1, Groups: groups}, true
}
