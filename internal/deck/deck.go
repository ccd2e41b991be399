// Package deck holds the client-side state of a swipe session: the jobs
// shown, the position in the stack and the classification of every job
// swiped so far.
package deck

import (
	"slices"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

// Snapshot is the persisted part of a deck. The job list and position are
// not persisted; the server filters decided jobs on the next load.
type Snapshot struct {
	Liked      []int64 `json:"liked"`
	Passed     []int64 `json:"passed"`
	SuperLiked []int64 `json:"super_liked"`
}

type Deck struct {
	jobs       []int64
	index      int
	liked      map[int64]struct{}
	passed     map[int64]struct{}
	superLiked map[int64]struct{}
}

func New(jobs []int64) *Deck {
	d := &Deck{}
	d.Reset()
	d.jobs = slices.Clone(jobs)
	return d
}

// Load replaces the job list and rewinds to its start. Classifications are
// kept.
func (d *Deck) Load(jobs []int64) {
	d.jobs = slices.Clone(jobs)
	d.index = 0
}

// Current returns the job on top of the stack.
func (d *Deck) Current() (int64, bool) {
	if d.index >= len(d.jobs) {
		return 0, false
	}
	return d.jobs[d.index], true
}

func (d *Deck) Index() int     { return d.index }
func (d *Deck) Len() int       { return len(d.jobs) }
func (d *Deck) Remaining() int { return len(d.jobs) - d.index }

// Swipe classifies the current job and advances. A super-like counts as a
// like too. It reports false when the deck is exhausted.
func (d *Deck) Swipe(dir enums.Direction) bool {
	jobID, ok := d.Current()
	if !ok {
		return false
	}
	switch dir {
	case enums.DirectionPass:
		d.passed[jobID] = struct{}{}
	case enums.DirectionInterested:
		d.liked[jobID] = struct{}{}
	case enums.DirectionSuperInterested:
		d.liked[jobID] = struct{}{}
		d.superLiked[jobID] = struct{}{}
	default:
		return false
	}
	d.index++
	return true
}

// Undo steps back one card and forgets how it was classified. There is no
// redo.
func (d *Deck) Undo() (int64, bool) {
	if d.index == 0 {
		return 0, false
	}
	d.index--
	jobID := d.jobs[d.index]
	delete(d.liked, jobID)
	delete(d.passed, jobID)
	delete(d.superLiked, jobID)
	return jobID, true
}

func (d *Deck) Reset() {
	d.jobs = nil
	d.index = 0
	d.liked = make(map[int64]struct{})
	d.passed = make(map[int64]struct{})
	d.superLiked = make(map[int64]struct{})
}

func (d *Deck) Liked(jobID int64) bool {
	_, ok := d.liked[jobID]
	return ok
}

func (d *Deck) Passed(jobID int64) bool {
	_, ok := d.passed[jobID]
	return ok
}

func (d *Deck) SuperLiked(jobID int64) bool {
	_, ok := d.superLiked[jobID]
	return ok
}

// Snapshot returns the three sets, each sorted.
func (d *Deck) Snapshot() Snapshot {
	return Snapshot{
		Liked:      sortedKeys(d.liked),
		Passed:     sortedKeys(d.passed),
		SuperLiked: sortedKeys(d.superLiked),
	}
}

// Restore replaces the three sets with the snapshot's contents.
func (d *Deck) Restore(s Snapshot) {
	d.liked = toSet(s.Liked)
	d.passed = toSet(s.Passed)
	d.superLiked = toSet(s.SuperLiked)
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
