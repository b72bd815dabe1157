// Package sched is the priority-band round-robin scheduler: ready
// threads live in priority bands, each tracking how many scheduling
// "opportunities" it has left before lower-priority bands get a turn.
// Ported from yjkos's original_source/include/kernel/proc/sched.h
// band/opportunity design; band membership uses internal/list the same
// way trap's handler chains do, for O(1) dequeue-and-requeue.
package sched

import (
	"sort"

	"kcore/arch"
	"kcore/internal/klog"
	"kcore/internal/list"
	"kcore/thread"
)

var log = klog.Sub("sched")

// DefaultOpportunities is the fallback opportunity count for a
// priority with no explicit entry in the scheduler's table: every
// band gets at least one turn per round.
const DefaultOpportunities = 1

// band is (priority, opportunities_remaining, threads_list); lower
// numeric priority is preferred, matching Unix nice.
type band struct {
	priority      int
	opportunities int
	threads       *list.List[*thread.Thread]
}

// Scheduler holds every priority band currently in use plus the fixed
// opportunity table bands are refilled from once every band in a round
// is exhausted.
type Scheduler struct {
	bands    map[int]*band
	oppTable map[int]int
	current  *thread.Thread
}

// New returns a scheduler whose opportunity table is oppTable (keyed
// by priority); a priority absent from the table falls back to
// DefaultOpportunities.
func New(oppTable map[int]int) *Scheduler {
	if oppTable == nil {
		oppTable = map[int]int{}
	}
	return &Scheduler{
		bands:    make(map[int]*band),
		oppTable: oppTable,
	}
}

func (s *Scheduler) opportunitiesFor(priority int) int {
	if n, ok := s.oppTable[priority]; ok {
		return n
	}
	return DefaultOpportunities
}

func (s *Scheduler) bandFor(priority int) *band {
	b, ok := s.bands[priority]
	if !ok {
		b = &band{
			priority:      priority,
			opportunities: s.opportunitiesFor(priority),
			threads:       list.New[*thread.Thread](),
		}
		s.bands[priority] = b
	}
	return b
}

// Queue inserts t at the tail of the band matching its priority,
// creating the band on demand.
func (s *Scheduler) Queue(t *thread.Thread) {
	prev := arch.InterruptsDisable()
	defer arch.InterruptsRestore(prev)
	s.bandFor(t.Priority).threads.PushBack(t)
}

// sortedPriorities returns every band's priority, ascending (lower
// numeric priority preferred, like Unix nice).
func (s *Scheduler) sortedPriorities() []int {
	ps := make([]int, 0, len(s.bands))
	for p := range s.bands {
		ps = append(ps, p)
	}
	sort.Ints(ps)
	return ps
}

// pickNextQueue returns the band that should run next: the smallest
// priority among bands with opportunities remaining and a runnable
// thread. If no such band exists, every band's opportunities are reset
// from the table and the search repeats.
func (s *Scheduler) pickNextQueue() *band {
	for {
		for _, p := range s.sortedPriorities() {
			b := s.bands[p]
			if b.opportunities > 0 && b.threads.Len() > 0 {
				return b
			}
		}
		if !s.anyRunnable() {
			return nil
		}
		for _, b := range s.bands {
			b.opportunities = s.opportunitiesFor(b.priority)
		}
	}
}

func (s *Scheduler) anyRunnable() bool {
	for _, b := range s.bands {
		if b.threads.Len() > 0 {
			return true
		}
	}
	return false
}

// Schedule is the voluntary-yield and timer-tick entry point: it saves
// the outgoing thread at the tail of its band (if still runnable),
// selects the next thread, and performs the context switch. Schedule
// MUST be called with interrupts already disabled; it restores the
// incoming thread's saved interrupt state after the switch.
func (s *Scheduler) Schedule(outgoingRunnable bool) {
	arch.AssertInterruptsDisabled()

	if s.current != nil && outgoingRunnable {
		s.bandFor(s.current.Priority).threads.PushBack(s.current)
	}

	b := s.pickNextQueue()
	if b == nil {
		log.Warn("sched: no runnable thread")
		return
	}
	next, _ := b.threads.RemoveFront()
	b.opportunities--

	from := s.current
	s.current = next
	thread.Switch(from, next)

	if next.InitialInterruptsEnabled {
		arch.InterruptsEnable()
	}
}

// Bootstrap performs the scheduler's very first entry: no outgoing
// thread exists yet, so the switch is one-way (from == nil).
func (s *Scheduler) Bootstrap() {
	arch.AssertInterruptsDisabled()
	b := s.pickNextQueue()
	if b == nil {
		klog.Fatalf("sched: bootstrap with no runnable thread")
	}
	next, _ := b.threads.RemoveFront()
	b.opportunities--
	s.current = next
	thread.Switch(nil, next)
	if next.InitialInterruptsEnabled {
		arch.InterruptsEnable()
	}
}

// Current returns the thread most recently switched into.
func (s *Scheduler) Current() *thread.Thread { return s.current }
