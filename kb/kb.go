package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
)

// ErrSealed is returned by mutators once the KB has been sealed.
var ErrSealed = errors.New("knowledge base is sealed")

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventTableStored EventType = iota
	EventSealed
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type   EventType
	Body   model.Body
	Frames int
}

// KnowledgeBase is an in-memory, thread-safe store for one run's timeline and
// position tables.
type KnowledgeBase struct {
	mu sync.RWMutex

	timeline    timectrl.Timeline
	hasTimeline bool
	tables      map[model.Body]*model.PositionTable
	sealed      bool

	subs   []subscriber
	nextID uint64
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		tables: make(map[model.Body]*model.PositionTable),
	}
}

// SetTimeline records the run's timeline. Tables stored afterwards must have
// exactly tl.Frames entries.
func (kb *KnowledgeBase) SetTimeline(tl timectrl.Timeline) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.sealed {
		return ErrSealed
	}
	for _, t := range kb.tables {
		if t.Len() != tl.Frames {
			return fmt.Errorf("timeline has %d frames but stored tables have %d", tl.Frames, t.Len())
		}
		break
	}
	kb.timeline = tl
	kb.hasTimeline = true
	return nil
}

// Timeline returns the stored timeline and whether one was set.
func (kb *KnowledgeBase) Timeline() (timectrl.Timeline, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.timeline, kb.hasTimeline
}

// PutTable stores the table for its body. It fails for a body that already
// has a table, for a length that differs from the timeline or the other
// tables, and after Seal.
func (kb *KnowledgeBase) PutTable(t *model.PositionTable) error {
	if t == nil {
		return errors.New("nil position table")
	}
	if !t.Body.Valid() {
		return fmt.Errorf("table for unknown body %d", int(t.Body))
	}

	kb.mu.Lock()
	if kb.sealed {
		kb.mu.Unlock()
		return ErrSealed
	}
	if _, exists := kb.tables[t.Body]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("table for %s already stored", t.Body)
	}
	if kb.hasTimeline && t.Len() != kb.timeline.Frames {
		kb.mu.Unlock()
		return fmt.Errorf("%s table has %d frames, timeline has %d", t.Body, t.Len(), kb.timeline.Frames)
	}
	for _, other := range kb.tables {
		if other.Len() != t.Len() {
			kb.mu.Unlock()
			return fmt.Errorf("%s table has %d frames, %s table has %d", t.Body, t.Len(), other.Body, other.Len())
		}
	}
	kb.tables[t.Body] = t
	event := Event{Type: EventTableStored, Body: t.Body, Frames: t.Len()}
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, fn := range subs {
		fn(event)
	}
	return nil
}

// Table returns the table for body, or nil if not stored.
func (kb *KnowledgeBase) Table(body model.Body) *model.PositionTable {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.tables[body]
}

// Tables returns the stored tables in canonical body order.
func (kb *KnowledgeBase) Tables() []*model.PositionTable {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*model.PositionTable, 0, len(kb.tables))
	for _, b := range model.Bodies() {
		if t, ok := kb.tables[b]; ok {
			res = append(res, t)
		}
	}
	return res
}

// Frames returns the common table length, or 0 when nothing is stored.
func (kb *KnowledgeBase) Frames() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	for _, t := range kb.tables {
		return t.Len()
	}
	return 0
}

// Seal freezes the KB. Sealing twice is a no-op.
func (kb *KnowledgeBase) Seal() {
	kb.mu.Lock()
	if kb.sealed {
		kb.mu.Unlock()
		return
	}
	kb.sealed = true
	frames := 0
	for _, t := range kb.tables {
		frames = t.Len()
		break
	}
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Type: EventSealed, Frames: frames})
	}
}

// snapshotSubs copies the callbacks in registration order. Callers hold mu.
func (kb *KnowledgeBase) snapshotSubs() []func(Event) {
	fns := make([]func(Event), len(kb.subs))
	for i, s := range kb.subs {
		fns[i] = s.fn
	}
	return fns
}

// Sealed reports whether Seal has been called.
func (kb *KnowledgeBase) Sealed() bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.sealed
}

// Subscribe registers a callback for KB events. It returns an unsubscribe
// function that removes exactly this callback; calling it again is a no-op.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.nextID++
	id := kb.nextID
	kb.subs = append(kb.subs, subscriber{id: id, fn: fn})

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		for i, s := range kb.subs {
			if s.id == id {
				kb.subs = append(kb.subs[:i], kb.subs[i+1:]...)
				return
			}
		}
	}
}
