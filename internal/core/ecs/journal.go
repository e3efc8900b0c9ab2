package ecs

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// EventKind classifies a change journal entry.
type EventKind uint8

const (
	Inserted EventKind = iota + 1
	Modified
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Origin tags who caused a Modified event, so consumers can ignore writes
// they caused themselves.
type Origin uint8

const (
	OriginGameplay Origin = iota
	OriginPhysics
)

// ComponentEvent is one entry of a store's change journal.
type ComponentEvent struct {
	Kind   EventKind
	Entity EntityID
	Origin Origin
}

// ReaderID is an independent cursor into a Journal.
type ReaderID uint32

// DefaultJournalCapacity bounds undelivered events per journal.
const DefaultJournalCapacity = 1 << 16

var ErrJournalOverflow = errors.New("ecs: change journal overflow")

// Journal is an append-only, trimmable log of component lifecycle events.
// Every reader sees each event exactly once, in emission order. Events behind
// the slowest reader are discarded. A reader that stops reading makes the
// journal grow until capacity, at which point emit panics with
// ErrJournalOverflow: undelivered events are never dropped silently.
type Journal struct {
	mu       sync.Mutex
	name     string
	events   []ComponentEvent
	base     uint64 // sequence number of events[0]
	readers  map[ReaderID]uint64
	nextID   ReaderID
	capacity int
}

func newJournal(name string, capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &Journal{
		name:     name,
		events:   make([]ComponentEvent, 0, 64),
		readers:  make(map[ReaderID]uint64, 4),
		capacity: capacity,
	}
}

// RegisterReader returns a new cursor positioned at "now".
func (j *Journal) RegisterReader() ReaderID {
	j.mu.Lock()
	defer j.mu.Unlock()
	id := j.nextID
	j.nextID++
	j.readers[id] = j.head()
	return id
}

// ReleaseReader detaches a cursor so it no longer pins old events.
func (j *Journal) ReleaseReader(id ReaderID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.readers, id)
	j.trim(true)
}

// Read returns and consumes every event emitted since the reader's last
// Read. Other readers are unaffected.
func (j *Journal) Read(id ReaderID) []ComponentEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	cursor, ok := j.readers[id]
	if !ok {
		panic(fmt.Sprintf("ecs: %s journal: read with unregistered reader %d", j.name, id))
	}
	start := int(cursor - j.base)
	if start >= len(j.events) {
		return nil
	}
	out := slices.Clone(j.events[start:])
	j.readers[id] = j.head()
	j.trim(false)
	return out
}

// Len returns the number of retained events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.events)
}

func (j *Journal) emit(ev ComponentEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.readers) == 0 {
		j.base++
		return
	}
	if len(j.events) >= j.capacity {
		j.trim(true)
		if len(j.events) >= j.capacity {
			panic(fmt.Errorf("%w: %s journal holds %d events undelivered to reader %d",
				ErrJournalOverflow, j.name, len(j.events), j.slowest()))
		}
	}
	j.events = append(j.events, ev)
}

func (j *Journal) head() uint64 {
	return j.base + uint64(len(j.events))
}

func (j *Journal) slowest() ReaderID {
	var (
		id  ReaderID
		lowest = j.head()
	)
	for rid, cursor := range j.readers {
		if cursor <= lowest {
			id, lowest = rid, cursor
		}
	}
	return id
}

// trim discards events every reader has consumed. Unless force is set the
// backing array is only compacted once at least half of it is dead.
func (j *Journal) trim(force bool) {
	if len(j.readers) == 0 {
		j.base = j.head()
		j.events = j.events[:0]
		return
	}
	lowest := j.head()
	for _, cursor := range j.readers {
		if cursor < lowest {
			lowest = cursor
		}
	}
	drop := int(lowest - j.base)
	switch {
	case drop == 0:
		return
	case drop == len(j.events):
		j.events = j.events[:0]
	case force || drop*2 >= len(j.events):
		n := copy(j.events, j.events[drop:])
		clear(j.events[n:])
		j.events = j.events[:n]
	default:
		return
	}
	j.base = lowest
}
