package system

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownDependency = errors.New("system: unknown dependency")
	ErrDuplicateSystem   = errors.New("system: duplicate system name")
	ErrReentrantDispatch = errors.New("system: dispatch already in flight")
)

// PanicError wraps a panic raised inside a system running on a worker.
type PanicError struct {
	System string
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("system %s panicked: %v", e.System, e.Value)
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

type node struct {
	sys     System
	deps    []string
	segment int
	batch   int
}

// Builder assembles the stage graph. Systems added between two barriers form
// a segment; within a segment a system lands in the earliest batch after its
// dependencies and after every earlier-added system it conflicts with.
// Thread-local systems run last, in order, on the dispatching goroutine.
type Builder struct {
	segments [][]*node
	local    []System
	names    map[string]*node
	observer Observer
	workers  int
	err      error
}

func NewBuilder() *Builder {
	return &Builder{
		segments: [][]*node{nil},
		names:    make(map[string]*node),
	}
}

// With adds a parallel system that runs after the named systems.
func (b *Builder) With(s System, deps ...string) *Builder {
	if !b.claim(s.Name()) {
		return b
	}
	seg := len(b.segments) - 1
	n := &node{sys: s, deps: deps, segment: seg}
	for _, d := range deps {
		dn, ok := b.names[d]
		if !ok {
			b.fail(fmt.Errorf("%w: %s depends on %q", ErrUnknownDependency, s.Name(), d))
			return b
		}
		if dn.segment == seg && dn.batch >= n.batch {
			n.batch = dn.batch + 1
		}
	}
	for _, other := range b.segments[seg] {
		if other.batch >= n.batch && other.sys.Access().conflicts(s.Access()) {
			n.batch = other.batch + 1
		}
	}
	b.segments[seg] = append(b.segments[seg], n)
	b.names[s.Name()] = n
	return b
}

// WithBarrier makes every system added so far complete before any later one starts.
func (b *Builder) WithBarrier() *Builder {
	if len(b.segments[len(b.segments)-1]) > 0 {
		b.segments = append(b.segments, nil)
	}
	return b
}

// WithThreadLocal adds a system to the single-threaded tail of the graph.
func (b *Builder) WithThreadLocal(s System) *Builder {
	if b.claim(s.Name()) {
		b.local = append(b.local, s)
		b.names[s.Name()] = &node{sys: s, segment: -1}
	}
	return b
}

// WithObserver installs hooks called around every system run.
func (b *Builder) WithObserver(o Observer) *Builder {
	b.observer = o
	return b
}

// WithWorkers caps the number of systems a batch runs concurrently. Zero
// means one goroutine per system.
func (b *Builder) WithWorkers(n int) *Builder {
	b.workers = n
	return b
}

func (b *Builder) Build() (*Dispatcher, error) {
	if b.err != nil {
		return nil, b.err
	}
	d := &Dispatcher{
		local:    b.local,
		observer: b.observer,
		workers:  b.workers,
	}
	for seg, nodes := range b.segments {
		var batches [][]System
		for _, n := range nodes {
			for len(batches) <= n.batch {
				batches = append(batches, nil)
			}
			batches[n.batch] = append(batches[n.batch], n.sys)
		}
		for _, systems := range batches {
			d.stages = append(d.stages, stage{segment: seg, systems: systems})
		}
	}
	return d, nil
}

func (b *Builder) claim(name string) bool {
	if b.err != nil {
		return false
	}
	if _, dup := b.names[name]; dup {
		b.fail(fmt.Errorf("%w: %q", ErrDuplicateSystem, name))
		return false
	}
	return true
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

type stage struct {
	segment int
	systems []System
}

// Dispatcher runs the built graph. Dispatch blocks until every stage has
// completed; it never skips or reorders stages.
type Dispatcher struct {
	stages   []stage
	local    []System
	observer Observer
	workers  int
	running  atomic.Bool
}

// Dispatch runs one frame. Calling it while a dispatch is in flight panics
// with ErrReentrantDispatch. A panic in a parallel system is re-raised here
// as a *PanicError.
func (d *Dispatcher) Dispatch(dt time.Duration) {
	if !d.running.CompareAndSwap(false, true) {
		panic(ErrReentrantDispatch)
	}
	defer d.running.Store(false)

	for _, st := range d.stages {
		d.runStage(st.systems, dt)
	}
	for _, s := range d.local {
		d.runOne(s, dt)
	}
}

func (d *Dispatcher) runStage(systems []System, dt time.Duration) {
	if len(systems) == 1 {
		d.runOne(systems[0], dt)
		return
	}
	var g errgroup.Group
	if d.workers > 0 {
		g.SetLimit(d.workers)
	}
	for _, s := range systems {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{System: s.Name(), Value: r}
				}
			}()
			d.runOne(s, dt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}
}

func (d *Dispatcher) runOne(s System, dt time.Duration) {
	if d.observer != nil {
		d.observer.SystemStarted(s.Name(), time.Now())
		defer func() { d.observer.SystemFinished(s.Name(), time.Now()) }()
	}
	s.Run(dt)
}

// Stages returns the system names of each parallel batch, in run order,
// followed by the thread-local tail as a final entry.
func (d *Dispatcher) Stages() [][]string {
	out := make([][]string, 0, len(d.stages)+1)
	for _, st := range d.stages {
		names := make([]string, len(st.systems))
		for i, s := range st.systems {
			names[i] = s.Name()
		}
		out = append(out, names)
	}
	if len(d.local) > 0 {
		names := make([]string, len(d.local))
		for i, s := range d.local {
			names[i] = s.Name()
		}
		out = append(out, names)
	}
	return out
}

// String renders the graph, e.g. "[a b] > [c] | [d] > local[render]".
func (d *Dispatcher) String() string {
	var sb strings.Builder
	for i, st := range d.stages {
		if i > 0 {
			if d.stages[i-1].segment != st.segment {
				sb.WriteString(" | ")
			} else {
				sb.WriteString(" > ")
			}
		}
		sb.WriteString("[")
		for j, s := range st.systems {
			if j > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(s.Name())
		}
		sb.WriteString("]")
	}
	if len(d.local) > 0 {
		sb.WriteString(" > local[")
		for j, s := range d.local {
			if j > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(s.Name())
		}
		sb.WriteString("]")
	}
	return sb.String()
}
