package system

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type transformStore struct{}
type bodyStore struct{}
type physicsWorld struct{}

func fn(name string, acc Access, run func()) Func {
	return Func{Label: name, Acc: acc, Fn: func(time.Duration) { run() }}
}

func writes(ts ...reflect.Type) Access { return Access{Writes: ts} }

func TestBatchesSeparateConflictingWriters(t *testing.T) {
	noop := func() {}
	d, err := NewBuilder().
		With(fn("a", writes(Res[transformStore]()), noop)).
		With(fn("b", writes(Res[bodyStore]()), noop)).
		With(fn("c", writes(Res[transformStore]()), noop)).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	stages := d.Stages()
	if len(stages) != 2 {
		t.Fatalf("stages = %v, want two batches", stages)
	}
	if len(stages[0]) != 2 || stages[1][0] != "c" {
		t.Errorf("stages = %v, want [[a b] [c]]", stages)
	}
}

func TestReadWriteConflict(t *testing.T) {
	noop := func() {}
	d, err := NewBuilder().
		With(fn("writer", writes(Res[transformStore]()), noop)).
		With(fn("reader", Access{Reads: []reflect.Type{Res[transformStore]()}}, noop)).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if got := len(d.Stages()); got != 2 {
		t.Errorf("reader shares a batch with writer: %v", d.Stages())
	}
}

func TestUnknownDependency(t *testing.T) {
	_, err := NewBuilder().
		With(fn("a", Access{}, func() {}), "missing").
		Build()
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("err = %v, want ErrUnknownDependency", err)
	}
}

func TestDuplicateName(t *testing.T) {
	_, err := NewBuilder().
		With(fn("a", Access{}, func() {})).
		WithThreadLocal(fn("a", Access{}, func() {})).
		Build()
	if !errors.Is(err, ErrDuplicateSystem) {
		t.Fatalf("err = %v, want ErrDuplicateSystem", err)
	}
}

// The frame pipeline must run strictly in order with nothing interleaving
// across the barrier.
func TestPipelineOrdering(t *testing.T) {
	tl := NewTimeline()
	phys := writes(Res[physicsWorld]())
	sleep := func() { time.Sleep(time.Millisecond) }

	var rendered atomic.Bool
	d, err := NewBuilder().
		WithObserver(tl).
		With(fn("sync_to", Access{Reads: []reflect.Type{Res[transformStore]()}, Writes: []reflect.Type{Res[physicsWorld]()}}, sleep)).
		With(fn("step", phys, sleep), "sync_to").
		With(fn("sync_from", Access{Reads: []reflect.Type{Res[physicsWorld]()}, Writes: []reflect.Type{Res[transformStore]()}}, sleep), "step").
		With(fn("unrelated", Access{}, sleep)).
		WithBarrier().
		With(fn("transform", writes(Res[transformStore]()), sleep)).
		WithThreadLocal(fn("render", Access{}, func() { rendered.Store(true) })).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	d.Dispatch(16 * time.Millisecond)

	order := []string{"sync_to", "step", "sync_from", "transform", "render"}
	for i := 1; i < len(order); i++ {
		prev, ok1 := tl.Span(order[i-1])
		next, ok2 := tl.Span(order[i])
		if !ok1 || !ok2 {
			t.Fatalf("missing span for %s or %s", order[i-1], order[i])
		}
		if next.Start.Before(prev.End) {
			t.Errorf("%s started before %s finished", order[i], order[i-1])
		}
	}
	unrelated, _ := tl.Span("unrelated")
	transform, _ := tl.Span("transform")
	if transform.Start.Before(unrelated.End) {
		t.Error("transform started before the barrier released")
	}
	if !rendered.Load() {
		t.Error("render did not run during Dispatch")
	}
}

func TestParallelBatchRunsConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	meet := func() {
		wg.Done()
		wg.Wait() // deadlocks unless both run at once
	}
	d, err := NewBuilder().
		With(fn("left", writes(Res[transformStore]()), meet)).
		With(fn("right", writes(Res[bodyStore]()), meet)).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		d.Dispatch(0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("disjoint systems did not run concurrently")
	}
}

func TestPanicInWorkerIsReraised(t *testing.T) {
	boom := errors.New("boom")
	d, err := NewBuilder().
		With(fn("ok", writes(Res[bodyStore]()), func() {})).
		With(fn("bad", writes(Res[transformStore]()), func() { panic(boom) })).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		r := recover()
		pe, ok := r.(*PanicError)
		if !ok {
			t.Fatalf("recovered %T, want *PanicError", r)
		}
		if pe.System != "bad" || !errors.Is(pe, boom) {
			t.Errorf("PanicError = %v", pe)
		}
	}()
	d.Dispatch(0)
}

func TestReentrantDispatchPanics(t *testing.T) {
	var d *Dispatcher
	var got any
	b := NewBuilder().With(fn("nested", Access{}, func() {
		defer func() { got = recover() }()
		d.Dispatch(0)
	}))
	d, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	d.Dispatch(0)
	if got != ErrReentrantDispatch {
		t.Errorf("nested dispatch recovered %v, want ErrReentrantDispatch", got)
	}
	d.Dispatch(0) // flag cleared after the outer dispatch
}

func TestString(t *testing.T) {
	noop := func() {}
	d, _ := NewBuilder().
		With(fn("a", Access{}, noop)).
		WithBarrier().
		With(fn("b", Access{}, noop)).
		WithThreadLocal(fn("r", Access{}, noop)).
		Build()
	if got, want := d.String(), "[a] | [b] > local[r]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
