package system

import (
	"reflect"
	"slices"
	"time"
)

// System is the interface every frame system implements. Run executes to
// completion; systems never block on each other.
type System interface {
	Name() string
	Access() Access
	Run(dt time.Duration)
}

// Access declares the component stores and resources a system reads and
// writes. The scheduler never places two conflicting systems in one batch.
type Access struct {
	Reads  []reflect.Type
	Writes []reflect.Type
}

// Res returns the access key for a store or resource type.
func Res[T any]() reflect.Type { return reflect.TypeFor[T]() }

func (a Access) conflicts(b Access) bool {
	for _, w := range a.Writes {
		if slices.Contains(b.Writes, w) || slices.Contains(b.Reads, w) {
			return true
		}
	}
	for _, w := range b.Writes {
		if slices.Contains(a.Reads, w) {
			return true
		}
	}
	return false
}

// Func adapts a plain function to System.
type Func struct {
	Label string
	Acc   Access
	Fn    func(dt time.Duration)
}

func (f Func) Name() string         { return f.Label }
func (f Func) Access() Access       { return f.Acc }
func (f Func) Run(dt time.Duration) { f.Fn(dt) }
