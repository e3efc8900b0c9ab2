package system

import (
	"math"
	"reflect"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
	coresys "github.com/emberforge/engine/internal/core/system"
	"github.com/emberforge/engine/internal/input"
)

const NameInput = "input"

// maxPitch keeps mouse-look short of straight up or down.
const maxPitch = math.Pi/2 - 0.01

// InputSystem drains the input queue once per frame in arrival order and
// flies the active camera when it carries an InputTag: W/S forward and
// back, A/D strafe, Q/Z up and down, cursor motion turns it.
type InputSystem struct {
	queue       *input.Queue
	cache       *input.Cache
	transforms  *ecs.Store[component.Transform]
	tags        *ecs.Store[component.InputTag]
	active      *component.ActiveCamera
	speed       float32
	sensitivity float32
}

func NewInputSystem(
	queue *input.Queue,
	cache *input.Cache,
	transforms *ecs.Store[component.Transform],
	tags *ecs.Store[component.InputTag],
	active *component.ActiveCamera,
	speed, sensitivity float32,
) *InputSystem {
	return &InputSystem{
		queue:       queue,
		cache:       cache,
		transforms:  transforms,
		tags:        tags,
		active:      active,
		speed:       speed,
		sensitivity: sensitivity,
	}
}

func (s *InputSystem) Name() string { return NameInput }

func (s *InputSystem) Access() coresys.Access {
	return coresys.Access{
		Reads: []reflect.Type{coresys.Res[component.ActiveCamera](), coresys.Res[component.InputTag]()},
		Writes: []reflect.Type{
			coresys.Res[input.Queue](),
			coresys.Res[input.Cache](),
			coresys.Res[component.Transform](),
		},
	}
}

func (s *InputSystem) Run(_ time.Duration) {
	s.cache.BeginFrame()
	for _, ev := range s.queue.Drain() {
		s.cache.Apply(ev)
	}

	cam, ok := s.active.Get()
	if !ok || !s.tags.Has(cam) {
		return
	}
	cur, ok := s.transforms.Get(cam)
	if !ok {
		return
	}

	forward := cur.Forward()
	right := forward.Cross(mgl32.Vec3{0, 1, 0})
	var move mgl32.Vec3
	if s.cache.Pressed(input.KeyW) {
		move = move.Add(forward)
	}
	if s.cache.Pressed(input.KeyS) {
		move = move.Sub(forward)
	}
	if s.cache.Pressed(input.KeyD) {
		move = move.Add(right)
	}
	if s.cache.Pressed(input.KeyA) {
		move = move.Sub(right)
	}
	if s.cache.Pressed(input.KeyQ) {
		move[1]++
	}
	if s.cache.Pressed(input.KeyZ) {
		move[1]--
	}
	look := s.cache.CursorDelta().Mul(s.sensitivity)

	if move == (mgl32.Vec3{}) && look == (mgl32.Vec2{}) {
		return
	}
	tr, _ := s.transforms.GetMut(cam)
	tr.Position = tr.Position.Add(move.Mul(s.speed))
	if look != (mgl32.Vec2{}) {
		tr.Rotation[1] += look.X()
		tr.Rotation[0] = mgl32.Clamp(tr.Rotation[0]-look.Y(), -maxPitch, maxPitch)
	}
}
