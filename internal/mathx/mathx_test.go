package mathx

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func apply(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

func TestModelMatrixOrder(t *testing.T) {
	m := ModelMatrix(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, Splat(2))

	if got := apply(m, mgl32.Vec3{}); !got.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Errorf("origin -> %v, want (1,0,0)", got)
	}
	if got := apply(m, mgl32.Vec3{1, 0, 0}); !got.ApproxEqual(mgl32.Vec3{3, 0, 0}) {
		t.Errorf("(1,0,0) -> %v, want (3,0,0)", got)
	}
}

func TestModelMatrixRotatesBeforeTranslating(t *testing.T) {
	m := ModelMatrix(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 0, math.Pi / 2}, Splat(1))
	got := apply(m, mgl32.Vec3{1, 0, 0})
	if !got.ApproxEqualThreshold(mgl32.Vec3{0, 6, 0}, 1e-5) {
		t.Errorf("got %v, want (0,6,0)", got)
	}
}

func TestEulerQuatRoundTrip(t *testing.T) {
	cases := []mgl32.Vec3{
		{},
		{0.3, 0, 0},
		{0, -0.7, 0},
		{0, 0, 2.5},
		{0.4, 0.2, -1.1},
	}
	for _, r := range cases {
		got := QuatToEuler(EulerToQuat(r))
		if !got.ApproxEqualThreshold(r, 1e-4) {
			t.Errorf("round trip %v -> %v", r, got)
		}
	}
}

func TestForward(t *testing.T) {
	if got := Forward(mgl32.Vec3{}); !got.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Errorf("Forward(0) = %v", got)
	}
	if got := Forward(mgl32.Vec3{math.Pi / 2, 0, 0}); !got.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-6) {
		t.Errorf("Forward(pitch up) = %v", got)
	}
}
