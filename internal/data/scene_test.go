package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const demoScene = `
name: demo
active_camera: camera
entities:
  - name: camera
    transform: {position: [-8, 2, 0]}
    input: true
    camera:
      fov_y: 45
      near: 0.1
      far: 100
      background: {color: [0.1, 0.1, 0.15]}
      effects:
        - {kind: kernel, preset: sharpen}
        - {kind: gaussian, size: 9, sigma: 2}
  - name: ground
    transform: {position: [0, -1, 0], scale: [20, 0.2, 20]}
    collider: {box: [20, 0.2, 20], friction: 0.8}
    model: {path: "builtin:cube"}
  - name: crate
    transform: {position: [0, 4, 0], rotation: [0, 0.5, 0]}
    rigidbody: {mass: 2, lock_rotation: [true, false, true]}
    collider: {ball: 0.5}
    model:
      path: "builtin:cube"
      material: {color: [0.8, 0.2, 0.2], shininess: 64}
    outline: {color: [1, 1, 0]}
  - name: lamp
    transform: {position: [0, 5, 5]}
    point_light: {color: [1, 1, 1], range: 20, intensity: 1.5}
`

func TestLoadScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(demoScene), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScene(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "demo" || len(s.Entities) != 4 {
		t.Fatalf("scene = %s with %d entities", s.Name, len(s.Entities))
	}

	cam := s.Find("camera")
	if cam == nil || cam.Camera == nil || !cam.Input {
		t.Fatal("camera entity incomplete")
	}
	if len(cam.Camera.Effects) != 2 || cam.Camera.Effects[1].Size != 9 {
		t.Errorf("effects = %+v", cam.Camera.Effects)
	}
	if got := cam.Transform.ScaleOrOne(); got != (Vec3{1, 1, 1}) {
		t.Errorf("default scale = %v", got)
	}

	crate := s.Find("crate")
	if crate.RigidBody.Mass != 2 || crate.RigidBody.Gravity != nil {
		t.Errorf("rigidbody = %+v", crate.RigidBody)
	}
	if crate.RigidBody.LockRotation != [3]bool{true, false, true} {
		t.Errorf("rotation locks = %v", crate.RigidBody.LockRotation)
	}
	if crate.Collider.Ball == nil || *crate.Collider.Ball != 0.5 {
		t.Errorf("collider = %+v", crate.Collider)
	}
	if crate.Model.Material.Shininess != 64 || *crate.Model.Material.Color != (Vec3{0.8, 0.2, 0.2}) {
		t.Errorf("material = %+v", crate.Model.Material)
	}
	if crate.Outline == nil || crate.Outline.Scale != 0 {
		t.Errorf("outline = %+v", crate.Outline)
	}

	if ground := s.Find("ground"); *ground.Transform.Scale != (Vec3{20, 0.2, 20}) {
		t.Errorf("ground scale = %v", *ground.Transform.Scale)
	}
	if s.Find("nobody") != nil {
		t.Error("Find invented an entity")
	}
}

func TestLoadSceneMissingFile(t *testing.T) {
	if _, err := LoadScene(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParseSceneRejects(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"duplicate name", `
entities:
  - {name: a}
  - {name: a}`, ErrDuplicateName},
		{"two shapes", `
entities:
  - {name: a, collider: {box: [1, 1, 1], ball: 1}}`, ErrInvalidScene},
		{"no shape", `
entities:
  - {name: a, collider: {friction: 1}}`, ErrInvalidScene},
		{"bad status", `
entities:
  - {name: a, rigidbody: {status: floating}}`, ErrInvalidScene},
		{"active camera without camera", `
active_camera: a
entities:
  - {name: a}`, ErrInvalidScene},
		{"bad effect", `
entities:
  - {name: a, camera: {effects: [{kind: bloom}]}}`, ErrInvalidScene},
		{"five skybox faces", `
entities:
  - {name: a, camera: {background: {skybox: [a, b, c, d, e]}}}`, ErrInvalidScene},
		{"model without path", `
entities:
  - {name: a, model: {material: {shininess: 2}}}`, ErrInvalidScene},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScene([]byte(tc.src))
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseSceneSyntaxError(t *testing.T) {
	if _, err := ParseScene([]byte("entities: [")); err == nil {
		t.Fatal("expected a parse error")
	}
}
