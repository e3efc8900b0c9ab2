// Package data loads scene descriptions from YAML.
package data

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateName = errors.New("duplicate entity name")
	ErrInvalidScene  = errors.New("invalid scene")
)

// Vec3 is a YAML sequence of three numbers.
type Vec3 [3]float32

type TransformDesc struct {
	Position Vec3  `yaml:"position"`
	Rotation Vec3  `yaml:"rotation"` // Euler radians
	Scale    *Vec3 `yaml:"scale"`    // nil means 1,1,1
}

func (t TransformDesc) ScaleOrOne() Vec3 {
	if t.Scale == nil {
		return Vec3{1, 1, 1}
	}
	return *t.Scale
}

type RigidBodyDesc struct {
	Status          string   `yaml:"status"` // dynamic (default), static, kinematic
	Mass            float32  `yaml:"mass"`
	Gravity         *bool    `yaml:"gravity"`
	Velocity        Vec3     `yaml:"velocity"`
	AngularVelocity Vec3     `yaml:"angular_velocity"`
	SleepThreshold  *float32 `yaml:"sleep_threshold"`
	LockTranslation [3]bool  `yaml:"lock_translation"`
	LockRotation    [3]bool  `yaml:"lock_rotation"`
}

type ColliderDesc struct {
	Box         *Vec3    `yaml:"box"`  // full edge lengths
	Ball        *float32 `yaml:"ball"` // radius
	Restitution *float32 `yaml:"restitution"`
	Friction    *float32 `yaml:"friction"`
}

type MaterialDesc struct {
	DiffuseTexture  string  `yaml:"diffuse_texture"`
	SpecularTexture string  `yaml:"specular_texture"`
	NormalTexture   string  `yaml:"normal_texture"`
	Color           *Vec3   `yaml:"color"`
	Specular        *Vec3   `yaml:"specular"`
	Shininess       float32 `yaml:"shininess"`
}

type ModelDesc struct {
	Path     string       `yaml:"path"`
	Material MaterialDesc `yaml:"material"`
}

type PointLightDesc struct {
	Color     Vec3    `yaml:"color"`
	Range     float32 `yaml:"range"`
	Intensity float32 `yaml:"intensity"`
}

type OutlineDesc struct {
	Scale float32 `yaml:"scale"` // 0 uses the configured default
	Color Vec3    `yaml:"color"`
}

// EffectDesc is one post-processing stage. Kind "kernel" takes either a
// named Preset (sharpen, edge) or explicit Weights; kind "gaussian" takes
// Size and Sigma.
type EffectDesc struct {
	Kind    string    `yaml:"kind"`
	Preset  string    `yaml:"preset"`
	Weights []float32 `yaml:"weights"`
	Size    int       `yaml:"size"`
	Sigma   float64   `yaml:"sigma"`
}

type BackgroundDesc struct {
	Color  Vec3     `yaml:"color"`
	Skybox []string `yaml:"skybox"` // +X -X +Y -Y +Z -Z
}

type CameraDesc struct {
	Projection string         `yaml:"projection"` // perspective (default) or orthographic
	FovY       float32        `yaml:"fov_y"`      // degrees
	Size       float32        `yaml:"size"`       // orthographic half-height
	Near       float32        `yaml:"near"`
	Far        float32        `yaml:"far"`
	Background BackgroundDesc `yaml:"background"`
	Effects    []EffectDesc   `yaml:"effects"`
}

// EntityDesc describes one entity. Every component is optional.
type EntityDesc struct {
	Name       string          `yaml:"name"`
	Transform  *TransformDesc  `yaml:"transform"`
	RigidBody  *RigidBodyDesc  `yaml:"rigidbody"`
	Collider   *ColliderDesc   `yaml:"collider"`
	Model      *ModelDesc      `yaml:"model"`
	PointLight *PointLightDesc `yaml:"point_light"`
	Outline    *OutlineDesc    `yaml:"outline"`
	Camera     *CameraDesc     `yaml:"camera"`
	Input      bool            `yaml:"input"`
}

type Scene struct {
	Name         string       `yaml:"name"`
	ActiveCamera string       `yaml:"active_camera"`
	Entities     []EntityDesc `yaml:"entities"`
}

// LoadScene reads and validates a scene file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	s, err := ParseScene(raw)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

func ParseScene(raw []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Find returns the entity named name, or nil.
func (s *Scene) Find(name string) *EntityDesc {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i]
		}
	}
	return nil
}

func (s *Scene) validate() error {
	seen := make(map[string]bool, len(s.Entities))
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.Name != "" {
			if seen[e.Name] {
				return fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
			}
			seen[e.Name] = true
		}
		if err := e.validate(); err != nil {
			return fmt.Errorf("entity %d (%s): %w", i, e.Name, err)
		}
	}
	if s.ActiveCamera != "" {
		cam := s.Find(s.ActiveCamera)
		if cam == nil || cam.Camera == nil {
			return fmt.Errorf("%w: active camera %q is not a camera entity", ErrInvalidScene, s.ActiveCamera)
		}
	}
	return nil
}

func (e *EntityDesc) validate() error {
	if rb := e.RigidBody; rb != nil {
		switch strings.ToLower(rb.Status) {
		case "", "dynamic", "static", "kinematic":
		default:
			return fmt.Errorf("%w: body status %q", ErrInvalidScene, rb.Status)
		}
		if rb.Mass < 0 {
			return fmt.Errorf("%w: negative mass", ErrInvalidScene)
		}
	}
	if c := e.Collider; c != nil {
		if (c.Box == nil) == (c.Ball == nil) {
			return fmt.Errorf("%w: collider needs exactly one of box or ball", ErrInvalidScene)
		}
		if c.Ball != nil && *c.Ball <= 0 {
			return fmt.Errorf("%w: ball radius %v", ErrInvalidScene, *c.Ball)
		}
	}
	if m := e.Model; m != nil && m.Path == "" {
		return fmt.Errorf("%w: model without path", ErrInvalidScene)
	}
	if c := e.Camera; c != nil {
		switch strings.ToLower(c.Projection) {
		case "", "perspective", "orthographic":
		default:
			return fmt.Errorf("%w: projection %q", ErrInvalidScene, c.Projection)
		}
		if n := len(c.Background.Skybox); n != 0 && n != 6 {
			return fmt.Errorf("%w: skybox needs 6 faces, got %d", ErrInvalidScene, n)
		}
		for _, fx := range c.Effects {
			switch fx.Kind {
			case "kernel":
				if fx.Preset == "" && len(fx.Weights) == 0 {
					return fmt.Errorf("%w: kernel effect without preset or weights", ErrInvalidScene)
				}
			case "gaussian":
			default:
				return fmt.Errorf("%w: effect kind %q", ErrInvalidScene, fx.Kind)
			}
		}
	}
	return nil
}
