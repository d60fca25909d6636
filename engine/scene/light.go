package scene

import "github.com/torus-gfx/torus/engine/math"

// Light is a leaf that contributes illumination. Lighting passes
// switch on the concrete type.
type Light interface {
	Leaf
	isLight()
}

// DirectionalLight models a sun style light: parallel rays arriving
// from one direction.
type DirectionalLight struct {
	name string
	node *SceneGraphNode

	direction math.Vec3

	/** @brief Apparent angular size of the light disk in degrees. */
	AngularSize float32
	/** @brief Irradiance on a surface facing the light. */
	Irradiance float32
	Color      math.Vec3
}

// NewDirectionalLight returns a white light shining straight down.
func NewDirectionalLight() *DirectionalLight {
	return &DirectionalLight{
		direction:   math.NewVec3(0, -1, 0),
		AngularSize: 0.53,
		Irradiance:  1,
		Color:       math.NewVec3One(),
	}
}

// SetDirection stores the direction of propagation, normalized.
func (l *DirectionalLight) SetDirection(direction math.Vec3) {
	l.direction = direction.Normalized()
}

func (l *DirectionalLight) Direction() math.Vec3 { return l.direction }

func (l *DirectionalLight) Name() string { return l.name }

func (l *DirectionalLight) SetName(name string) {
	l.name = name
	if l.node != nil {
		l.node.SetName(name)
	}
}

func (l *DirectionalLight) attachNode(node *SceneGraphNode) { l.node = node }

func (l *DirectionalLight) isLight() {}
