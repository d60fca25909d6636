package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = float32(1.0e-5)

func assertVec3Equal(t *testing.T, expected, actual Vec3) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, float64(tolerance))
	assert.InDelta(t, expected.Y, actual.Y, float64(tolerance))
	assert.InDelta(t, expected.Z, actual.Z, float64(tolerance))
}

func assertVec4Equal(t *testing.T, expected, actual Vec4) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, float64(tolerance))
	assert.InDelta(t, expected.Y, actual.Y, float64(tolerance))
	assert.InDelta(t, expected.Z, actual.Z, float64(tolerance))
	assert.InDelta(t, expected.W, actual.W, float64(tolerance))
}

func assertMat4Equal(t *testing.T, expected, actual Mat4) {
	t.Helper()
	for i := 0; i < 16; i++ {
		assert.InDelta(t, expected.Data[i], actual.Data[i], float64(tolerance), "element %d", i)
	}
}

func TestVec3Operations(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, 5, 6)

	assert.Equal(t, NewVec3(5, 7, 9), a.Add(b))
	assert.Equal(t, NewVec3(-3, -3, -3), a.Sub(b))
	assert.Equal(t, NewVec3(4, 10, 18), a.Mul(b))
	assert.Equal(t, NewVec3(2, 4, 6), a.MulScalar(2))
	assert.InDelta(t, 32, a.Dot(b), float64(tolerance))

	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	assertVec3Equal(t, NewVec3(0, 0, 1), x.Cross(y))
	assertVec3Equal(t, NewVec3(0, 0, -1), y.Cross(x))

	assert.InDelta(t, 1.0, NewVec3(3, 0, 4).Normalized().Length(), float64(tolerance))
	assert.True(t, a.Compare(NewVec3(1.000001, 2, 3), 0.001))
	assert.False(t, a.Compare(NewVec3(1.1, 2, 3), 0.001))
}

func TestVec4Conversions(t *testing.T) {
	v := NewVec3(1, 2, 3).ToVec4(4)
	assert.Equal(t, NewVec4(1, 2, 3, 4), v)
	assert.Equal(t, NewVec3(1, 2, 3), v.ToVec3())
	assert.InDelta(t, 20, v.Dot(NewVec4(4, 3, 2, 1)), float64(tolerance))
}

func TestBox3(t *testing.T) {
	box := Box3{Min: NewVec3(-1, -2, -3), Max: NewVec3(1, 2, 3)}
	assertVec3Equal(t, NewVec3Zero(), box.Center())
	assertVec3Equal(t, NewVec3(2, 4, 6), box.Diagonal())
}

func TestMat4IdentityIsNeutral(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3)).Mul(NewMat4EulerY(0.7))

	assertMat4Equal(t, m, NewMat4Identity().Mul(m))
	assertMat4Equal(t, m, m.Mul(NewMat4Identity()))
	assertVec4Equal(t, NewVec4(5, 6, 7, 1), NewMat4Identity().MulVec4(NewVec4(5, 6, 7, 1)))
}

func TestMat4TranslationMovesPoints(t *testing.T) {
	m := NewMat4Translation(NewVec3(10, 20, 30))

	// Points carry w=1 and pick up the translation, directions with w=0
	// pass through untouched.
	assertVec4Equal(t, NewVec4(11, 22, 33, 1), m.MulVec4(NewVec4(1, 2, 3, 1)))
	assertVec4Equal(t, NewVec4(1, 2, 3, 0), m.MulVec4(NewVec4(1, 2, 3, 0)))
}

func TestMat4MulAppliesRightmostFirst(t *testing.T) {
	translate := NewMat4Translation(NewVec3(1, 0, 0))
	scale := NewMat4Scale(NewVec3(2, 2, 2))

	// translate * scale scales first, then translates.
	result := translate.Mul(scale).MulVec4(NewVec4(1, 1, 1, 1))
	assertVec4Equal(t, NewVec4(3, 2, 2, 1), result)

	// scale * translate translates first, then scales.
	result = scale.Mul(translate).MulVec4(NewVec4(1, 1, 1, 1))
	assertVec4Equal(t, NewVec4(4, 2, 2, 1), result)
}

func TestMat4EulerRotations(t *testing.T) {
	halfPi := K_HALF_PI

	// Yaw rotates about Y: +Z ends up on +X.
	yaw := NewMat4EulerY(halfPi)
	assertVec4Equal(t, NewVec4(1, 0, 0, 0), yaw.MulVec4(NewVec4(0, 0, 1, 0)))

	// Pitch rotates about X: +Y ends up on +Z.
	pitch := NewMat4EulerX(halfPi)
	assertVec4Equal(t, NewVec4(0, 0, 1, 0), pitch.MulVec4(NewVec4(0, 1, 0, 0)))

	// Roll rotates about Z: +X ends up on +Y.
	roll := NewMat4EulerZ(halfPi)
	assertVec4Equal(t, NewVec4(0, 1, 0, 0), roll.MulVec4(NewVec4(1, 0, 0, 0)))

	combined := NewMat4EulerYawPitchRoll(0.3, 0.5, 0.7)
	manual := NewMat4EulerY(0.3).Mul(NewMat4EulerX(0.5)).Mul(NewMat4EulerZ(0.7))
	assertMat4Equal(t, manual, combined)
}

func TestMat4RotationAxisAngleMatchesEuler(t *testing.T) {
	angle := float32(0.9)

	assertMat4Equal(t, NewMat4EulerX(angle), NewMat4RotationAxisAngle(NewVec3(1, 0, 0), angle))
	assertMat4Equal(t, NewMat4EulerY(angle), NewMat4RotationAxisAngle(NewVec3(0, 1, 0), angle))
	assertMat4Equal(t, NewMat4EulerZ(angle), NewMat4RotationAxisAngle(NewVec3(0, 0, 1), angle))
}

func TestMat4Inverse(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3)).
		Mul(NewMat4EulerYawPitchRoll(0.3, 0.5, 0.7)).
		Mul(NewMat4Scale(NewVec3(2, 2, 2)))

	assertMat4Equal(t, NewMat4Identity(), m.Mul(m.Inverse()))
	assertMat4Equal(t, NewMat4Identity(), m.Inverse().Mul(m))
}

func TestMat4Transposed(t *testing.T) {
	m := Mat4{}
	for i := range m.Data {
		m.Data[i] = float32(i)
	}
	transposed := NewMat4Transposed(m)
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			assert.Equal(t, m.Data[col*4+row], transposed.Data[row*4+col])
		}
	}
}

func TestMat4PerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.1), float32(10.0)
	proj := NewMat4PerspectiveD3D(DegToRad(60), 16.0/9.0, near, far)

	// The near plane lands on depth 0 after the perspective divide, the
	// far plane on depth 1.
	nearClip := proj.MulVec4(NewVec4(0, 0, near, 1))
	assert.InDelta(t, 0.0, nearClip.Z/nearClip.W, float64(tolerance))

	farClip := proj.MulVec4(NewVec4(0, 0, far, 1))
	assert.InDelta(t, 1.0, farClip.Z/farClip.W, float64(tolerance))
}

func TestMat4OrthographicMapsCorners(t *testing.T) {
	proj := NewMat4Orthographic(-2, 2, -1, 1, 0, 10)

	low := proj.MulVec4(NewVec4(-2, -1, 0, 1))
	assertVec4Equal(t, NewVec4(-1, -1, 0, 1), low)

	high := proj.MulVec4(NewVec4(2, 1, 10, 1))
	assertVec4Equal(t, NewVec4(1, 1, 1, 1), high)
}

func TestDegRadConversion(t *testing.T) {
	assert.InDelta(t, K_PI, DegToRad(180), float64(tolerance))
	assert.InDelta(t, 180, RadToDeg(K_PI), float64(tolerance))
	assert.InDelta(t, 90, RadToDeg(DegToRad(90)), float64(tolerance))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(3, 5, 10))
	assert.Equal(t, 10, Clamp(12, 5, 10))
	assert.Equal(t, 7, Clamp(7, 5, 10))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0.0, 1.0))
}

func TestLerp(t *testing.T) {
	assert.InDelta(t, 5.0, Lerp(0.0, 10.0, 0.5), float64(tolerance))
	assert.InDelta(t, 0.0, Lerp(0.0, 10.0, 0.0), float64(tolerance))
	assert.InDelta(t, 10.0, Lerp(0.0, 10.0, 1.0), float64(tolerance))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, int64(256), AlignUp(int64(1), 256))
	assert.Equal(t, int64(256), AlignUp(int64(256), 256))
	assert.Equal(t, int64(512), AlignUp(int64(257), 256))
	assert.Equal(t, int64(0), AlignUp(int64(0), 256))
	assert.Equal(t, uint32(16), AlignUp(uint32(13), 16))
}
