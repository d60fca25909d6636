package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/**
 * @brief A 4x4 matrix of float32, typically used to represent object
 * transformations. Storage is column major: element (row, col) lives at
 * Data[col*4+row], which matches GLSL/WGSL uniform layout so matrices can
 * be copied to constant buffers without reordering.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief An axis-aligned box in 3D space, used for object space bounds.
 */
type Box3 struct {
	/** @brief The minimum corner of the box. */
	Min Vec3
	/** @brief The maximum corner of the box. */
	Max Vec3
}

// Center returns the midpoint of the box.
func (b Box3) Center() Vec3 {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Diagonal returns the extent of the box from Min to Max.
func (b Box3) Diagonal() Vec3 {
	return b.Max.Sub(b.Min)
}
