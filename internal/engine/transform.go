package engine

import "math"

// Transform holds an element's local position, scale and rotation along
// with a lazily recomputed affine matrix. The matrix is always derivable
// from (position, scale, rotation) and vice versa; every setter marks it
// stale and Matrix rebuilds it on demand.
//
// Matrix build order is scale → rotate → translate.
type Transform struct {
	x, y        float64
	scaleX      float64
	scaleY      float64
	rotation    float64 // degrees in [0, 360)
	matrix      Matrix2D
	matrixDirty bool
}

// NewTransform returns an identity transform at the origin.
func NewTransform() *Transform {
	return &Transform{scaleX: 1, scaleY: 1, matrix: Identity()}
}

// Position returns the local position.
func (t *Transform) Position() (x, y float64) {
	return t.x, t.y
}

// SetPosition sets the local position.
func (t *Transform) SetPosition(x, y float64) {
	t.x = x
	t.y = y
	t.matrixDirty = true
}

// Translate offsets the local position.
func (t *Transform) Translate(dx, dy float64) {
	t.x += dx
	t.y += dy
	t.matrixDirty = true
}

// Scale returns the scale factors.
func (t *Transform) Scale() (sx, sy float64) {
	return t.scaleX, t.scaleY
}

// SetScale sets the scale factors.
func (t *Transform) SetScale(sx, sy float64) {
	t.scaleX = sx
	t.scaleY = sy
	t.matrixDirty = true
}

// ScaleBy multiplies the current scale factors.
func (t *Transform) ScaleBy(sx, sy float64) {
	t.scaleX *= sx
	t.scaleY *= sy
	t.matrixDirty = true
}

// Rotation returns the rotation in degrees, normalized to [0, 360).
func (t *Transform) Rotation() float64 {
	return t.rotation
}

// SetRotation sets the rotation in degrees. The value is normalized to
// [0, 360).
func (t *Transform) SetRotation(degrees float64) {
	t.rotation = normalizeDegrees(degrees)
	t.matrixDirty = true
}

// Rotate adds to the rotation in degrees.
func (t *Transform) Rotate(degrees float64) {
	t.SetRotation(t.rotation + degrees)
}

// Matrix returns the affine matrix for this transform, rebuilding it if a
// setter has run since the last call.
func (t *Transform) Matrix() Matrix2D {
	if t.matrixDirty {
		t.matrix = t.buildMatrix()
		t.matrixDirty = false
	}
	return t.matrix
}

func (t *Transform) buildMatrix() Matrix2D {
	sin, cos := math.Sincos(t.rotation * math.Pi / 180.0)
	return Matrix2D{
		cos * t.scaleX,
		sin * t.scaleX,
		-sin * t.scaleY,
		cos * t.scaleY,
		t.x,
		t.y,
	}
}

// SetMatrix decomposes an affine matrix back into position, scale and
// rotation. Decomposition uses atan2 for the angle and the column norms
// for scale; the second scale factor is recovered from the determinant so
// negative (mirrored) scales survive the round trip.
func (t *Transform) SetMatrix(m Matrix2D) {
	t.x = m[4]
	t.y = m[5]

	sx := math.Sqrt(m[0]*m[0] + m[1]*m[1])
	if sx < matrixEpsilon {
		t.scaleX = 0
		t.scaleY = math.Sqrt(m[2]*m[2] + m[3]*m[3])
		t.rotation = 0
	} else {
		t.scaleX = sx
		t.scaleY = m.Determinant() / sx
		t.rotation = normalizeDegrees(math.Atan2(m[1], m[0]) * 180.0 / math.Pi)
	}

	t.matrix = m
	t.matrixDirty = false
}

// TransformPoint applies the transform's matrix to a point.
func (t *Transform) TransformPoint(x, y float64) (float64, float64) {
	return t.Matrix().TransformPoint(x, y)
}

// InverseTransformPoint undoes the transform's mapping of a point. If the
// matrix is singular (determinant magnitude below epsilon) it fails
// closed and returns the origin rather than producing NaNs.
func (t *Transform) InverseTransformPoint(x, y float64) (float64, float64) {
	m := t.Matrix()
	if m.IsSingular() {
		return 0, 0
	}
	return m.Invert().TransformPoint(x, y)
}

// TransformBounds maps the four corners of a rectangle and returns their
// axis-aligned bounding box.
func (t *Transform) TransformBounds(r Rect) Rect {
	return t.Matrix().TransformRect(r)
}

// Clone returns an independent copy of the transform.
func (t *Transform) Clone() *Transform {
	c := *t
	return &c
}

// MultiplyTransforms composes parent and child into a new Transform
// representing child-in-parent-space.
func MultiplyTransforms(parent, child *Transform) *Transform {
	out := NewTransform()
	out.SetMatrix(parent.Matrix().Multiply(child.Matrix()))
	return out
}

// InterpolateTransforms linearly blends position, scale and rotation
// between two transforms. This is a component-wise blend, not true matrix
// interpolation — fine for animation previews, wrong for skewed matrices.
func InterpolateTransforms(from, to *Transform, t float64) *Transform {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	out := NewTransform()
	out.SetPosition(lerp(from.x, to.x, t), lerp(from.y, to.y, t))
	out.SetScale(lerp(from.scaleX, to.scaleX, t), lerp(from.scaleY, to.scaleY, t))
	out.SetRotation(lerp(from.rotation, to.rotation, t))
	return out
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// normalizeDegrees wraps an angle into [0, 360).
func normalizeDegrees(degrees float64) float64 {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return d
}
