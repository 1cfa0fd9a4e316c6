package geometry

import "math"

// Vec3 is a point in model space, millimeters.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the cross product of v and w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Triangle is one face of a mesh: three vertices in millimeters.
type Triangle [3]Vec3

// Mesh is an ordered triangle soup. No indexing, closure or manifoldness
// is assumed; the uploader is responsible for supplying a valid solid.
type Mesh []Triangle

// Size is the extent of an axis-aligned bounding box, millimeters.
type Size struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// signedVolume is the signed volume of the tetrahedron formed by a, b, c
// and the origin.
func signedVolume(a, b, c Vec3) float64 {
	return a.Dot(b.Cross(c)) / 6.0
}

// VolumeMM3 computes the enclosed volume of the mesh in mm³ by summing
// signed tetrahedron volumes against the origin and taking the absolute
// value, so inconsistent winding cancels out instead of erroring.
// Correct for any closed mesh; a best-effort number for non-manifold
// input. Returns 0 for an empty mesh.
func VolumeMM3(m Mesh) float64 {
	var volume float64
	for _, t := range m {
		volume += signedVolume(t[0], t[1], t[2])
	}
	return math.Abs(volume)
}

// BoundingSizeMM returns the axis-aligned bounding box extent of the mesh
// in millimeters. Returns the zero Size for an empty mesh.
func BoundingSizeMM(m Mesh) Size {
	if len(m) == 0 {
		return Size{}
	}

	min := m[0][0]
	max := m[0][0]
	for _, t := range m {
		for _, v := range t {
			min.X = math.Min(min.X, v.X)
			min.Y = math.Min(min.Y, v.Y)
			min.Z = math.Min(min.Z, v.Z)
			max.X = math.Max(max.X, v.X)
			max.Y = math.Max(max.Y, v.Y)
			max.Z = math.Max(max.Z, v.Z)
		}
	}

	return Size{X: max.X - min.X, Y: max.Y - min.Y, Z: max.Z - min.Z}
}

// Scaled returns a copy of the mesh with every vertex multiplied by s.
func Scaled(m Mesh, s float64) Mesh {
	out := make(Mesh, len(m))
	for i, t := range m {
		out[i] = Triangle{t[0].Scale(s), t[1].Scale(s), t[2].Scale(s)}
	}
	return out
}
