package geometry

import "math"

// Mesh — треугольная сетка в плоских буферах: по 9 float32 на треугольник
// в Vertices (вершины подряд), по 9 в Normals (нормаль продублирована на
// вершину). Такой layout отдаётся вьюверу как есть.
type Mesh struct {
	Vertices  []float32
	Normals   []float32
	Triangles int

	// ограничивающая сфера (после Normalize — вокруг начала координат по X/Z)
	Center [3]float32
	Radius float64
}

// Normalize готовит сетку к показу: центр по X/Z в ноль, минимальный Y на
// плоскость стола (0), затем пересчёт сферы.
func (m *Mesh) Normalize() {
	if len(m.Vertices) == 0 {
		return
	}
	minX, maxX := m.Vertices[0], m.Vertices[0]
	minY := m.Vertices[1]
	minZ, maxZ := m.Vertices[2], m.Vertices[2]
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		x, y, z := m.Vertices[i], m.Vertices[i+1], m.Vertices[i+2]
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if z < minZ {
			minZ = z
		}
		if z > maxZ {
			maxZ = z
		}
	}
	dx := -(minX + maxX) / 2
	dy := -minY
	dz := -(minZ + maxZ) / 2
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		m.Vertices[i] += dx
		m.Vertices[i+1] += dy
		m.Vertices[i+2] += dz
	}
	m.computeBoundingSphere()
}

// computeBoundingSphere: центр — середина bbox, радиус — максимум
// расстояний до вершин. Не минимальная сфера, но стабильная и достаточная
// для кадрирования камеры.
func (m *Mesh) computeBoundingSphere() {
	if len(m.Vertices) == 0 {
		m.Center = [3]float32{}
		m.Radius = 0
		return
	}
	var min, max [3]float32
	for k := 0; k < 3; k++ {
		min[k], max[k] = m.Vertices[k], m.Vertices[k]
	}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		for k := 0; k < 3; k++ {
			v := m.Vertices[i+k]
			if v < min[k] {
				min[k] = v
			}
			if v > max[k] {
				max[k] = v
			}
		}
	}
	for k := 0; k < 3; k++ {
		m.Center[k] = (min[k] + max[k]) / 2
	}
	var r2 float64
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		var d2 float64
		for k := 0; k < 3; k++ {
			d := float64(m.Vertices[i+k] - m.Center[k])
			d2 += d * d
		}
		if d2 > r2 {
			r2 = d2
		}
	}
	m.Radius = math.Sqrt(r2)
}

// Release отпускает буферы геометрии. Вызывается перед подменой сетки во
// вьювере, чтобы повторные загрузки не копили память.
func (m *Mesh) Release() {
	m.Vertices = nil
	m.Normals = nil
	m.Triangles = 0
	m.Radius = 0
}

// addTriangle дописывает треугольник, считая нормаль по вершинам, если
// она не задана (нулевая).
func (m *Mesh) addTriangle(v0, v1, v2, n [3]float32) {
	if n == ([3]float32{}) {
		n = faceNormal(v0, v1, v2)
	}
	m.Vertices = append(m.Vertices, v0[0], v0[1], v0[2], v1[0], v1[1], v1[2], v2[0], v2[1], v2[2])
	for i := 0; i < 3; i++ {
		m.Normals = append(m.Normals, n[0], n[1], n[2])
	}
	m.Triangles++
}

func faceNormal(v0, v1, v2 [3]float32) [3]float32 {
	ax, ay, az := v1[0]-v0[0], v1[1]-v0[1], v1[2]-v0[2]
	bx, by, bz := v2[0]-v0[0], v2[1]-v0[1], v2[2]-v0[2]
	nx := ay*bz - az*by
	ny := az*bx - ax*bz
	nz := ax*by - ay*bx
	l := math.Sqrt(float64(nx*nx + ny*ny + nz*nz))
	if l == 0 {
		return [3]float32{0, 0, 1}
	}
	return [3]float32{nx / float32(l), ny / float32(l), nz / float32(l)}
}
