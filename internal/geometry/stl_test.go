package geometry

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// binarySTL собирает валидный binary STL из треугольников
// (по 9 координат на треугольник).
func binarySTL(tris ...[9]float32) []byte {
	buf := make([]byte, 80, 84+len(tris)*50)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tris)))
	for _, tri := range tris {
		// нулевая нормаль — парсер посчитает сам
		for i := 0; i < 3; i++ {
			buf = binary.LittleEndian.AppendUint32(buf, 0)
		}
		for _, f := range tri {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		buf = append(buf, 0, 0) // attribute byte count
	}
	return buf
}

func TestParseSTLBinary(t *testing.T) {
	data := binarySTL(
		[9]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[9]float32{0, 0, 1, 1, 0, 1, 0, 1, 1},
	)
	m, err := ParseSTL(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.Triangles != 2 {
		t.Errorf("expected 2 triangles, got %d", m.Triangles)
	}
	if len(m.Vertices) != 18 || len(m.Normals) != 18 {
		t.Errorf("buffer sizes off: %d verts, %d normals", len(m.Vertices), len(m.Normals))
	}
}

func TestParseSTLBinaryTruncated(t *testing.T) {
	data := binarySTL([9]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	var pe *ParseError
	if _, err := ParseSTL(data[:90]); !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
	if _, err := ParseSTL([]byte("x")); err == nil {
		t.Error("expected error for tiny input")
	}
}

func TestParseSTLASCII(t *testing.T) {
	src := `solid demo
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid demo
`
	m, err := ParseSTL([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if m.Triangles != 1 {
		t.Errorf("expected 1 triangle, got %d", m.Triangles)
	}
	if m.Normals[2] != 1 {
		t.Errorf("normal not carried through: %v", m.Normals[:3])
	}
}

func TestParseSTLASCIIBadVertex(t *testing.T) {
	src := "solid x\nfacet normal 0 0 1\nouter loop\nvertex a b c\nendloop\nendfacet\nendsolid"
	var pe *ParseError
	if _, err := ParseSTL([]byte(src)); !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

// binary-файл, начинающийся с "solid", не должен уходить в ASCII-ветку
func TestParseSTLBinaryWithSolidHeader(t *testing.T) {
	data := binarySTL([9]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	copy(data[:5], "solid")
	m, err := ParseSTL(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.Triangles != 1 {
		t.Errorf("expected 1 triangle, got %d", m.Triangles)
	}
}
