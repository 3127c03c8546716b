package geometry

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

const (
	stlHeaderSize = 80
	stlRecordSize = 50 // 12 float32 + uint16 attribute
)

// ParseSTL разбирает STL, сам определяя вариант: файлы, начинающиеся с
// "solid" и содержащие "facet", трактуем как ASCII, остальное — binary.
// Признак "solid" сам по себе ненадёжен: встречаются binary-файлы с таким
// заголовком.
func ParseSTL(data []byte) (*Mesh, error) {
	if looksASCII(data) {
		return parseSTLASCII(data)
	}
	return parseSTLBinary(data)
}

func looksASCII(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("solid")) && bytes.Contains(head, []byte("facet"))
}

func parseSTLBinary(data []byte) (*Mesh, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, &ParseError{Format: "stl", Reason: "file too short for binary header"}
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	want := stlHeaderSize + 4 + int(count)*stlRecordSize
	if len(data) < want {
		return nil, &ParseError{Format: "stl", Reason: "truncated triangle data"}
	}

	m := &Mesh{
		Vertices: make([]float32, 0, count*9),
		Normals:  make([]float32, 0, count*9),
	}
	off := stlHeaderSize + 4
	for i := uint32(0); i < count; i++ {
		rec := data[off : off+stlRecordSize]
		var f [12]float32
		for j := 0; j < 12; j++ {
			bits := binary.LittleEndian.Uint32(rec[j*4:])
			f[j] = math.Float32frombits(bits)
			if math.IsNaN(float64(f[j])) || math.IsInf(float64(f[j]), 0) {
				return nil, &ParseError{Format: "stl", Reason: "non-finite coordinate"}
			}
		}
		m.addTriangle(
			[3]float32{f[3], f[4], f[5]},
			[3]float32{f[6], f[7], f[8]},
			[3]float32{f[9], f[10], f[11]},
			[3]float32{f[0], f[1], f[2]},
		)
		off += stlRecordSize
	}
	m.computeBoundingSphere()
	return m, nil
}

func parseSTLASCII(data []byte) (*Mesh, error) {
	m := &Mesh{}
	var normal [3]float32
	var verts [][3]float32

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			// facet normal nx ny nz
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parseFloats3(fields[2:5])
				if err != nil {
					return nil, &ParseError{Format: "stl", Reason: "bad facet normal"}
				}
				normal = n
			}
			verts = verts[:0]
		case "vertex":
			if len(fields) < 4 {
				return nil, &ParseError{Format: "stl", Reason: "bad vertex line"}
			}
			v, err := parseFloats3(fields[1:4])
			if err != nil {
				return nil, &ParseError{Format: "stl", Reason: "bad vertex coordinate"}
			}
			verts = append(verts, v)
		case "endfacet":
			if len(verts) != 3 {
				return nil, &ParseError{Format: "stl", Reason: "facet without 3 vertices"}
			}
			m.addTriangle(verts[0], verts[1], verts[2], normal)
			normal = [3]float32{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Format: "stl", Reason: err.Error()}
	}
	if m.Triangles == 0 {
		return nil, &ParseError{Format: "stl", Reason: "no triangles"}
	}
	m.computeBoundingSphere()
	return m, nil
}

func parseFloats3(fields []string) ([3]float32, error) {
	var out [3]float32
	for i, s := range fields {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return out, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
