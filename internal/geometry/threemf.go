package geometry

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// 3MF — zip-контейнер; геометрия лежит в 3D/3dmodel.model (OPC-часть с XML).
const threemfModelPath = "3D/3dmodel.model"

type tmfModel struct {
	Resources tmfResources `xml:"resources"`
	Build     tmfBuild     `xml:"build"`
}

type tmfResources struct {
	Objects []tmfObject `xml:"object"`
}

type tmfObject struct {
	ID   string   `xml:"id,attr"`
	Mesh *tmfMesh `xml:"mesh"`
}

type tmfMesh struct {
	Vertices  []tmfVertex   `xml:"vertices>vertex"`
	Triangles []tmfTriangle `xml:"triangles>triangle"`
}

type tmfVertex struct {
	X float32 `xml:"x,attr"`
	Y float32 `xml:"y,attr"`
	Z float32 `xml:"z,attr"`
}

type tmfTriangle struct {
	V1 int `xml:"v1,attr"`
	V2 int `xml:"v2,attr"`
	V3 int `xml:"v3,attr"`
}

type tmfBuild struct {
	Items []tmfItem `xml:"item"`
}

type tmfItem struct {
	ObjectID  string `xml:"objectid,attr"`
	Transform string `xml:"transform,attr"`
}

// Parse3MF разбирает 3MF-архив в Mesh. Build-трансформы применяются;
// объекты без build-секции берутся как есть.
func Parse3MF(data []byte) (*Mesh, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Format: "3mf", Reason: "not a zip container"}
	}

	var modelXML []byte
	for _, f := range zr.File {
		if f.Name == threemfModelPath || strings.HasSuffix(f.Name, ".model") {
			rc, err := f.Open()
			if err != nil {
				return nil, &ParseError{Format: "3mf", Reason: "cannot open model part"}
			}
			modelXML, err = io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return nil, &ParseError{Format: "3mf", Reason: "cannot read model part"}
			}
			if f.Name == threemfModelPath {
				break
			}
		}
	}
	if modelXML == nil {
		return nil, &ParseError{Format: "3mf", Reason: "no 3D model part in archive"}
	}

	var model tmfModel
	if err := xml.Unmarshal(modelXML, &model); err != nil {
		return nil, &ParseError{Format: "3mf", Reason: "malformed model xml"}
	}

	objects := make(map[string]*tmfObject, len(model.Resources.Objects))
	for i := range model.Resources.Objects {
		o := &model.Resources.Objects[i]
		objects[o.ID] = o
	}

	m := &Mesh{}
	items := model.Build.Items
	if len(items) == 0 {
		for _, o := range model.Resources.Objects {
			items = append(items, tmfItem{ObjectID: o.ID})
		}
	}
	for _, item := range items {
		obj, ok := objects[item.ObjectID]
		if !ok || obj.Mesh == nil {
			continue
		}
		tr, err := parseTransform(item.Transform)
		if err != nil {
			return nil, &ParseError{Format: "3mf", Reason: "bad build transform"}
		}
		if err := appendObject(m, obj.Mesh, tr); err != nil {
			return nil, err
		}
	}
	if m.Triangles == 0 {
		return nil, &ParseError{Format: "3mf", Reason: "no triangles"}
	}
	m.computeBoundingSphere()
	return m, nil
}

func appendObject(m *Mesh, mesh *tmfMesh, tr [12]float32) error {
	verts := make([][3]float32, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		verts[i] = applyTransform(tr, [3]float32{v.X, v.Y, v.Z})
	}
	for _, t := range mesh.Triangles {
		if t.V1 >= len(verts) || t.V2 >= len(verts) || t.V3 >= len(verts) ||
			t.V1 < 0 || t.V2 < 0 || t.V3 < 0 {
			return &ParseError{Format: "3mf", Reason: "triangle index out of range"}
		}
		m.addTriangle(verts[t.V1], verts[t.V2], verts[t.V3], [3]float32{})
	}
	return nil
}

// parseTransform: 12 чисел row-major (3x4 аффинная матрица 3MF).
// Пустая строка — identity.
func parseTransform(s string) ([12]float32, error) {
	identity := [12]float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}
	if strings.TrimSpace(s) == "" {
		return identity, nil
	}
	fields := strings.Fields(s)
	if len(fields) != 12 {
		return identity, &ParseError{Format: "3mf", Reason: "transform must have 12 components"}
	}
	var tr [12]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return identity, err
		}
		tr[i] = float32(v)
	}
	return tr, nil
}

func applyTransform(tr [12]float32, v [3]float32) [3]float32 {
	return [3]float32{
		tr[0]*v[0] + tr[3]*v[1] + tr[6]*v[2] + tr[9],
		tr[1]*v[0] + tr[4]*v[1] + tr[7]*v[2] + tr[10],
		tr[2]*v[0] + tr[5]*v[1] + tr[8]*v[2] + tr[11],
	}
}
