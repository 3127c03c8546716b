package geometry

import (
	"archive/zip"
	"bytes"
	"errors"
	"math"
	"testing"
)

func make3MF(t *testing.T, modelXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(threemfModelPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(modelXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const simpleModel = `<?xml version="1.0" encoding="UTF-8"?>
<model unit="millimeter" xmlns="http://schemas.microsoft.com/3dmanufacturing/core/2015/02">
  <resources>
    <object id="1" type="model">
      <mesh>
        <vertices>
          <vertex x="0" y="0" z="0"/>
          <vertex x="10" y="0" z="0"/>
          <vertex x="0" y="10" z="0"/>
        </vertices>
        <triangles>
          <triangle v1="0" v2="1" v3="2"/>
        </triangles>
      </mesh>
    </object>
  </resources>
  <build>
    <item objectid="1"/>
  </build>
</model>`

func TestParse3MF(t *testing.T) {
	m, err := Parse3MF(make3MF(t, simpleModel))
	if err != nil {
		t.Fatal(err)
	}
	if m.Triangles != 1 {
		t.Errorf("expected 1 triangle, got %d", m.Triangles)
	}
	if m.Vertices[3] != 10 {
		t.Errorf("vertex coordinates lost: %v", m.Vertices[:9])
	}
}

const translatedModel = `<?xml version="1.0"?>
<model xmlns="http://schemas.microsoft.com/3dmanufacturing/core/2015/02">
  <resources>
    <object id="7">
      <mesh>
        <vertices>
          <vertex x="0" y="0" z="0"/>
          <vertex x="1" y="0" z="0"/>
          <vertex x="0" y="1" z="0"/>
        </vertices>
        <triangles><triangle v1="0" v2="1" v3="2"/></triangles>
      </mesh>
    </object>
  </resources>
  <build>
    <item objectid="7" transform="1 0 0 0 1 0 0 0 1 5 6 7"/>
  </build>
</model>`

func TestParse3MFBuildTransform(t *testing.T) {
	m, err := Parse3MF(make3MF(t, translatedModel))
	if err != nil {
		t.Fatal(err)
	}
	// первая вершина (0,0,0) после сдвига (5,6,7)
	if math.Abs(float64(m.Vertices[0]-5)) > 1e-5 ||
		math.Abs(float64(m.Vertices[1]-6)) > 1e-5 ||
		math.Abs(float64(m.Vertices[2]-7)) > 1e-5 {
		t.Errorf("transform not applied: %v", m.Vertices[:3])
	}
}

func TestParse3MFNotZip(t *testing.T) {
	var pe *ParseError
	if _, err := Parse3MF([]byte("<xml/>")); !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

func TestParse3MFBadIndex(t *testing.T) {
	bad := `<?xml version="1.0"?>
<model xmlns="http://schemas.microsoft.com/3dmanufacturing/core/2015/02">
  <resources>
    <object id="1">
      <mesh>
        <vertices><vertex x="0" y="0" z="0"/></vertices>
        <triangles><triangle v1="0" v2="1" v3="9"/></triangles>
      </mesh>
    </object>
  </resources>
</model>`
	var pe *ParseError
	if _, err := Parse3MF(make3MF(t, bad)); !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
}
