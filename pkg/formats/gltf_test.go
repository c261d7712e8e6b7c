package formats

import (
	"bytes"
	"errors"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// buildTriangleGLB encodes a one-triangle GLB, optionally parented under a
// node that translates the geometry by tx.
func buildTriangleGLB(t *testing.T, tx float32) []byte {
	t.Helper()
	doc := gltf.NewDocument()

	positions := modeler.WritePosition(doc, [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
	})
	normals := modeler.WriteNormal(doc, [][3]float32{
		{0, 0, 1}, {0, 0, 1}, {0, 0, 1},
	})
	indices := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				gltf.POSITION: positions,
				gltf.NORMAL:   normals,
			},
			Indices: gltf.Index(indices),
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Mesh:        gltf.Index(0),
		Translation: [3]float32{tx, 0, 0},
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("encoding GLB: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeGLTF_Triangle(t *testing.T) {
	m, err := DecodeGLTF(buildTriangleGLB(t, 0))
	if err != nil {
		t.Fatalf("DecodeGLTF failed: %v", err)
	}

	if got := len(m.Vertices); got != 3 {
		t.Errorf("vertex count = %d, want 3", got)
	}
	if got := len(m.Indices); got != 3 {
		t.Errorf("index count = %d, want 3", got)
	}
	if n := m.Vertices[0].Normal; n != [3]float32{0, 0, 1} {
		t.Errorf("normal = %v, want +Z", n)
	}
	if len(m.Materials) == 0 {
		t.Error("decoded mesh must carry a renderable material")
	}
}

func TestDecodeGLTF_BakesNodeTransform(t *testing.T) {
	m, err := DecodeGLTF(buildTriangleGLB(t, 5))
	if err != nil {
		t.Fatalf("DecodeGLTF failed: %v", err)
	}
	if p := m.Vertices[0].Position; p != [3]float32{5, 0, 0} {
		t.Errorf("position = %v, want node translation baked in", p)
	}
}

func TestDecodeGLTF_NoGeometry(t *testing.T) {
	doc := gltf.NewDocument()
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("encoding GLB: %v", err)
	}

	_, err := DecodeGLTF(buf.Bytes())
	if !errors.Is(err, ErrEmptyGLTF) {
		t.Errorf("err = %v, want ErrEmptyGLTF", err)
	}
}

func TestDecodeGLTF_Garbage(t *testing.T) {
	if _, err := DecodeGLTF([]byte("not a gltf document")); err == nil {
		t.Error("garbage input must fail to decode")
	}
}
