// glTF 2.0 decoder, covering both the JSON (.gltf) and binary (.glb)
// container variants via qmuntal/gltf.
package formats

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/rigbench/pkg/mesh"
	"github.com/Faultbox/rigbench/pkg/math"
)

// ErrEmptyGLTF is returned when a document contains no triangle geometry.
var ErrEmptyGLTF = errors.New("glTF contains no triangle geometry")

// DecodeGLTFDocument parses raw bytes into a glTF document. The decoder
// auto-detects the GLB container by magic; external .bin buffer references
// cannot be resolved from raw bytes and surface as a decode error.
func DecodeGLTFDocument(data []byte) (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF: %w", err)
	}
	return doc, nil
}

// DecodeGLTF parses glTF/GLB bytes into a flattened triangle mesh. Node
// transforms are baked into vertex positions so the mesh is in model space,
// matching what the other decoders produce.
func DecodeGLTF(data []byte) (*mesh.TriMesh, error) {
	doc, err := DecodeGLTFDocument(data)
	if err != nil {
		return nil, err
	}

	m := &mesh.TriMesh{Name: "gltf"}
	for i, mat := range doc.Materials {
		m.Materials = append(m.Materials, convertMaterial(i, mat))
	}

	// Walk the default scene so node transforms apply; fall back to
	// iterating every node when no scene is declared.
	roots := sceneRoots(doc)
	visited := make(map[uint32]bool)
	for _, root := range roots {
		appendNode(doc, m, root, math.Identity(), visited)
	}

	if len(m.Indices) == 0 {
		return nil, ErrEmptyGLTF
	}
	m.EnsureRenderable()
	m.RecomputeBounds()
	return m, nil
}

func sceneRoots(doc *gltf.Document) []uint32 {
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}
	all := make([]uint32, len(doc.Nodes))
	for i := range doc.Nodes {
		all[i] = uint32(i)
	}
	return all
}

func appendNode(doc *gltf.Document, m *mesh.TriMesh, idx uint32, parent math.Mat4, visited map[uint32]bool) {
	if int(idx) >= len(doc.Nodes) || visited[idx] {
		return
	}
	visited[idx] = true
	node := doc.Nodes[idx]

	world := parent.Mul(nodeMatrix(node))
	if node.Mesh != nil && int(*node.Mesh) < len(doc.Meshes) {
		for _, prim := range doc.Meshes[*node.Mesh].Primitives {
			if err := appendPrimitive(doc, m, prim, world); err != nil {
				// Skip malformed primitives; geometry from the rest of the
				// document is still usable.
				continue
			}
		}
	}
	for _, child := range node.Children {
		appendNode(doc, m, child, world, visited)
	}
}

func nodeMatrix(node *gltf.Node) math.Mat4 {
	if mtx := node.MatrixOrDefault(); mtx != gltf.DefaultMatrix {
		var m math.Mat4
		copy(m[:], mtx[:])
		return m
	}
	t := node.Translation
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	return math.Compose(
		math.Vec3{X: t[0], Y: t[1], Z: t[2]},
		math.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]},
		math.Vec3{X: s[0], Y: s[1], Z: s[2]},
	)
}

func appendPrimitive(doc *gltf.Document, m *mesh.TriMesh, prim *gltf.Primitive, world math.Mat4) error {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}

	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("reading positions: %w", err)
	}

	var normals [][3]float32
	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[normIdx], nil)
	}
	var texcoords [][2]float32
	if texIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		texcoords, _ = modeler.ReadTextureCoord(doc, doc.Accessors[texIdx], nil)
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	base := uint32(len(m.Vertices))
	normalMat := world // uniform scale assumption; renormalized below
	for i, p := range positions {
		v := mesh.Vertex{Position: world.TransformPoint(p)}
		if i < len(normals) {
			n := normalMat.TransformDirection(normals[i])
			l := sqrt32(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
			if l > 0 {
				n = [3]float32{n[0] / l, n[1] / l, n[2] / l}
			}
			v.Normal = n
		}
		if i < len(texcoords) {
			v.TexCoord = texcoords[i]
		}
		m.Vertices = append(m.Vertices, v)
	}

	start := len(m.Indices)
	for _, idx := range indices {
		m.Indices = append(m.Indices, base+idx)
	}

	matIdx := 0
	if prim.Material != nil && int(*prim.Material) < len(m.Materials) {
		matIdx = int(*prim.Material)
	}
	m.Groups = append(m.Groups, mesh.Group{
		MaterialIdx: matIdx,
		StartIndex:  int32(start),
		IndexCount:  int32(len(indices)),
	})
	return nil
}

func convertMaterial(i int, mat *gltf.Material) mesh.Material {
	out := mesh.DefaultMaterial()
	out.Name = mat.Name
	if out.Name == "" {
		out.Name = fmt.Sprintf("material_%d", i)
	}
	if mat.PBRMetallicRoughness != nil && mat.PBRMetallicRoughness.BaseColorFactor != nil {
		out.BaseColor = *mat.PBRMetallicRoughness.BaseColorFactor
	}
	// The editor renders everything double-sided regardless of the source
	// flag so thin or inverted geometry stays pickable.
	out.DoubleSided = true
	return out
}
